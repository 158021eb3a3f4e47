package validate

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
	"github.com/Calum-Kerr/revisepdf-front/internal/usage"
)

// Register 注册自定义 binding 校验规则（operation_type、tier），进程启动时调用一次
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("operation_type", operationType); err != nil {
		return err
	}
	return v.RegisterValidation("tier", subscriptionTier)
}

func operationType(fl validator.FieldLevel) bool {
	return usage.OperationType(fl.Field().String()).Valid()
}

func subscriptionTier(fl validator.FieldLevel) bool {
	return tier.Tier(fl.Field().String()).Valid()
}
