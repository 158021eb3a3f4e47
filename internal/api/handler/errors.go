package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

// serviceError 把服务层错误映射为响应码
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		response.NotFoundError(c, "account not found, create one first")
	case errors.Is(err, service.ErrAccountExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, tier.ErrInvalidTier), errors.Is(err, service.ErrInvalidRequest):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		response.UnavailableError(c, "")
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}
