package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

type TierHandler struct {
	catalog *tier.Catalog
}

func NewTierHandler(catalog *tier.Catalog) *TierHandler {
	return &TierHandler{catalog: catalog}
}

// tierInfo 套餐信息（定价页）
type tierInfo struct {
	Tier                        string `json:"tier"`
	DisplayName                 string `json:"display_name"`
	MaxFileSizeBytes            int64  `json:"max_file_size_bytes"`
	MaxBatchSize                int    `json:"max_batch_size"`
	DailyFileLimit              int    `json:"daily_file_limit,omitempty"`
	MonthlyFileLimit            int    `json:"monthly_file_limit,omitempty"`
	PricePer10MBCents           int64  `json:"price_per_10mb_cents,omitempty"`
	PricePerExtraBatchFileCents int64  `json:"price_per_extra_batch_file_cents,omitempty"`
	MaxCostPerOperationCents    int64  `json:"max_cost_per_operation_cents,omitempty"`
}

// List 套餐列表
// GET /api/v1/tiers
func (h *TierHandler) List(c *gin.Context) {
	entries := h.catalog.Entries()
	items := make([]tierInfo, 0, len(entries))
	for _, e := range entries {
		items = append(items, tierInfo{
			Tier:                        string(e.Tier),
			DisplayName:                 e.DisplayName,
			MaxFileSizeBytes:            e.Limits.MaxFileSizeBytes,
			MaxBatchSize:                e.Limits.MaxBatchSize,
			DailyFileLimit:              e.Limits.DailyFileLimit,
			MonthlyFileLimit:            e.Limits.MonthlyFileLimit,
			PricePer10MBCents:           e.Limits.PricePer10MBCents,
			PricePerExtraBatchFileCents: e.Limits.PricePerExtraBatchFileCents,
			MaxCostPerOperationCents:    e.Limits.MaxCostPerOperationCents,
		})
	}

	response.Success(c, items)
}
