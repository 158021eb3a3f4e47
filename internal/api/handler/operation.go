package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Calum-Kerr/revisepdf-front/internal/api/middleware"
	"github.com/Calum-Kerr/revisepdf-front/internal/model/dto"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
)

type OperationHandler struct {
	ledgerService *service.LedgerService
}

func NewOperationHandler(ledgerService *service.LedgerService) *OperationHandler {
	return &OperationHandler{
		ledgerService: ledgerService,
	}
}

// Record 评估并记录一次文件操作
// POST /api/v1/operations
//
// 被拒绝的操作同样返回 code 0，通过 data.accepted 区分。
func (h *OperationHandler) Record(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.RecordOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.ledgerService.RecordOperation(c.Request.Context(), userID, req.ToUsage())
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, result)
}

// Preview 预估判定和价格，不记录
// POST /api/v1/operations/preview
func (h *OperationHandler) Preview(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.RecordOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.ledgerService.Preview(c.Request.Context(), userID, req.ToUsage())
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, result)
}

// List 操作历史
// GET /api/v1/operations
func (h *OperationHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var query dto.ListOperationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = 20
	}

	items, total, err := h.ledgerService.ListOperations(c.Request.Context(), userID, query.Page, query.PageSize)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, items)
}

// Stats 仪表盘用量
// GET /api/v1/user/stats
func (h *OperationHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stats, err := h.ledgerService.GetStats(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, stats)
}
