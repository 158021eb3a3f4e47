package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Calum-Kerr/revisepdf-front/internal/api/middleware"
	"github.com/Calum-Kerr/revisepdf-front/internal/model/dto"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// Create 为当前用户开户，邮箱缺省取令牌中的 email
// POST /api/v1/account
func (h *AccountHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateAccountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}
	if req.Email == "" {
		req.Email = middleware.GetEmail(c)
	}

	info, err := h.accountService.CreateAccount(c.Request.Context(), userID, req.Email)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "account created", info)
}

// Get 当前用户账户信息
// GET /api/v1/account
func (h *AccountHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, info)
}

// ChangeTier 变更订阅等级
// PUT /api/v1/user/subscription
func (h *AccountHandler) ChangeTier(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.accountService.ChangeTier(c.Request.Context(), userID, req.Tier)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "subscription updated", info)
}
