package httptransport

import (
	"github.com/gin-gonic/gin"

	"campuswiki/backend/internal/service"
)

// AccountHandler 账户快照 API 处理器
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accounts: accountService,
	}
}

// Create godoc
// @Summary 登记账户
// @Description 由身份系统同步账户快照，用于声誉计算
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body service.CreateAccountInput true "账户信息"
// @Success 201 {object} Response{data=domain.Account}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req service.CreateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, MsgAccountCreateFailed)
		return
	}

	Created(c, account)
}

// Get 获取账户快照
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, MsgAccountGetFailed)
		return
	}

	Success(c, account)
}
