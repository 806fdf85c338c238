package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/service"
	"campuswiki/backend/internal/storage"
)

// errorMapping 业务错误对应的 HTTP 状态码与中文消息
type errorMapping struct {
	err    error
	status int
	msg    string
	detail bool // 是否在消息后附加原始错误
}

// 错误映射表，按 errors.Is 匹配，包装过的错误同样适用
var errorMappings = []errorMapping{
	// 审核输入
	{service.ErrUserIDRequired, http.StatusBadRequest, "缺少用户ID", false},
	{service.ErrContentTooShort, http.StatusBadRequest, "内容过短", true},
	{service.ErrContentTooLong, http.StatusBadRequest, "内容过长", true},
	{service.ErrBatchEmpty, http.StatusBadRequest, "批量请求不能为空", false},
	{service.ErrBatchTooLarge, http.StatusBadRequest, "批量请求超过条目上限", true},
	{domain.ErrInvalidContentType, http.StatusBadRequest, "内容类型无效", false},
	{domain.ErrTitleTooLong, http.StatusBadRequest, "标题过长", false},

	// 审核配置
	{moderation.ErrInvalidConfig, http.StatusBadRequest, "审核配置无效", true},

	// 账户
	{domain.ErrInvalidAccountID, http.StatusBadRequest, "账户ID格式无效", false},
	{domain.ErrAccountIDTooLong, http.StatusBadRequest, "账户ID过长", false},
	{domain.ErrDisplayNameTooLong, http.StatusBadRequest, "显示名称过长", false},
	{domain.ErrAccountCreatedInFuture, http.StatusBadRequest, "账户创建时间不能晚于当前时间", false},
	{domain.ErrAccountNotFound, http.StatusNotFound, "账户不存在", false},
	{storage.ErrAccountExists, http.StatusConflict, "账户已存在", false},

	// 提交记录
	{domain.ErrSubmissionNotFound, http.StatusNotFound, "提交记录不存在", false},

	// 请求生命周期
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "请求超时", false},
	{context.Canceled, http.StatusServiceUnavailable, "请求已取消", false},
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.detail {
				return m.msg + ": " + err.Error()
			}
			return m.msg
		}
	}
	return err.Error()
}

// respondError 将业务错误写入响应，未知错误记录到 gin.Context 并返回 500
func respondError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			Error(c, m.status, GetErrorMessage(err))
			return
		}
	}
	_ = c.Error(err)
	InternalError(c, fallback)
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"

	MsgModerationFailed   = "内容审核失败"
	MsgContentRejected    = "内容未通过审核"
	MsgSubmissionFailed   = "保存提交记录失败"
	MsgSubmissionGetFail  = "获取提交记录失败"
	MsgSubmissionListFail = "获取提交列表失败"
	MsgReputationFailed   = "获取用户声誉失败"

	MsgAccountCreateFailed = "创建账户失败"
	MsgAccountGetFailed    = "获取账户失败"

	MsgConfigUpdateFailed = "更新审核配置失败"
)
