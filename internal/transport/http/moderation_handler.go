package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/service"
)

// ModerationHandler 审核相关 API 处理器
type ModerationHandler struct {
	moderation *service.ModerationService
}

// NewModerationHandler 创建审核处理器
func NewModerationHandler(moderationService *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{
		moderation: moderationService,
	}
}

// ModerateRequest 单条审核请求
type ModerateRequest struct {
	UserID      string             `json:"userId" binding:"required"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"contentType"`
}

func (r ModerateRequest) input() service.ModerateInput {
	return service.ModerateInput{
		UserID:      r.UserID,
		Title:       r.Title,
		Content:     r.Content,
		ContentType: r.ContentType,
	}
}

// BatchModerateRequest 批量审核请求
type BatchModerateRequest struct {
	Items []ModerateRequest `json:"items" binding:"required,dive"`
}

// TextRequest 单独调用检测器时的请求
type TextRequest struct {
	Content string `json:"content"`
}

// SubmissionResponse 提交结果
type SubmissionResponse struct {
	Submission *domain.Submission          `json:"submission"`
	Moderation moderation.ModerationResult `json:"moderation"`
}

// Check godoc
// @Summary 审核内容
// @Description 执行完整审核流程但不保存
// @Tags Moderation
// @Accept json
// @Produce json
// @Param request body ModerateRequest true "待审核内容"
// @Success 200 {object} Response{data=moderation.ModerationResult}
// @Failure 400 {object} Response
// @Router /v1/moderation/check [post]
func (h *ModerationHandler) Check(c *gin.Context) {
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.moderation.Check(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, MsgModerationFailed)
		return
	}

	Success(c, result)
}

// Batch godoc
// @Summary 批量审核
// @Description 并发审核多条内容，结果顺序与请求一致
// @Tags Moderation
// @Accept json
// @Produce json
// @Param request body BatchModerateRequest true "待审核内容列表"
// @Success 200 {object} Response{data=[]moderation.ModerationResult}
// @Failure 400 {object} Response
// @Router /v1/moderation/batch [post]
func (h *ModerationHandler) Batch(c *gin.Context) {
	var req BatchModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	items := make([]service.ModerateInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = item.input()
	}

	results, err := h.moderation.BatchModerate(c.Request.Context(), items)
	if err != nil {
		respondError(c, err, MsgModerationFailed)
		return
	}

	Success(c, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// Spam 只执行垃圾内容检测
func (h *ModerationHandler) Spam(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	Success(c, h.moderation.Spam(req.Content))
}

// Filter 只执行内容过滤
func (h *ModerationHandler) Filter(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	Success(c, h.moderation.Filter(req.Content))
}

// Validate 只返回内容是否合规
func (h *ModerationHandler) Validate(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	Success(c, h.moderation.Validate(req.Content))
}

// Mask 脱敏个人信息
func (h *ModerationHandler) Mask(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	Success(c, gin.H{"content": h.moderation.Mask(req.Content)})
}

// Submit godoc
// @Summary 提交内容
// @Description 审核并保存一条提交。被拒绝的内容返回 422，同时附带审核结果
// @Tags Submissions
// @Accept json
// @Produce json
// @Param request body ModerateRequest true "提交内容"
// @Success 201 {object} Response{data=SubmissionResponse}
// @Failure 400 {object} Response
// @Failure 422 {object} Response{data=SubmissionResponse}
// @Router /v1/submissions [post]
func (h *ModerationHandler) Submit(c *gin.Context) {
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	sub, result, err := h.moderation.Submit(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, MsgSubmissionFailed)
		return
	}

	resp := SubmissionResponse{Submission: sub, Moderation: result}
	if result.Action == moderation.ActionReject {
		Rejected(c, MsgContentRejected, resp)
		return
	}
	Created(c, resp)
}

// GetSubmission 获取提交记录
func (h *ModerationHandler) GetSubmission(c *gin.Context) {
	sub, err := h.moderation.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, MsgSubmissionGetFail)
		return
	}
	Success(c, sub)
}

// ListUserSubmissions 获取用户最近的提交
func (h *ModerationHandler) ListUserSubmissions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		limit = n
	}

	subs, err := h.moderation.ListUserSubmissions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err, MsgSubmissionListFail)
		return
	}
	Success(c, gin.H{
		"submissions": subs,
		"total":       len(subs),
	})
}

// GetReputation godoc
// @Summary 查询用户声誉
// @Tags Users
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} Response{data=service.ReputationReport}
// @Router /v1/users/{id}/reputation [get]
func (h *ModerationHandler) GetReputation(c *gin.Context) {
	report, err := h.moderation.Reputation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, MsgReputationFailed)
		return
	}
	Success(c, report)
}
