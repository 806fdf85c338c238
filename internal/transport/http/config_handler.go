package httptransport

import (
	"github.com/gin-gonic/gin"

	"campuswiki/backend/internal/service"
)

// ConfigHandler 审核配置 API 处理器
type ConfigHandler struct {
	configService *service.ConfigService
}

// NewConfigHandler 创建配置处理器
func NewConfigHandler(configService *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
	}
}

// GetConfig godoc
// @Summary 获取审核配置
// @Tags Admin - Config
// @Produce json
// @Success 200 {object} Response{data=moderation.Config}
// @Router /v1/admin/config [get]
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	Success(c, h.configService.Get())
}

// UpdateConfig godoc
// @Summary 更新审核配置
// @Description 请求体中未出现的字段保持当前值。校验失败时配置不变
// @Tags Admin - Config
// @Accept json
// @Produce json
// @Param request body moderation.Config true "配置信息"
// @Success 200 {object} Response{data=moderation.Config}
// @Failure 400 {object} Response
// @Router /v1/admin/config [put]
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	cfg := h.configService.Get()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	updated, err := h.configService.Update(cfg)
	if err != nil {
		respondError(c, err, MsgConfigUpdateFailed)
		return
	}

	SuccessWithMsg(c, "审核配置已更新", updated)
}

// ResetConfig 恢复启动时的审核配置
func (h *ConfigHandler) ResetConfig(c *gin.Context) {
	cfg, err := h.configService.Reset()
	if err != nil {
		respondError(c, err, MsgConfigUpdateFailed)
		return
	}

	SuccessWithMsg(c, "审核配置已重置", cfg)
}
