package service

import (
	"sync"

	"go.uber.org/zap"

	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/monitoring"
)

// ConfigService 审核配置服务
//
// 更新配置时构造新的 Moderator 并原子替换，不修改正在使用的实例。
type ConfigService struct {
	moderation *ModerationService
	defaults   moderation.Config
	opts       moderation.ModeratorOptions
	metrics    *monitoring.Metrics
	log        *zap.Logger

	mu sync.Mutex
}

// NewConfigService 创建配置服务，defaults 为重置时使用的配置
func NewConfigService(ms *ModerationService, defaults moderation.Config, opts moderation.ModeratorOptions, metrics *monitoring.Metrics, log *zap.Logger) *ConfigService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfigService{
		moderation: ms,
		defaults:   defaults.Clone(),
		opts:       opts,
		metrics:    metrics,
		log:        log,
	}
}

// Get 获取当前配置
func (s *ConfigService) Get() moderation.Config {
	return s.moderation.Moderator().Config()
}

// Update 校验并应用新配置，失败时保持原配置不变
func (s *ConfigService) Update(cfg moderation.Config) (moderation.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.moderation.Moderator()
	m, err := moderation.NewModerator(cfg, current.Reputation().WithConfig(cfg), s.opts, s.log)
	if err != nil {
		s.recordReload(false)
		s.log.Warn("moderation config rejected", zap.Error(err))
		return moderation.Config{}, err
	}
	s.moderation.SetModerator(m)
	s.recordReload(true)

	s.log.Info("moderation config updated",
		zap.Int("auto_reject_threshold", cfg.AutoRejectThreshold),
		zap.Int("manual_review_threshold", cfg.ManualReviewThreshold),
		zap.Int("approve_threshold", cfg.ApproveThreshold),
	)
	return m.Config(), nil
}

// Reset 恢复启动时的配置
func (s *ConfigService) Reset() (moderation.Config, error) {
	return s.Update(s.defaults)
}

func (s *ConfigService) recordReload(success bool) {
	if s.metrics != nil {
		s.metrics.RecordConfigReload(success)
	}
}
