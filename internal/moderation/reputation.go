package moderation

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"campuswiki/backend/internal/domain"
)

// 声誉评分参数
const (
	baseReputation       = 50.0
	maxAgeBonus          = 15.0
	fullAgeDays          = 30.0
	verifiedEmailBonus   = 10.0
	maxApprovalBonus     = 30.0
	maxRecentBonus       = 10.0
	recentBonusPerItem   = 2.0
	recentBurstPenalty   = 10.0
	recentBonusLimit     = 5
	recentBurstThreshold = 10

	lowRiskScore    = 70.0
	mediumRiskScore = 40.0

	// RecentWindow 近期活跃度统计窗口
	RecentWindow = 7 * 24 * time.Hour
)

// HistoryStore 声誉计算所需的只读数据源
type HistoryStore interface {
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	GetSubmissionStats(ctx context.Context, userID string, since time.Time) (*domain.SubmissionStats, error)
}

// ReputationCache 已计算声誉的缓存，退回默认值的结果不会写入
type ReputationCache interface {
	GetReputation(ctx context.Context, userID string) (UserReputation, bool, error)
	SetReputation(ctx context.Context, rep UserReputation, ttl time.Duration) error
	DeleteReputation(ctx context.Context, userID string) error
}

// ReputationOptions 声誉服务选项
type ReputationOptions struct {
	Enabled  bool
	CacheTTL time.Duration
	Cache    ReputationCache
	Now      func() time.Time
}

// ReputationService 根据账号信息与提交历史计算用户声誉
type ReputationService struct {
	history HistoryStore
	cfg     Config
	opts    ReputationOptions
	log     *zap.Logger
}

// NewReputationService 创建声誉服务，history 为 nil 时视为关闭
func NewReputationService(history HistoryStore, cfg Config, opts ReputationOptions, log *zap.Logger) *ReputationService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if history == nil {
		opts.Enabled = false
	}
	return &ReputationService{
		history: history,
		cfg:     cfg.Clone(),
		opts:    opts,
		log:     log,
	}
}

// WithConfig 返回共享数据源与缓存、使用新阈值的声誉服务
func (s *ReputationService) WithConfig(cfg Config) *ReputationService {
	return &ReputationService{
		history: s.history,
		cfg:     cfg.Clone(),
		opts:    s.opts,
		log:     s.log,
	}
}

// GetUserReputation 获取用户声誉
//
// 不返回错误：功能关闭、用户不存在、查询失败或超时都会退回中性默认值，
// 并在 Fallback 字段中标明原因。
func (s *ReputationService) GetUserReputation(ctx context.Context, userID string) UserReputation {
	if !s.opts.Enabled {
		return defaultReputation(userID, FallbackDisabled)
	}

	if s.opts.Cache != nil {
		rep, ok, err := s.opts.Cache.GetReputation(ctx, userID)
		if err != nil {
			s.log.Warn("reputation cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return rep
		}
	}

	rep, reason, err := s.compute(ctx, userID)
	if reason != FallbackNone {
		return s.fallback(userID, reason, err)
	}

	if s.opts.Cache != nil && s.opts.CacheTTL > 0 {
		if err := s.opts.Cache.SetReputation(ctx, rep, s.opts.CacheTTL); err != nil {
			s.log.Warn("reputation cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return rep
}

func (s *ReputationService) compute(ctx context.Context, userID string) (UserReputation, FallbackReason, error) {
	if err := ctx.Err(); err != nil {
		return UserReputation{}, FallbackTimeout, err
	}

	account, err := s.history.GetAccount(ctx, userID)
	if err != nil {
		return UserReputation{}, classifyLookupError(err), err
	}
	if account == nil {
		return UserReputation{}, FallbackNotFound, domain.ErrAccountNotFound
	}

	now := s.opts.Now()
	stats, err := s.history.GetSubmissionStats(ctx, userID, now.Add(-RecentWindow))
	if err != nil {
		return UserReputation{}, classifyLookupError(err), err
	}
	if stats == nil {
		stats = &domain.SubmissionStats{}
	}

	return scoreReputation(userID, account, *stats, now, s.cfg), FallbackNone, nil
}

func classifyLookupError(err error) FallbackReason {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return FallbackNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FallbackTimeout
	default:
		return FallbackLookupFailed
	}
}

func (s *ReputationService) fallback(userID string, reason FallbackReason, err error) UserReputation {
	s.log.Error("reputation lookup fell back to default",
		zap.String("user_id", userID),
		zap.String("cause", string(reason)),
		zap.Error(err),
	)
	return defaultReputation(userID, reason)
}

// scoreReputation 基础分 50，加上账龄、邮箱验证、通过率与近期活跃度，截断到 [0,100]
func scoreReputation(userID string, account *domain.Account, stats domain.SubmissionStats, now time.Time, cfg Config) UserReputation {
	score := baseReputation

	score += math.Min(account.AgeInDays(now)/fullAgeDays, 1) * maxAgeBonus

	if account.EmailVerified {
		score += verifiedEmailBonus
	}

	approvalRate := 1.0
	if decided := stats.Approved + stats.Rejected; decided > 0 {
		approvalRate = float64(stats.Approved) / float64(decided)
		score += math.Floor(approvalRate * maxApprovalBonus)
	}

	// 6-10 条不加不减
	switch {
	case stats.Recent >= 1 && stats.Recent <= recentBonusLimit:
		score += math.Min(maxRecentBonus, float64(stats.Recent)*recentBonusPerItem)
	case stats.Recent > recentBurstThreshold:
		score -= recentBurstPenalty
	}

	score = math.Max(0, math.Min(100, score))

	return UserReputation{
		UserID:              userID,
		Score:               score,
		ApprovalRate:        approvalRate,
		TotalSubmissions:    stats.Total,
		ApprovedSubmissions: stats.Approved,
		RejectedSubmissions: stats.Rejected,
		FlaggedSubmissions:  stats.Flagged,
		RecentSubmissions:   stats.Recent,
		IsTrusted:           score >= cfg.AutoApproveReputation && approvalRate >= cfg.TrustedUserScore,
		IsSuspicious:        score <= cfg.AutoFlagReputation && approvalRate < cfg.SuspiciousUserScore,
		RiskLevel:           riskLevel(score),
	}
}

func riskLevel(score float64) RiskLevel {
	switch {
	case score >= lowRiskScore:
		return RiskLow
	case score >= mediumRiskScore:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// defaultReputation 中性默认声誉
func defaultReputation(userID string, reason FallbackReason) UserReputation {
	return UserReputation{
		UserID:       userID,
		Score:        baseReputation,
		ApprovalRate: 1.0,
		RiskLevel:    RiskMedium,
		Fallback:     reason,
	}
}

// ShouldAutoApprove 用户是否可信
func (s *ReputationService) ShouldAutoApprove(ctx context.Context, userID string) bool {
	return s.GetUserReputation(ctx, userID).IsTrusted
}

// ShouldAutoFlag 用户是否可疑
func (s *ReputationService) ShouldAutoFlag(ctx context.Context, userID string) bool {
	return s.GetUserReputation(ctx, userID).IsSuspicious
}

// ModerationPriority 人工审核队列优先级，数值越大越优先
func (s *ReputationService) ModerationPriority(rep UserReputation) int {
	switch {
	case rep.IsTrusted:
		return 10
	case rep.IsSuspicious:
		return 80
	default:
		return max(20, int(math.Round(100-rep.Score)))
	}
}

// RecordSubmissionOutcome 记录审核结果并使缓存失效，持久化由调用方负责
func (s *ReputationService) RecordSubmissionOutcome(ctx context.Context, userID string, status domain.SubmissionStatus) {
	s.log.Info("submission outcome recorded",
		zap.String("user_id", userID),
		zap.String("status", string(status)),
	)
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.DeleteReputation(ctx, userID); err != nil {
		s.log.Warn("reputation cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
