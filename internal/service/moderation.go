package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/monitoring"
	"campuswiki/backend/internal/pool"
	"campuswiki/backend/internal/storage"
)

var (
	// ErrUserIDRequired 缺少用户 ID
	ErrUserIDRequired = errors.New("user id is required")
	// ErrContentTooShort 内容过短
	ErrContentTooShort = errors.New("content too short")
	// ErrContentTooLong 内容过长
	ErrContentTooLong = errors.New("content too long")
	// ErrBatchEmpty 批量请求为空
	ErrBatchEmpty = errors.New("batch is empty")
	// ErrBatchTooLarge 批量请求超过上限
	ErrBatchTooLarge = errors.New("batch too large")
)

// 用户提交列表的默认与最大条数
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ModerateInput 一条待审核内容
type ModerateInput struct {
	UserID      string             `json:"userId"`
	Title       string             `json:"title,omitempty"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"contentType,omitempty"`
}

// ReputationReport 声誉查询结果，附带人工审核优先级
type ReputationReport struct {
	moderation.UserReputation
	Priority int `json:"priority"`
}

// SubmissionNotifier 接收已保存提交的审核结果，例如推送给在线审核员
type SubmissionNotifier interface {
	NotifySubmission(sub *domain.Submission, result moderation.ModerationResult)
}

// ModerationServiceOptions 审核服务选项
type ModerationServiceOptions struct {
	BatchMaxItems int
	Now           func() time.Time
	Notifier      SubmissionNotifier // 可选
}

// ModerationService 封装审核流水线的调用方逻辑：校验、审核、持久化与指标。
//
// 当前使用的 Moderator 可以在运行时整体替换，正在处理的请求继续使用旧实例。
type ModerationService struct {
	moderator atomic.Pointer[moderation.Moderator]
	store     storage.Store
	workers   *pool.WorkerPool
	metrics   *monitoring.Metrics
	opts      ModerationServiceOptions
	log       *zap.Logger
}

// NewModerationService 创建审核服务，workers 与 metrics 可以为 nil
func NewModerationService(
	moderator *moderation.Moderator,
	store storage.Store,
	workers *pool.WorkerPool,
	metrics *monitoring.Metrics,
	opts ModerationServiceOptions,
	log *zap.Logger,
) *ModerationService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &ModerationService{
		store:   store,
		workers: workers,
		metrics: metrics,
		opts:    opts,
		log:     log,
	}
	s.moderator.Store(moderator)
	return s
}

// Moderator 返回当前的审核器
func (s *ModerationService) Moderator() *moderation.Moderator {
	return s.moderator.Load()
}

// SetModerator 原子替换审核器
func (s *ModerationService) SetModerator(m *moderation.Moderator) {
	s.moderator.Store(m)
}

// Check 审核内容但不保存
func (s *ModerationService) Check(ctx context.Context, in ModerateInput) (moderation.ModerationResult, error) {
	if err := validateInput(in); err != nil {
		return moderation.ModerationResult{}, err
	}
	return s.moderate(ctx, s.Moderator(), in), nil
}

// Submit 审核并保存一条提交
//
// 被拒绝的内容同样会保存，调用方根据返回结果中的 Action 决定如何响应。
func (s *ModerationService) Submit(ctx context.Context, in ModerateInput) (*domain.Submission, moderation.ModerationResult, error) {
	if err := validateInput(in); err != nil {
		return nil, moderation.ModerationResult{}, err
	}
	m := s.Moderator()
	if err := checkLength(in.Content, m.Config()); err != nil {
		return nil, moderation.ModerationResult{}, err
	}
	if in.ContentType == "" {
		in.ContentType = domain.ContentWiki
	}

	result := s.moderate(ctx, m, in)
	status := result.Action.SubmissionStatus()

	sub := &domain.Submission{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		ContentType:     in.ContentType,
		Title:           in.Title,
		Content:         in.Content,
		Status:          status,
		Action:          string(result.Action),
		Reason:          result.Reason,
		SpamScore:       result.SpamScore,
		ReputationScore: result.Reputation.Score,
		CreatedAt:       s.opts.Now().UTC(),
	}
	if err := s.store.SaveSubmission(ctx, sub); err != nil {
		s.recordError("store", "submission")
		return nil, result, fmt.Errorf("failed to save submission: %w", err)
	}

	m.Reputation().RecordSubmissionOutcome(ctx, in.UserID, status)
	if s.metrics != nil {
		s.metrics.RecordSubmissionStored(string(status))
	}
	if s.opts.Notifier != nil {
		s.opts.Notifier.NotifySubmission(sub, result)
	}

	s.log.Info("submission stored",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.String("status", string(status)),
		zap.Int("spam_score", sub.SpamScore),
	)
	return sub, result, nil
}

// BatchModerate 并发审核多条内容，结果顺序与输入一致
//
// 整个批次使用同一个审核器快照。任一条目校验失败时整批拒绝。
func (s *ModerationService) BatchModerate(ctx context.Context, items []ModerateInput) ([]moderation.ModerationResult, error) {
	if len(items) == 0 {
		return nil, ErrBatchEmpty
	}
	if s.opts.BatchMaxItems > 0 && len(items) > s.opts.BatchMaxItems {
		return nil, fmt.Errorf("%w: %d items (max %d)", ErrBatchTooLarge, len(items), s.opts.BatchMaxItems)
	}
	for i, item := range items {
		if err := validateInput(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	m := s.Moderator()
	results := make([]moderation.ModerationResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = s.moderate(ctx, m, item)
		}
		if s.workers == nil {
			task()
			continue
		}
		if err := s.workers.Submit(ctx, task); err != nil {
			wg.Done()
			return nil, fmt.Errorf("failed to schedule batch item %d: %w", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Spam 只执行垃圾内容检测
func (s *ModerationService) Spam(content string) moderation.SpamAnalysis {
	return s.Moderator().SpamDetector().Detect(content)
}

// Filter 只执行内容过滤
func (s *ModerationService) Filter(content string) moderation.FilterResult {
	return s.Moderator().ContentFilter().Filter(content)
}

// Validate 只返回内容是否合规
func (s *ModerationService) Validate(content string) moderation.ValidationResult {
	return s.Moderator().ContentFilter().Validate(content)
}

// Mask 脱敏个人信息
func (s *ModerationService) Mask(content string) string {
	return moderation.MaskPersonalInfo(content)
}

// Reputation 查询用户声誉
func (s *ModerationService) Reputation(ctx context.Context, userID string) (ReputationReport, error) {
	if strings.TrimSpace(userID) == "" {
		return ReputationReport{}, ErrUserIDRequired
	}
	svc := s.Moderator().Reputation()
	rep := svc.GetUserReputation(ctx, userID)
	if s.metrics != nil && rep.Fallback != moderation.FallbackNone {
		s.metrics.RecordReputationFallback(rep.Fallback)
	}
	return ReputationReport{
		UserReputation: rep,
		Priority:       svc.ModerationPriority(rep),
	}, nil
}

// GetSubmission 获取单条提交
func (s *ModerationService) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// ListUserSubmissions 列出用户最近的提交
func (s *ModerationService) ListUserSubmissions(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	return s.store.ListSubmissionsByUser(ctx, userID, limit)
}

func (s *ModerationService) moderate(ctx context.Context, m *moderation.Moderator, in ModerateInput) moderation.ModerationResult {
	start := time.Now()
	result := m.ModerateContent(ctx, in.Content, in.UserID, moderation.Options{
		Title:       in.Title,
		ContentType: in.ContentType,
	})
	if s.metrics != nil {
		s.metrics.RecordModeration(result, time.Since(start))
	}
	return result
}

func (s *ModerationService) recordError(errorType, component string) {
	if s.metrics != nil {
		s.metrics.RecordError(errorType, component)
	}
}

func validateInput(in ModerateInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return ErrUserIDRequired
	}
	if err := domain.ValidateContentType(in.ContentType); err != nil {
		return err
	}
	return domain.ValidateTitle(in.Title)
}

// checkLength 按字符数检查正文长度，MaxContentLength 为 0 表示不限制
func checkLength(content string, cfg moderation.Config) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < cfg.MinContentLength {
		return fmt.Errorf("%w: %d characters (min %d)", ErrContentTooShort, n, cfg.MinContentLength)
	}
	if cfg.MaxContentLength > 0 && n > cfg.MaxContentLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrContentTooLong, n, cfg.MaxContentLength)
	}
	return nil
}
