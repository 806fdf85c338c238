package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultReputationTimeout 声誉查询的默认超时
const DefaultReputationTimeout = 2 * time.Second

// ModeratorOptions 审核器选项
type ModeratorOptions struct {
	ReputationTimeout time.Duration
}

// Moderator 组合垃圾检测、内容过滤与用户声誉，输出唯一的审核决策
//
// Moderator 创建后不可变，可被多个 goroutine 并发使用。
type Moderator struct {
	cfg        Config
	spam       *SpamDetector
	filter     *ContentFilter
	reputation *ReputationService
	timeout    time.Duration
	log        *zap.Logger
}

// NewModerator 校验配置并创建审核器
func NewModerator(cfg Config, reputation *ReputationService, opts ModeratorOptions, log *zap.Logger) (*Moderator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if reputation == nil {
		reputation = NewReputationService(nil, cfg, ReputationOptions{}, log)
	}
	if opts.ReputationTimeout <= 0 {
		opts.ReputationTimeout = DefaultReputationTimeout
	}

	return &Moderator{
		cfg:        cfg.Clone(),
		spam:       NewSpamDetector(cfg, log),
		filter:     NewContentFilter(cfg, log),
		reputation: reputation,
		timeout:    opts.ReputationTimeout,
		log:        log,
	}, nil
}

// Config 返回审核器使用的配置副本
func (m *Moderator) Config() Config {
	return m.cfg.Clone()
}

// SpamDetector 返回审核器内部的垃圾检测器
func (m *Moderator) SpamDetector() *SpamDetector {
	return m.spam
}

// ContentFilter 返回审核器内部的内容过滤器
func (m *Moderator) ContentFilter() *ContentFilter {
	return m.filter
}

// Reputation 返回审核器使用的声誉服务
func (m *Moderator) Reputation() *ReputationService {
	return m.reputation
}

// ModerateContent 审核一条内容
//
// 三项检查总是全部执行；声誉查询与垃圾检测并行，内容过滤在当前 goroutine 中完成。
func (m *Moderator) ModerateContent(ctx context.Context, content, userID string, opts Options) ModerationResult {
	text := content
	if opts.Title != "" {
		text = opts.Title + "\n\n" + content
	}

	var (
		wg     sync.WaitGroup
		rep    UserReputation
		spam   SpamAnalysis
		filter FilterResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rep = m.lookupReputation(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		spam = m.spam.Detect(text)
	}()
	filter = m.filter.Filter(text)
	wg.Wait()

	result := decide(spam, filter, rep)
	result.ContentType = opts.ContentType

	m.log.Debug("content moderated",
		zap.String("user_id", userID),
		zap.String("action", string(result.Action)),
		zap.Int("spam_score", result.SpamScore),
		zap.Int("violations", len(result.FilterViolations)),
		zap.Float64("reputation", rep.Score),
	)
	return result
}

// lookupReputation 在超时或调用方取消时退回默认声誉
func (m *Moderator) lookupReputation(ctx context.Context, userID string) UserReputation {
	lctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan UserReputation, 1)
	go func() {
		done <- m.reputation.GetUserReputation(lctx, userID)
	}()

	select {
	case rep := <-done:
		return rep
	case <-lctx.Done():
		select {
		case rep := <-done:
			return rep
		default:
		}
		return m.reputation.fallback(userID, FallbackTimeout, lctx.Err())
	}
}

// decide 按固定优先级给出决策：reject > flag > approve > monitor
func decide(spam SpamAnalysis, filter FilterResult, rep UserReputation) ModerationResult {
	result := ModerationResult{
		SpamScore:        spam.Score,
		SpamReasons:      spam.Reasons,
		FilterViolations: filter.Violations,
		FilteredContent:  filter.FilteredContent,
		Reputation: ReputationSummary{
			Score:               rep.Score,
			Level:               rep.RiskLevel,
			CanAutoApprove:      rep.IsTrusted,
			RequiresExtraReview: rep.IsSuspicious,
			Fallback:            rep.Fallback,
		},
	}

	switch {
	case spam.ShouldAutoReject:
		result.Action = ActionReject
		result.Reason = fmt.Sprintf("Spam detected (score: %d): %s", spam.Score, strings.Join(spam.Reasons, ", "))
	case !filter.Passed:
		msgs := make([]string, 0, len(filter.Violations))
		for _, v := range filter.Violations {
			msgs = append(msgs, v.Message)
		}
		result.Action = ActionReject
		result.Reason = "Content policy violations: " + strings.Join(msgs, ", ")
	case spam.RequiresManualReview || rep.IsSuspicious:
		result.Action = ActionFlag
		result.NeedsReview = true
		if spam.RequiresManualReview {
			result.Reason = fmt.Sprintf("Requires manual review (spam score: %d)", spam.Score)
		} else {
			result.Reason = "User has suspicious reputation"
		}
	case rep.RiskLevel == RiskHigh:
		result.Action = ActionFlag
		result.NeedsReview = true
		result.Reason = "High risk user"
	case rep.IsTrusted && spam.ShouldAutoApprove && filter.Passed:
		result.Action = ActionApprove
	default:
		result.Action = ActionMonitor
	}
	return result
}
