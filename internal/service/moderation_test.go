package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/monitoring"
	"campuswiki/backend/internal/pool"
	"campuswiki/backend/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	cleanContent    = "The campus library opens at eight on weekdays and closes late during exams."
	personalContent = "Contact me at john.doe@example.com for the notes."
)

type testEnv struct {
	store   *memory.Store
	metrics *monitoring.Metrics
	svc     *ModerationService
	config  *ConfigService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	cfg := moderation.DefaultConfig()
	rep := moderation.NewReputationService(store, cfg, moderation.ReputationOptions{
		Enabled: true,
		Now:     func() time.Time { return testNow },
	}, nil)
	m, err := moderation.NewModerator(cfg, rep, moderation.ModeratorOptions{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	workers := pool.NewWorkerPool(4, 16, nil)
	workers.Start(ctx)
	t.Cleanup(func() {
		workers.Stop()
		cancel()
	})

	metrics := monitoring.NewMetrics()
	svc := NewModerationService(m, store, workers, metrics, ModerationServiceOptions{
		BatchMaxItems: 5,
		Now:           func() time.Time { return testNow },
	}, nil)

	return &testEnv{
		store:   store,
		metrics: metrics,
		svc:     svc,
		config:  NewConfigService(svc, cfg, moderation.ModeratorOptions{}, metrics, nil),
	}
}

// seedTrustedUser 创建账龄 60 天、邮箱已验证且历史提交全部通过的用户
func (e *testEnv) seedTrustedUser(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.store.CreateAccount(ctx, &domain.Account{
		ID:            id,
		EmailVerified: true,
		CreatedAt:     testNow.AddDate(0, 0, -60),
	}))
	for i := 0; i < 4; i++ {
		require.NoError(t, e.store.SaveSubmission(ctx, &domain.Submission{
			ID:        fmt.Sprintf("%s-seed-%d", id, i),
			UserID:    id,
			Status:    domain.SubmissionApproved,
			CreatedAt: testNow.AddDate(0, 0, -20+i),
		}))
	}
}

func TestModerationService_Check(t *testing.T) {
	t.Run("未知用户的正常内容进入监控", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.svc.Check(context.Background(), ModerateInput{UserID: "ghost", Content: cleanContent})

		require.NoError(t, err)
		assert.Equal(t, moderation.ActionMonitor, result.Action)
		assert.Equal(t, moderation.FallbackNotFound, result.Reputation.Fallback)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ReputationFallbacks.WithLabelValues("not_found")))
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ModerationDecisions.WithLabelValues("monitor", "unknown")))
	})

	t.Run("可信用户的正常内容自动通过", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTrustedUser(t, "alice")

		result, err := env.svc.Check(context.Background(), ModerateInput{
			UserID:      "alice",
			Title:       "Library hours",
			Content:     cleanContent,
			ContentType: domain.ContentWiki,
		})

		require.NoError(t, err)
		assert.Equal(t, moderation.ActionApprove, result.Action)
		assert.True(t, result.Reputation.CanAutoApprove)
		assert.Equal(t, domain.ContentWiki, result.ContentType)
	})

	t.Run("缺少用户ID", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Check(context.Background(), ModerateInput{Content: cleanContent})

		assert.ErrorIs(t, err, ErrUserIDRequired)
	})

	t.Run("无效内容类型", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Check(context.Background(), ModerateInput{UserID: "u", Content: cleanContent, ContentType: "video"})

		assert.ErrorIs(t, err, domain.ErrInvalidContentType)
	})
}

func TestModerationService_Submit(t *testing.T) {
	t.Run("违规内容被拒绝并保存", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		sub, result, err := env.svc.Submit(ctx, ModerateInput{UserID: "bob", Content: personalContent, ContentType: domain.ContentComment})

		require.NoError(t, err)
		assert.Equal(t, moderation.ActionReject, result.Action)
		assert.Equal(t, "Content policy violations: Contains personal information", result.Reason)
		assert.Equal(t, domain.SubmissionRejected, sub.Status)
		assert.Equal(t, testNow, sub.CreatedAt)

		stored, err := env.svc.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", stored.UserID)
		assert.Equal(t, domain.ContentComment, stored.ContentType)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SubmissionsStored.WithLabelValues("rejected")))
	})

	t.Run("可信用户提交通过且计入历史", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTrustedUser(t, "alice")
		ctx := context.Background()

		sub, result, err := env.svc.Submit(ctx, ModerateInput{UserID: "alice", Content: cleanContent})

		require.NoError(t, err)
		assert.Equal(t, moderation.ActionApprove, result.Action)
		assert.Equal(t, domain.SubmissionApproved, sub.Status)
		assert.Equal(t, domain.ContentWiki, sub.ContentType)

		subs, err := env.svc.ListUserSubmissions(ctx, "alice", 0)
		require.NoError(t, err)
		assert.Len(t, subs, 5)
		assert.Equal(t, sub.ID, subs[0].ID)
	})

	t.Run("内容过短", func(t *testing.T) {
		env := newTestEnv(t)

		_, _, err := env.svc.Submit(context.Background(), ModerateInput{UserID: "bob", Content: "  hi  "})

		assert.ErrorIs(t, err, ErrContentTooShort)
	})

	t.Run("内容过长", func(t *testing.T) {
		env := newTestEnv(t)
		cfg := env.config.Get()
		cfg.MaxContentLength = 20
		_, err := env.config.Update(cfg)
		require.NoError(t, err)

		_, _, err = env.svc.Submit(context.Background(), ModerateInput{UserID: "bob", Content: cleanContent})

		assert.ErrorIs(t, err, ErrContentTooLong)
	})

	t.Run("提交不存在", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.GetSubmission(context.Background(), "missing")

		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})
}

func TestModerationService_BatchModerate(t *testing.T) {
	t.Run("结果顺序与输入一致", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTrustedUser(t, "alice")

		results, err := env.svc.BatchModerate(context.Background(), []ModerateInput{
			{UserID: "alice", Content: cleanContent},
			{UserID: "bob", Content: personalContent},
			{UserID: "ghost", Content: cleanContent},
		})

		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, moderation.ActionApprove, results[0].Action)
		assert.Equal(t, moderation.ActionReject, results[1].Action)
		assert.Equal(t, moderation.ActionMonitor, results[2].Action)
	})

	t.Run("空批次", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.BatchModerate(context.Background(), nil)

		assert.ErrorIs(t, err, ErrBatchEmpty)
	})

	t.Run("超过上限", func(t *testing.T) {
		env := newTestEnv(t)
		items := make([]ModerateInput, 6)
		for i := range items {
			items[i] = ModerateInput{UserID: "u", Content: cleanContent}
		}

		_, err := env.svc.BatchModerate(context.Background(), items)

		assert.ErrorIs(t, err, ErrBatchTooLarge)
	})

	t.Run("单条无效时整批拒绝", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.BatchModerate(context.Background(), []ModerateInput{
			{UserID: "u", Content: cleanContent},
			{Content: cleanContent},
		})

		assert.ErrorIs(t, err, ErrUserIDRequired)
		assert.Contains(t, err.Error(), "item 1")
	})

	t.Run("无协程池时顺序执行", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewModerationService(env.svc.Moderator(), env.store, nil, nil, ModerationServiceOptions{}, nil)

		results, err := svc.BatchModerate(context.Background(), []ModerateInput{{UserID: "bob", Content: personalContent}})

		require.NoError(t, err)
		assert.Equal(t, moderation.ActionReject, results[0].Action)
	})
}

func TestModerationService_Utilities(t *testing.T) {
	env := newTestEnv(t)

	spam := env.svc.Spam("Click here to WIN the lottery, buy now!")
	assert.Greater(t, spam.Score, 0)
	assert.NotEmpty(t, spam.Reasons)

	filter := env.svc.Filter(personalContent)
	assert.False(t, filter.Passed)

	validation := env.svc.Validate(cleanContent)
	assert.True(t, validation.Valid)

	masked := env.svc.Mask(personalContent)
	assert.NotContains(t, masked, "john.doe@example.com")
}

func TestModerationService_Reputation(t *testing.T) {
	t.Run("可信用户优先级最低", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTrustedUser(t, "alice")

		report, err := env.svc.Reputation(context.Background(), "alice")

		require.NoError(t, err)
		assert.Equal(t, 100.0, report.Score)
		assert.True(t, report.IsTrusted)
		assert.Equal(t, 10, report.Priority)
	})

	t.Run("未知用户退回默认值", func(t *testing.T) {
		env := newTestEnv(t)

		report, err := env.svc.Reputation(context.Background(), "ghost")

		require.NoError(t, err)
		assert.Equal(t, 50.0, report.Score)
		assert.Equal(t, moderation.FallbackNotFound, report.Fallback)
		assert.Equal(t, 50, report.Priority)
	})

	t.Run("空用户ID", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Reputation(context.Background(), strings.Repeat(" ", 3))

		assert.ErrorIs(t, err, ErrUserIDRequired)
	})
}

type recordingNotifier struct {
	subs    []*domain.Submission
	actions []moderation.Action
}

func (n *recordingNotifier) NotifySubmission(sub *domain.Submission, result moderation.ModerationResult) {
	n.subs = append(n.subs, sub)
	n.actions = append(n.actions, result.Action)
}

func TestModerationService_SubmitNotifies(t *testing.T) {
	env := newTestEnv(t)
	notifier := &recordingNotifier{}
	env.svc.opts.Notifier = notifier

	sub, result, err := env.svc.Submit(context.Background(), ModerateInput{UserID: "user-1", Content: personalContent})
	require.NoError(t, err)

	require.Len(t, notifier.subs, 1)
	assert.Equal(t, sub.ID, notifier.subs[0].ID)
	assert.Equal(t, result.Action, notifier.actions[0])

	// 校验失败的提交不会通知
	_, _, err = env.svc.Submit(context.Background(), ModerateInput{UserID: "user-1", Content: "x"})
	require.Error(t, err)
	assert.Len(t, notifier.subs, 1)
}
