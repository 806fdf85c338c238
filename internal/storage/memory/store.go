package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/storage"
)

// Store 使用内存保存账户与提交记录，主要用于开发验证。
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*domain.Account
	submissions map[string]*domain.Submission
	byUser      map[string][]string // userID -> submissionIDs（按写入顺序）
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*domain.Account),
		submissions: make(map[string]*domain.Submission),
		byUser:      make(map[string][]string),
	}
}

// CreateAccount 保存账户，ID 已存在时返回 storage.ErrAccountExists。
func (s *Store) CreateAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return storage.ErrAccountExists
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

// GetAccount 根据 ID 获取账户。
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

// SaveSubmission 保存或更新提交记录。
func (s *Store) SaveSubmission(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.submissions[sub.ID]; !exists {
		s.byUser[sub.UserID] = append(s.byUser[sub.UserID], sub.ID)
	}
	clone := *sub
	s.submissions[sub.ID] = &clone
	return nil
}

// GetSubmission 根据 ID 获取提交记录。
func (s *Store) GetSubmission(_ context.Context, id string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	clone := *sub
	return &clone, nil
}

// ListSubmissionsByUser 按创建时间倒序返回用户的提交记录，limit <= 0 表示不限制。
func (s *Store) ListSubmissionsByUser(_ context.Context, userID string, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	subs := s.userSubmissionsLocked(userID)
	s.mu.RUnlock()

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

// GetSubmissionStats 返回用户提交的聚合统计。
func (s *Store) GetSubmissionStats(ctx context.Context, userID string, since time.Time) (*domain.SubmissionStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	subs := s.userSubmissionsLocked(userID)
	s.mu.RUnlock()

	stats := domain.SummarizeSubmissions(subs, since)
	return &stats, nil
}

func (s *Store) userSubmissionsLocked(userID string) []domain.Submission {
	ids := s.byUser[userID]
	out := make([]domain.Submission, 0, len(ids))
	for _, id := range ids {
		if sub, ok := s.submissions[id]; ok {
			out = append(out, *sub)
		}
	}
	return out
}

// Health 内存存储始终可用。
func (s *Store) Health() error {
	return nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}
