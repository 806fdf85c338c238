package storage

import (
	"context"
	"errors"
	"time"

	"campuswiki/backend/internal/domain"
)

var (
	// ErrAccountExists 账户已存在
	ErrAccountExists = errors.New("account already exists")
)

// AccountRepository 定义账户快照的存取操作。
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// SubmissionRepository 定义提交记录的存取操作。
type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, sub *domain.Submission) error
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error)
	GetSubmissionStats(ctx context.Context, userID string, since time.Time) (*domain.SubmissionStats, error)
}

// Store 定义完整的存储接口。
//
// Store 同时满足 moderation.HistoryStore，可直接作为声誉计算的数据源。
type Store interface {
	AccountRepository
	SubmissionRepository

	Close() error
	Health() error
}
