package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/storage"
)

// AccountService 维护声誉计算使用的账户快照
type AccountService struct {
	repo storage.AccountRepository
	now  func() time.Time
	log  *zap.Logger
}

// NewAccountService 创建账户服务
func NewAccountService(repo storage.AccountRepository, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		repo: repo,
		now:  time.Now,
		log:  log,
	}
}

// CreateAccountInput 定义创建账户快照所需的输入。
type CreateAccountInput struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"displayName"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"` // 为空时使用当前时间
}

// Create 创建账户快照
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	id := strings.TrimSpace(input.ID)
	if err := domain.ValidateAccountID(id); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.DisplayName)
	if err := domain.ValidateDisplayName(name); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	createdAt := now
	if input.CreatedAt != nil {
		if input.CreatedAt.After(now) {
			return nil, domain.ErrAccountCreatedInFuture
		}
		createdAt = input.CreatedAt.UTC()
	}

	account := &domain.Account{
		ID:            id,
		DisplayName:   name,
		EmailVerified: input.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account registered", zap.String("account_id", id), zap.Bool("email_verified", input.EmailVerified))
	return account, nil
}

// Get 获取账户快照
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.repo.GetAccount(ctx, id)
}
