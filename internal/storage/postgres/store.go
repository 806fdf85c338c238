package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"campuswiki/backend/internal/config"
	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/storage"
)

// Store 基于 GORM 的 SQL 存储实现，支持 PostgreSQL 与 MySQL
type Store struct {
	db     *gorm.DB
	client *Client
}

// NewStore 使用 pgx 连接池创建 PostgreSQL 存储实例
//
// GORM 通过 pgx 的 database/sql 适配层复用同一个连接池，Close 时一并关闭。
func NewStore(client *Client) (*Store, error) {
	sqlDB := stdlib.OpenDBFromPool(client.Pool())
	store, err := NewStoreWithDialector(postgres.New(postgres.Config{Conn: sqlDB}))
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	// 空闲连接由 pgxpool 管理
	sqlDB.SetMaxIdleConns(0)
	store.client = client
	return store, nil
}

// NewMySQLStore 创建 MySQL 存储实例，连接池参数取自配置
func NewMySQLStore(cfg config.DatabaseConfig) (*Store, error) {
	store, err := NewStoreWithDialector(mysql.Open(cfg.DSN))
	if err != nil {
		return nil, err
	}
	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return store, nil
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Account{},
		&domain.Submission{},
	)
}

// ========== Account Repository ==========

// CreateAccount 保存账户，主键冲突时返回 storage.ErrAccountExists
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := s.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrAccountExists
	}
	return err
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ========== Submission Repository ==========

// SaveSubmission 保存或更新提交记录
func (s *Store) SaveSubmission(ctx context.Context, sub *domain.Submission) error {
	return s.db.WithContext(ctx).Save(sub).Error
}

// GetSubmission 根据 ID 获取提交记录
func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	var sub domain.Submission
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListSubmissionsByUser 按创建时间倒序返回用户的提交记录
func (s *Store) ListSubmissionsByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	var subs []domain.Submission
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// GetSubmissionStats 按状态分组统计用户提交，并统计 since 之后的提交数
func (s *Store) GetSubmissionStats(ctx context.Context, userID string, since time.Time) (*domain.SubmissionStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var stats domain.SubmissionStats
	for _, r := range rows {
		n := int(r.Count)
		stats.Total += n
		switch domain.SubmissionStatus(r.Status) {
		case domain.SubmissionApproved:
			stats.Approved += n
		case domain.SubmissionRejected:
			stats.Rejected += n
		case domain.SubmissionFlagged:
			stats.Flagged += n
		default:
			stats.Pending += n
		}
	}

	var recent int64
	err = s.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&recent).Error
	if err != nil {
		return nil, err
	}
	stats.Recent = int(recent)

	return &stats, nil
}

// ========== 工具方法 ==========

// Health 检查数据库连接
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if s.client != nil {
		s.client.Close()
	}
	return err
}
