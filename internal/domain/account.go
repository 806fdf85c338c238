package domain

import (
	"errors"
	"time"
)

// ErrAccountNotFound 账户不存在
var ErrAccountNotFound = errors.New("account not found")

// Account 表示声誉计算所需的账户快照
//
// 账户本身由外部身份系统维护，这里只保存审核流水线关心的字段。
type Account struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DisplayName   string    `json:"displayName,omitempty" gorm:"type:varchar(100)"`
	EmailVerified bool      `json:"emailVerified" gorm:"default:false"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// AgeInDays 返回账户在 now 时刻的年龄（天，含小数）
func (a *Account) AgeInDays(now time.Time) float64 {
	if a.CreatedAt.IsZero() || now.Before(a.CreatedAt) {
		return 0
	}
	return now.Sub(a.CreatedAt).Hours() / 24
}
