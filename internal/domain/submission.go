package domain

import (
	"errors"
	"time"
)

// ErrSubmissionNotFound 提交记录不存在
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionStatus 提交记录的审核状态
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionFlagged  SubmissionStatus = "flagged"
)

// Valid 判断状态是否合法
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected, SubmissionFlagged:
		return true
	}
	return false
}

// ContentType 被审核内容的来源类型
type ContentType string

const (
	ContentWiki    ContentType = "wiki"
	ContentComment ContentType = "comment"
	ContentUser    ContentType = "user"
	ContentPerson  ContentType = "person"
)

// Valid 判断内容类型是否合法（空值视为合法，表示未指定）
func (t ContentType) Valid() bool {
	switch t {
	case "", ContentWiki, ContentComment, ContentUser, ContentPerson:
		return true
	}
	return false
}

// Submission 用户的一次内容提交（维基编辑、评论等）及其审核结果
type Submission struct {
	ID              string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string           `json:"userId" gorm:"type:varchar(64);index;not null"`
	ContentType     ContentType      `json:"contentType" gorm:"type:varchar(20)"`
	Title           string           `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content         string           `json:"content" gorm:"type:text"`
	Status          SubmissionStatus `json:"status" gorm:"type:varchar(20);index"`
	Action          string           `json:"action" gorm:"type:varchar(20)"`
	Reason          string           `json:"reason,omitempty" gorm:"type:text"`
	SpamScore       int              `json:"spamScore"`
	ReputationScore float64          `json:"reputationScore"`
	CreatedAt       time.Time        `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (Submission) TableName() string {
	return "submissions"
}

// SubmissionStats 用户历史提交的聚合统计
type SubmissionStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Flagged  int `json:"flagged"`
	Pending  int `json:"pending"`
	Recent   int `json:"recent"` // since 之后的提交数
}

// SummarizeSubmissions 从提交列表计算聚合统计
//
// 参数:
//   - subs: 同一用户的提交列表
//   - since: 统计近期活跃度的起始时间（含）
func SummarizeSubmissions(subs []Submission, since time.Time) SubmissionStats {
	var stats SubmissionStats
	for _, s := range subs {
		stats.Total++
		switch s.Status {
		case SubmissionApproved:
			stats.Approved++
		case SubmissionRejected:
			stats.Rejected++
		case SubmissionFlagged:
			stats.Flagged++
		default:
			stats.Pending++
		}
		if !s.CreatedAt.Before(since) {
			stats.Recent++
		}
	}
	return stats
}
