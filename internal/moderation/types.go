package moderation

import "campuswiki/backend/internal/domain"

// Action 审核动作
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionFlag    Action = "flag"
	ActionMonitor Action = "monitor"
)

// SubmissionStatus 将审核动作映射为提交记录状态
//
// monitor 不是发布决策，对应待人工处理的 pending。
func (a Action) SubmissionStatus() domain.SubmissionStatus {
	switch a {
	case ActionApprove:
		return domain.SubmissionApproved
	case ActionReject:
		return domain.SubmissionRejected
	case ActionFlag:
		return domain.SubmissionFlagged
	default:
		return domain.SubmissionPending
	}
}

// Severity 违规或检测项的严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ViolationType 内容策略违规类型
type ViolationType string

const (
	ViolationProfanity     ViolationType = "profanity"
	ViolationHateSpeech    ViolationType = "hate_speech"
	ViolationPersonalInfo  ViolationType = "personal_info"
	ViolationBlockedDomain ViolationType = "blocked_domain"
)

// RiskLevel 基于声誉分数的三档风险
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FallbackReason 声誉退回默认值的原因
type FallbackReason string

const (
	FallbackNone         FallbackReason = ""
	FallbackDisabled     FallbackReason = "disabled"
	FallbackNotFound     FallbackReason = "not_found"
	FallbackLookupFailed FallbackReason = "lookup_failed"
	FallbackTimeout      FallbackReason = "timeout"
)

// ========== 垃圾内容检测 ==========

// LinkFindings 链接检查的证据
type LinkFindings struct {
	Total             int      `json:"total"`
	Shortened         int      `json:"shortened"`
	SuspiciousURLs    []string `json:"suspiciousUrls,omitempty"`
	TooMany           bool     `json:"tooMany"`
	TooManyShortened  bool     `json:"tooManyShortened"`
	HasSuspiciousHost bool     `json:"hasSuspiciousHost"`
}

// CapsFindings 大写比例检查的证据
type CapsFindings struct {
	Letters   int     `json:"letters"`
	Uppercase int     `json:"uppercase"`
	Ratio     float64 `json:"ratio"`
	Evaluated bool    `json:"evaluated"` // 字母数不超过 20 时不参与判断
	Shouting  bool    `json:"shouting"`
}

// RepetitionFindings 重复检查的证据
type RepetitionFindings struct {
	LongestRun     int    `json:"longestRun"`
	CharacterFlood bool   `json:"characterFlood"`
	RepeatedWord   string `json:"repeatedWord,omitempty"`
	RepeatedCount  int    `json:"repeatedCount"`
	WordFlood      bool   `json:"wordFlood"`
}

// KeywordFindings 关键词检查的证据
type KeywordFindings struct {
	Matched  []string `json:"matched,omitempty"`
	Score    int      `json:"score"`
	Severity Severity `json:"severity,omitempty"`
}

// MarkupFindings 可疑 HTML 检查的证据
type MarkupFindings struct {
	Issues []string `json:"issues,omitempty"`
}

// SpamDetails 各项检查的证据汇总
type SpamDetails struct {
	Links      LinkFindings       `json:"links"`
	Caps       CapsFindings       `json:"caps"`
	Repetition RepetitionFindings `json:"repetition"`
	Keywords   KeywordFindings    `json:"keywords"`
	Markup     MarkupFindings     `json:"markup"`
}

// SpamAnalysis 垃圾内容检测结果
type SpamAnalysis struct {
	Score                int         `json:"score"`
	Reasons              []string    `json:"reasons"`
	ShouldAutoReject     bool        `json:"shouldAutoReject"`
	ShouldAutoApprove    bool        `json:"shouldAutoApprove"`
	RequiresManualReview bool        `json:"requiresManualReview"`
	Details              SpamDetails `json:"details"`
}

// ========== 内容过滤 ==========

// FilterViolation 一条内容策略违规
type FilterViolation struct {
	Type           ViolationType `json:"type"`
	Severity       Severity      `json:"severity"`
	Message        string        `json:"message"`
	MatchedContent string        `json:"matchedContent,omitempty"`
}

// FilterResult 内容过滤结果
type FilterResult struct {
	Passed          bool              `json:"passed"`
	Violations      []FilterViolation `json:"violations"`
	FilteredContent string            `json:"filteredContent"`
}

// ValidationResult 只关心通过与否的精简结果
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ========== 用户声誉 ==========

// UserReputation 用户声誉视图，每次请求时重新计算
type UserReputation struct {
	UserID              string         `json:"userId"`
	Score               float64        `json:"score"`
	ApprovalRate        float64        `json:"approvalRate"`
	TotalSubmissions    int            `json:"totalSubmissions"`
	ApprovedSubmissions int            `json:"approvedSubmissions"`
	RejectedSubmissions int            `json:"rejectedSubmissions"`
	FlaggedSubmissions  int            `json:"flaggedSubmissions"`
	RecentSubmissions   int            `json:"recentSubmissions"`
	IsTrusted           bool           `json:"isTrusted"`
	IsSuspicious        bool           `json:"isSuspicious"`
	RiskLevel           RiskLevel      `json:"riskLevel"`
	Fallback            FallbackReason `json:"fallback,omitempty"`
}

// ReputationSummary 审核结果中携带的声誉摘要
type ReputationSummary struct {
	Score               float64        `json:"score"`
	Level               RiskLevel      `json:"level"`
	CanAutoApprove      bool           `json:"canAutoApprove"`
	RequiresExtraReview bool           `json:"requiresExtraReview"`
	Fallback            FallbackReason `json:"fallback,omitempty"`
}

// ========== 审核结果 ==========

// Options 单次审核的可选参数
type Options struct {
	Title       string             `json:"title,omitempty"`
	ContentType domain.ContentType `json:"contentType,omitempty"`
}

// ModerationResult 审核流水线的唯一输出，调用方据此持久化或处理
type ModerationResult struct {
	Action           Action             `json:"action"`
	Reason           string             `json:"reason,omitempty"`
	SpamScore        int                `json:"spamScore"`
	SpamReasons      []string           `json:"spamReasons"`
	FilterViolations []FilterViolation  `json:"filterViolations"`
	FilteredContent  string             `json:"filteredContent"`
	Reputation       ReputationSummary  `json:"reputation"`
	NeedsReview      bool               `json:"needsReview"`
	ContentType      domain.ContentType `json:"contentType,omitempty"`
}
