package moderation

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 审核配置不合法
var ErrInvalidConfig = errors.New("invalid moderation config")

// Config 审核流水线的阈值与词表配置
//
// Config 以值的形式注入 SpamDetector、ContentFilter、ReputationService 和 Moderator，
// 运行期间只读。需要调整时构造新的 Config 并重建 Moderator。
type Config struct {
	// 垃圾分数阈值（0-100）
	AutoRejectThreshold   int `json:"autoRejectThreshold" mapstructure:"auto_reject_threshold"`
	ManualReviewThreshold int `json:"manualReviewThreshold" mapstructure:"manual_review_threshold"`
	ApproveThreshold      int `json:"approveThreshold" mapstructure:"approve_threshold"`

	// 链接限制
	MaxLinks          int `json:"maxLinks" mapstructure:"max_links"`
	MaxShortenedLinks int `json:"maxShortenedLinks" mapstructure:"max_shortened_links"`

	// 内容形态限制
	MaxCapsRatio          float64 `json:"maxCapsRatio" mapstructure:"max_caps_ratio"`
	MaxRepeatedCharacters int     `json:"maxRepeatedCharacters" mapstructure:"max_repeated_characters"`
	MaxRepeatedWords      int     `json:"maxRepeatedWords" mapstructure:"max_repeated_words"`
	MinContentLength      int     `json:"minContentLength" mapstructure:"min_content_length"`
	MaxContentLength      int     `json:"maxContentLength" mapstructure:"max_content_length"`

	// 词表与正则
	SuspiciousDomains    []string `json:"suspiciousDomains" mapstructure:"suspicious_domains"`
	URLShortenerDomains  []string `json:"urlShortenerDomains" mapstructure:"url_shortener_domains"`
	SpamKeywords         []string `json:"spamKeywords" mapstructure:"spam_keywords"`
	ProfanityKeywords    []string `json:"profanityKeywords" mapstructure:"profanity_keywords"`
	HateSpeechPatterns   []string `json:"hateSpeechPatterns" mapstructure:"hate_speech_patterns"`
	PersonalInfoPatterns []string `json:"personalInfoPatterns" mapstructure:"personal_info_patterns"`

	// 声誉阈值：通过率（0-1）与声誉分数（0-100）
	TrustedUserScore      float64 `json:"trustedUserScore" mapstructure:"trusted_user_score"`
	SuspiciousUserScore   float64 `json:"suspiciousUserScore" mapstructure:"suspicious_user_score"`
	AutoApproveReputation float64 `json:"autoApproveReputation" mapstructure:"auto_approve_reputation"`
	AutoFlagReputation    float64 `json:"autoFlagReputation" mapstructure:"auto_flag_reputation"`
}

// 默认的个人信息正则：邮箱、两种电话格式、两种卡号/账号分组
const (
	EmailPattern         = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`
	PhonePattern         = `\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`
	IntlPhonePattern     = `(?:\+\d{1,3}\s?)?\(\d{2,4}\)\s?\d{3}[-.\s]?\d{4}`
	CardNumberPattern    = `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`
	AccountNumberPattern = `\b\d{4}[-\s]?\d{6}[-\s]?\d{5}\b`
)

// DefaultConfig 返回一份新的默认配置
func DefaultConfig() Config {
	return Config{
		AutoRejectThreshold:   80,
		ManualReviewThreshold: 50,
		ApproveThreshold:      20,

		MaxLinks:          5,
		MaxShortenedLinks: 2,

		MaxCapsRatio:          0.7,
		MaxRepeatedCharacters: 10,
		MaxRepeatedWords:      5,
		MinContentLength:      10,
		MaxContentLength:      50000,

		SuspiciousDomains: []string{
			"bit.ly", "tinyurl.com", ".tk", ".ml", ".ga", ".cf", ".gq",
			"free-money", "casino-online",
		},
		URLShortenerDomains: []string{
			"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
			"is.gd", "buff.ly", "adf.ly", "cutt.ly", "rebrand.ly",
		},
		SpamKeywords: []string{
			"viagra", "cialis", "casino", "lottery", "free", "free money",
			"click here", "buy now", "act now", "limited time offer", "winner",
			"prize", "earn money", "work from home", "make money fast",
			"crypto giveaway", "no credit check", "100% free",
		},
		ProfanityKeywords:  []string{},
		HateSpeechPatterns: []string{},
		PersonalInfoPatterns: []string{
			EmailPattern,
			PhonePattern,
			IntlPhonePattern,
			CardNumberPattern,
			AccountNumberPattern,
		},

		TrustedUserScore:      0.8,
		SuspiciousUserScore:   0.3,
		AutoApproveReputation: 80,
		AutoFlagReputation:    30,
	}
}

// Clone 返回深拷贝，切片不与原配置共享
func (c Config) Clone() Config {
	out := c
	out.SuspiciousDomains = cloneStrings(c.SuspiciousDomains)
	out.URLShortenerDomains = cloneStrings(c.URLShortenerDomains)
	out.SpamKeywords = cloneStrings(c.SpamKeywords)
	out.ProfanityKeywords = cloneStrings(c.ProfanityKeywords)
	out.HateSpeechPatterns = cloneStrings(c.HateSpeechPatterns)
	out.PersonalInfoPatterns = cloneStrings(c.PersonalInfoPatterns)
	return out
}

// Validate 校验阈值之间的一致性
//
// 必须满足 0 ≤ ApproveThreshold ≤ ManualReviewThreshold ≤ AutoRejectThreshold ≤ 100。
func (c Config) Validate() error {
	if !inRange(float64(c.ApproveThreshold), 0, 100) ||
		!inRange(float64(c.ManualReviewThreshold), 0, 100) ||
		!inRange(float64(c.AutoRejectThreshold), 0, 100) {
		return fmt.Errorf("%w: spam thresholds must be within [0,100]", ErrInvalidConfig)
	}
	if c.ApproveThreshold > c.ManualReviewThreshold || c.ManualReviewThreshold > c.AutoRejectThreshold {
		return fmt.Errorf("%w: require approveThreshold <= manualReviewThreshold <= autoRejectThreshold (got %d, %d, %d)",
			ErrInvalidConfig, c.ApproveThreshold, c.ManualReviewThreshold, c.AutoRejectThreshold)
	}
	if c.MaxLinks < 0 || c.MaxShortenedLinks < 0 {
		return fmt.Errorf("%w: link limits must not be negative", ErrInvalidConfig)
	}
	if !inRange(c.MaxCapsRatio, 0, 1) {
		return fmt.Errorf("%w: maxCapsRatio must be within [0,1]", ErrInvalidConfig)
	}
	if c.MaxRepeatedCharacters < 2 || c.MaxRepeatedWords < 2 {
		return fmt.Errorf("%w: repetition limits must be at least 2", ErrInvalidConfig)
	}
	if c.MinContentLength < 0 || (c.MaxContentLength > 0 && c.MinContentLength > c.MaxContentLength) {
		return fmt.Errorf("%w: content length bounds are inconsistent", ErrInvalidConfig)
	}
	if !inRange(c.TrustedUserScore, 0, 1) || !inRange(c.SuspiciousUserScore, 0, 1) {
		return fmt.Errorf("%w: approval-rate cutoffs must be within [0,1]", ErrInvalidConfig)
	}
	if !inRange(c.AutoApproveReputation, 0, 100) || !inRange(c.AutoFlagReputation, 0, 100) {
		return fmt.Errorf("%w: reputation cutoffs must be within [0,100]", ErrInvalidConfig)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
