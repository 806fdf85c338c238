package moderation

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// 命中内容在违规记录中最多保留的字符数
const matchedContentLimit = 20

// ContentFilter 内容策略过滤器
//
// 负责脏话、仇恨言论、个人信息与屏蔽域名四类检查，并输出按白名单净化后的 HTML。
type ContentFilter struct {
	cfg        Config
	profanity  *keywordMatcher
	hateSpeech []*regexp.Regexp
	personal   []*regexp.Regexp
	sanitizer  *bluemonday.Policy
	log        *zap.Logger
}

// NewContentFilter 创建内容过滤器，无法编译的正则记录警告后跳过
func NewContentFilter(cfg Config, log *zap.Logger) *ContentFilter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentFilter{
		cfg:        cfg.Clone(),
		profanity:  newKeywordMatcher(cfg.ProfanityKeywords),
		hateSpeech: compilePatterns(cfg.HateSpeechPatterns, "hate_speech", log),
		personal:   compilePatterns(cfg.PersonalInfoPatterns, "personal_info", log),
		sanitizer:  newSanitizer(),
		log:        log,
	}
}

// newSanitizer 构造白名单策略：基础排版标签与带 href/title/target 的链接
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "i", "u", "strong", "em", "a", "ul", "ol", "li")
	p.AllowAttrs("href", "title", "target").OnElements("a")
	p.AllowStandardURLs()
	return p
}

func compilePatterns(patterns []string, kind string, log *zap.Logger) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			log.Warn("skip invalid moderation pattern",
				zap.String("kind", kind),
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			continue
		}
		out = append(out, re)
	}
	return out
}

// Filter 检查内容并返回违规列表与净化后的内容
func (f *ContentFilter) Filter(content string) FilterResult {
	violations := make([]FilterViolation, 0)

	for _, word := range f.profanity.match(content) {
		violations = append(violations, FilterViolation{
			Type:           ViolationProfanity,
			Severity:       SeverityMedium,
			Message:        "Contains inappropriate language",
			MatchedContent: word,
		})
	}

	for _, re := range f.hateSpeech {
		if m := re.FindString(content); m != "" {
			violations = append(violations, FilterViolation{
				Type:           ViolationHateSpeech,
				Severity:       SeverityHigh,
				Message:        "Contains hate speech",
				MatchedContent: truncateMatch(m),
			})
		}
	}

	for _, re := range f.personal {
		if m := re.FindString(content); m != "" {
			violations = append(violations, FilterViolation{
				Type:           ViolationPersonalInfo,
				Severity:       SeverityHigh,
				Message:        "Contains personal information",
				MatchedContent: truncateMatch(m),
			})
		}
	}

	for _, u := range extractURLs(content) {
		lower := strings.ToLower(u)
		for _, d := range f.cfg.SuspiciousDomains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" && strings.Contains(lower, d) {
				violations = append(violations, FilterViolation{
					Type:           ViolationBlockedDomain,
					Severity:       SeverityHigh,
					Message:        "Contains blocked domain: " + d,
					MatchedContent: truncateMatch(u),
				})
				break
			}
		}
	}

	if len(violations) > 0 {
		f.log.Debug("content filter found violations", zap.Int("count", len(violations)))
	}

	return FilterResult{
		Passed:          len(violations) == 0,
		Violations:      violations,
		FilteredContent: f.Sanitize(content),
	}
}

// Sanitize 按白名单净化 HTML，重复调用结果不变
func (f *ContentFilter) Sanitize(content string) string {
	if content == "" {
		return ""
	}
	return f.sanitizer.Sanitize(content)
}

// Validate 返回通过与否及违规说明
func (f *ContentFilter) Validate(content string) ValidationResult {
	res := f.Filter(content)
	errs := make([]string, 0, len(res.Violations))
	for _, v := range res.Violations {
		errs = append(errs, v.Message)
	}
	return ValidationResult{Valid: res.Passed, Errors: errs}
}

func truncateMatch(s string) string {
	r := []rune(s)
	if len(r) <= matchedContentLimit {
		return s
	}
	return string(r[:matchedContentLimit]) + "..."
}
