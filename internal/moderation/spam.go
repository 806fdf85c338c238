package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// 各项检查的加分
const (
	pointsTooManyLinks     = 20
	pointsTooManyShortened = 15
	pointsSuspiciousDomain = 30
	pointsExcessiveCaps    = 15
	pointsRepeatedChars    = 10
	pointsRepeatedWords    = 10
	pointsPerKeyword       = 10
	maxKeywordPoints       = 40
	pointsSuspiciousMarkup = 25

	// 字母数不超过该值时不做大写比例判断
	minLettersForCaps = 20
	// 参与重复统计的最短单词长度（不含）
	minRepeatedWordLen = 3
	// 关键词命中超过该数量时严重程度为 high
	highKeywordCount = 3
	// 标签与可见文本的最小比例 1:3
	minTextPerTag = 3
)

var (
	cssHidingRe     = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)
	zeroFontRe      = regexp.MustCompile(`(?i)font-size\s*:\s*0+(?:\.0+)?\s*(?:px|pt|em|rem|%)?\s*(?:[;"'}]|$)`)
	letterSpacingRe = regexp.MustCompile(`(?i)letter-spacing\s*:\s*(?:-\s*\d|\d{2,})`)
	eventHandlerRe  = regexp.MustCompile(`(?i)<[a-z][^>]*\son[a-z]+\s*=`)
)

// SpamDetector 基于规则的垃圾内容评分器
//
// 五项检查互相独立，分数累加后截断到 [0,100]。相同配置下对相同输入的结果确定。
type SpamDetector struct {
	cfg      Config
	keywords *keywordMatcher
	log      *zap.Logger
}

// NewSpamDetector 创建垃圾内容检测器
func NewSpamDetector(cfg Config, log *zap.Logger) *SpamDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &SpamDetector{
		cfg:      cfg.Clone(),
		keywords: newKeywordMatcher(cfg.SpamKeywords),
		log:      log,
	}
}

// Detect 对内容打分并给出处理建议
func (d *SpamDetector) Detect(content string) SpamAnalysis {
	var (
		score   int
		reasons = make([]string, 0)
		details SpamDetails
	)

	if strings.TrimSpace(content) != "" {
		add := func(points int, rs []string) {
			score += points
			reasons = append(reasons, rs...)
		}

		var (
			points int
			rs     []string
		)
		details.Links, points, rs = d.checkLinks(content)
		add(points, rs)
		details.Caps, points, rs = d.checkCaps(content)
		add(points, rs)
		details.Repetition, points, rs = d.checkRepetition(content)
		add(points, rs)
		details.Keywords, points, rs = d.checkKeywords(content)
		add(points, rs)
		details.Markup, points, rs = d.checkMarkup(content)
		add(points, rs)
	}

	score = clampScore(score)
	analysis := SpamAnalysis{
		Score:                score,
		Reasons:              reasons,
		ShouldAutoReject:     score >= d.cfg.AutoRejectThreshold,
		ShouldAutoApprove:    score <= d.cfg.ApproveThreshold,
		RequiresManualReview: score >= d.cfg.ManualReviewThreshold && score < d.cfg.AutoRejectThreshold,
		Details:              details,
	}

	if analysis.ShouldAutoReject {
		d.log.Warn("content exceeds spam auto-reject threshold",
			zap.Int("score", score),
			zap.Strings("reasons", reasons),
		)
	}
	return analysis
}

func (d *SpamDetector) checkLinks(content string) (LinkFindings, int, []string) {
	urls := extractURLs(content)
	f := LinkFindings{Total: len(urls)}
	var (
		points  int
		reasons []string
	)

	for _, u := range urls {
		host := urlHost(u)
		if matchesAnyHost(u, host, d.cfg.URLShortenerDomains) {
			f.Shortened++
		}
		if matchesAnyHost(u, host, d.cfg.SuspiciousDomains) {
			f.SuspiciousURLs = append(f.SuspiciousURLs, u)
		}
	}

	if f.Total > d.cfg.MaxLinks {
		f.TooMany = true
		points += pointsTooManyLinks
		reasons = append(reasons, fmt.Sprintf("Too many links (%d)", f.Total))
	}
	if f.Shortened > d.cfg.MaxShortenedLinks {
		f.TooManyShortened = true
		points += pointsTooManyShortened
		reasons = append(reasons, fmt.Sprintf("Too many shortened links (%d)", f.Shortened))
	}
	if len(f.SuspiciousURLs) > 0 {
		f.HasSuspiciousHost = true
		points += pointsSuspiciousDomain
		reasons = append(reasons, "Contains suspicious domains")
	}
	return f, points, reasons
}

func (d *SpamDetector) checkCaps(content string) (CapsFindings, int, []string) {
	var f CapsFindings
	for _, r := range stripMarkup(content) {
		if !unicode.IsLetter(r) {
			continue
		}
		f.Letters++
		if unicode.IsUpper(r) {
			f.Uppercase++
		}
	}
	if f.Letters <= minLettersForCaps {
		return f, 0, nil
	}

	f.Evaluated = true
	f.Ratio = float64(f.Uppercase) / float64(f.Letters)
	if f.Ratio <= d.cfg.MaxCapsRatio {
		return f, 0, nil
	}
	f.Shouting = true
	return f, pointsExcessiveCaps, []string{fmt.Sprintf("Excessive capital letters (%.0f%%)", f.Ratio*100)}
}

func (d *SpamDetector) checkRepetition(content string) (RepetitionFindings, int, []string) {
	var (
		f       RepetitionFindings
		points  int
		reasons []string
	)

	// 连续相同字符，空白字符同样计入
	var prev rune
	run := 0
	for _, r := range content {
		if run > 0 && r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > f.LongestRun {
			f.LongestRun = run
		}
	}
	if f.LongestRun >= d.cfg.MaxRepeatedCharacters {
		f.CharacterFlood = true
		points += pointsRepeatedChars
		reasons = append(reasons, fmt.Sprintf("Repeated characters (%d in a row)", f.LongestRun))
	}

	// 单词频次，先去掉链接与标签
	text := strings.ToLower(urlRe.ReplaceAllString(stripMarkup(content), " "))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	counts := make(map[string]int, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= minRepeatedWordLen {
			continue
		}
		counts[w]++
		if counts[w] > f.RepeatedCount {
			f.RepeatedCount = counts[w]
			f.RepeatedWord = w
		}
	}
	if f.RepeatedCount >= d.cfg.MaxRepeatedWords {
		f.WordFlood = true
		points += pointsRepeatedWords
		reasons = append(reasons, fmt.Sprintf("Repeated word %q (%d times)", f.RepeatedWord, f.RepeatedCount))
	}
	return f, points, reasons
}

func (d *SpamDetector) checkKeywords(content string) (KeywordFindings, int, []string) {
	matched := d.keywords.match(content)
	if len(matched) == 0 {
		return KeywordFindings{}, 0, nil
	}

	f := KeywordFindings{
		Matched:  matched,
		Score:    min(len(matched)*pointsPerKeyword, maxKeywordPoints),
		Severity: SeverityMedium,
	}
	if len(matched) > highKeywordCount {
		f.Severity = SeverityHigh
	}
	return f, f.Score, []string{"Contains spam keywords: " + strings.Join(matched, ", ")}
}

func (d *SpamDetector) checkMarkup(content string) (MarkupFindings, int, []string) {
	var f MarkupFindings
	if cssHidingRe.MatchString(content) {
		f.Issues = append(f.Issues, "hidden content via CSS")
	}
	if zeroFontRe.MatchString(content) {
		f.Issues = append(f.Issues, "zero font size")
	}
	if letterSpacingRe.MatchString(content) {
		f.Issues = append(f.Issues, "abnormal letter spacing")
	}
	if tags := len(tagRe.FindAllStringIndex(content, -1)); tags > 0 {
		visible := utf8.RuneCountInString(strings.Join(strings.Fields(stripMarkup(content)), " "))
		if visible < tags*minTextPerTag {
			f.Issues = append(f.Issues, "high tag-to-text ratio")
		}
	}
	if eventHandlerRe.MatchString(content) {
		f.Issues = append(f.Issues, "inline event handler")
	}

	if len(f.Issues) == 0 {
		return f, 0, nil
	}
	return f, pointsSuspiciousMarkup, []string{"Suspicious HTML: " + strings.Join(f.Issues, ", ")}
}

func clampScore(score int) int {
	return max(0, min(score, 100))
}
