package moderation

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

var (
	urlRe = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]{}]+`)
	tagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// extractURLs 提取文本中所有 http(s) 链接，去掉结尾的标点
func extractURLs(content string) []string {
	raw := urlRe.FindAllString(content, -1)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimRight(u, ".,;:!?")
		if i := strings.Index(u, "://"); i >= 0 && len(u) > i+3 {
			out = append(out, u)
		}
	}
	return out
}

// urlHost 返回链接的小写主机名（不含端口）
func urlHost(raw string) string {
	if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
		return strings.ToLower(parsed.Hostname())
	}
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

// hostMatches 判断主机名是否命中域名条目
//
// 以 "." 开头的条目按后缀匹配（顶级域名），形如域名的条目匹配自身及子域名，
// 其余条目按子串匹配整个链接。
func hostMatches(rawURL, host, entry string) bool {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return false
	}
	switch {
	case strings.HasPrefix(entry, "."):
		return strings.HasSuffix(host, entry)
	case strings.Contains(entry, "."):
		return host == entry || strings.HasSuffix(host, "."+entry)
	default:
		return strings.Contains(strings.ToLower(rawURL), entry)
	}
}

func matchesAnyHost(rawURL, host string, entries []string) bool {
	for _, e := range entries {
		if hostMatches(rawURL, host, e) {
			return true
		}
	}
	return false
}

// stripMarkup 去掉 HTML 标签并解码实体，标签位置以空格代替
func stripMarkup(content string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(content, " "))
}

// keywordMatcher 基于 Aho-Corasick 的大小写无关多关键词匹配
//
// ahocorasick.Matcher 的 Match 会修改内部计数器，因此需要加锁。
type keywordMatcher struct {
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	keywords []string
}

func newKeywordMatcher(words []string) *keywordMatcher {
	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	m := &keywordMatcher{keywords: keywords}
	if len(keywords) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(keywords)
	}
	return m
}

// match 返回文本中出现的不同关键词，按词表顺序排列
func (m *keywordMatcher) match(text string) []string {
	if m.matcher == nil || text == "" {
		return nil
	}

	m.mu.Lock()
	hits := m.matcher.Match([]byte(strings.ToLower(text)))
	m.mu.Unlock()

	if len(hits) == 0 {
		return nil
	}
	sort.Ints(hits)
	out := make([]string, 0, len(hits))
	last := -1
	for _, idx := range hits {
		if idx == last {
			continue
		}
		last = idx
		out = append(out, m.keywords[idx])
	}
	return out
}
