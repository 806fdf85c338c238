package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector() *SpamDetector {
	return NewSpamDetector(DefaultConfig(), nil)
}

func TestSpamDetector_Empty(t *testing.T) {
	d := newTestDetector()

	for _, content := range []string{"", "   \n\t"} {
		res := d.Detect(content)
		assert.Equal(t, 0, res.Score)
		assert.Empty(t, res.Reasons)
		assert.True(t, res.ShouldAutoApprove)
		assert.False(t, res.ShouldAutoReject)
		assert.False(t, res.RequiresManualReview)
	}
}

func TestSpamDetector_LinkBoundary(t *testing.T) {
	d := newTestDetector()
	urls := []string{
		"https://example.com/page1",
		"https://example.org/page2",
		"https://golang.org/doc",
		"https://wikipedia.org/wiki/Go",
		"https://github.com/golang",
		"https://university.edu/library",
	}

	t.Run("恰好五个链接不扣分", func(t *testing.T) {
		res := d.Detect("Links: " + strings.Join(urls[:5], " "))
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, 5, res.Details.Links.Total)
		assert.False(t, res.Details.Links.TooMany)
	})

	t.Run("六个链接加二十分", func(t *testing.T) {
		res := d.Detect("Links: " + strings.Join(urls, " "))
		assert.Equal(t, 20, res.Score)
		assert.True(t, res.Details.Links.TooMany)
		assert.Contains(t, res.Reasons, "Too many links (6)")
	})
}

func TestSpamDetector_ShortenedAndSuspicious(t *testing.T) {
	d := newTestDetector()

	t.Run("两个短链接不扣分", func(t *testing.T) {
		res := d.Detect("see https://goo.gl/a and https://ow.ly/b")
		assert.Equal(t, 2, res.Details.Links.Shortened)
		assert.False(t, res.Details.Links.TooManyShortened)
		assert.Equal(t, 0, res.Score)
	})

	t.Run("三个短链接加十五分", func(t *testing.T) {
		res := d.Detect("see https://goo.gl/a https://ow.ly/b https://is.gd/c")
		assert.True(t, res.Details.Links.TooManyShortened)
		assert.Equal(t, 15, res.Score)
	})

	t.Run("可疑域名只加一次", func(t *testing.T) {
		res := d.Detect("visit https://promo.tk/one and https://deals.ml/two")
		assert.True(t, res.Details.Links.HasSuspiciousHost)
		assert.Len(t, res.Details.Links.SuspiciousURLs, 2)
		assert.Equal(t, 30, res.Score)
		assert.Contains(t, res.Reasons, "Contains suspicious domains")
	})

	t.Run("子域名同样命中", func(t *testing.T) {
		res := d.Detect("see https://www.bit.ly/x")
		assert.True(t, res.Details.Links.HasSuspiciousHost)
		assert.Equal(t, 1, res.Details.Links.Shortened)
	})
}

func TestSpamDetector_Caps(t *testing.T) {
	d := newTestDetector()

	t.Run("字母太少不判断", func(t *testing.T) {
		res := d.Detect("HELLO WORLD")
		assert.False(t, res.Details.Caps.Evaluated)
		assert.Equal(t, 0, res.Score)
	})

	t.Run("全大写长文本加十五分", func(t *testing.T) {
		res := d.Detect("THIS IS A VERY LOUD ANNOUNCEMENT FOR EVERYONE")
		assert.True(t, res.Details.Caps.Evaluated)
		assert.True(t, res.Details.Caps.Shouting)
		assert.Equal(t, 15, res.Score)
	})

	t.Run("正常大小写不扣分", func(t *testing.T) {
		res := d.Detect("The Library opens at nine and closes at midnight on weekdays.")
		assert.True(t, res.Details.Caps.Evaluated)
		assert.False(t, res.Details.Caps.Shouting)
	})
}

func TestSpamDetector_Repetition(t *testing.T) {
	d := newTestDetector()

	t.Run("连续十个相同字符", func(t *testing.T) {
		res := d.Detect("This is amazing" + strings.Repeat("!", 10))
		assert.True(t, res.Details.Repetition.CharacterFlood)
		assert.Equal(t, 10, res.Details.Repetition.LongestRun)
		assert.Equal(t, 10, res.Score)
	})

	t.Run("九个相同字符不扣分", func(t *testing.T) {
		res := d.Detect("This is amazing" + strings.Repeat("!", 9))
		assert.False(t, res.Details.Repetition.CharacterFlood)
		assert.Equal(t, 0, res.Score)
	})

	t.Run("连续空白同样计入", func(t *testing.T) {
		res := d.Detect("para one" + strings.Repeat(" ", 20) + "para two")
		assert.True(t, res.Details.Repetition.CharacterFlood)
		assert.Equal(t, 20, res.Details.Repetition.LongestRun)
		assert.Equal(t, 10, res.Score)

		res = d.Detect("para one" + strings.Repeat("\t", 9) + "para two")
		assert.False(t, res.Details.Repetition.CharacterFlood)
	})

	t.Run("单词重复五次", func(t *testing.T) {
		res := d.Detect(strings.TrimSpace(strings.Repeat("cheap watches ", 5)))
		assert.True(t, res.Details.Repetition.WordFlood)
		assert.Equal(t, "cheap", res.Details.Repetition.RepeatedWord)
		assert.Equal(t, 5, res.Details.Repetition.RepeatedCount)
		assert.Equal(t, 10, res.Score)
	})

	t.Run("短单词不计入", func(t *testing.T) {
		res := d.Detect(strings.Repeat("the cat ", 8))
		assert.False(t, res.Details.Repetition.WordFlood)
	})
}

func TestSpamDetector_Keywords(t *testing.T) {
	d := newTestDetector()

	t.Run("三个关键词", func(t *testing.T) {
		res := d.Detect("click here to claim your free prize")
		assert.Equal(t, []string{"free", "click here", "prize"}, res.Details.Keywords.Matched)
		assert.Equal(t, 30, res.Score)
		assert.Equal(t, SeverityMedium, res.Details.Keywords.Severity)
	})

	t.Run("关键词加分上限四十", func(t *testing.T) {
		res := d.Detect("viagra cialis casino lottery winner")
		assert.Len(t, res.Details.Keywords.Matched, 5)
		assert.Equal(t, 40, res.Details.Keywords.Score)
		assert.Equal(t, SeverityHigh, res.Details.Keywords.Severity)
		assert.Equal(t, 40, res.Score)
	})

	t.Run("大小写无关", func(t *testing.T) {
		res := d.Detect("Huge LOTTERY results")
		assert.Equal(t, []string{"lottery"}, res.Details.Keywords.Matched)
	})

	t.Run("重复出现只计一次", func(t *testing.T) {
		res := d.Detect("casino casino")
		assert.Equal(t, 10, res.Details.Keywords.Score)
	})
}

func TestSpamDetector_Markup(t *testing.T) {
	d := newTestDetector()

	t.Run("CSS 隐藏内容", func(t *testing.T) {
		res := d.Detect(`<div style="display:none">hidden</div><p>Hello there, this is a normal paragraph.</p>`)
		assert.Equal(t, []string{"hidden content via CSS"}, res.Details.Markup.Issues)
		assert.Equal(t, 25, res.Score)
	})

	t.Run("内联事件处理器", func(t *testing.T) {
		res := d.Detect(`<img src="x.png" onerror="alert(1)">`)
		assert.Contains(t, res.Details.Markup.Issues, "inline event handler")
		assert.Contains(t, res.Details.Markup.Issues, "high tag-to-text ratio")
	})

	t.Run("零号字体", func(t *testing.T) {
		res := d.Detect(`<span style="font-size: 0px">secret words here</span> and more visible text`)
		assert.Contains(t, res.Details.Markup.Issues, "zero font size")
	})

	t.Run("多个问题只加一次", func(t *testing.T) {
		res := d.Detect(`<span style="visibility:hidden;letter-spacing:-3px" onclick="x()">a</span>`)
		assert.GreaterOrEqual(t, len(res.Details.Markup.Issues), 3)
		assert.Equal(t, 25, res.Score)
	})

	t.Run("正常排版不扣分", func(t *testing.T) {
		res := d.Detect(`<p>The seminar moves to <b>room 204</b> next week.</p>`)
		assert.Empty(t, res.Details.Markup.Issues)
	})
}

func TestSpamDetector_Scenario(t *testing.T) {
	d := newTestDetector()
	content := "Click here for FREE money! https://bit.ly/abc https://bit.ly/def https://tinyurl.com/xyz Win a prize now!"

	res := d.Detect(content)

	assert.Equal(t, 85, res.Score)
	assert.True(t, res.ShouldAutoReject)
	assert.False(t, res.RequiresManualReview)
	assert.Equal(t, 3, res.Details.Links.Shortened)
	assert.Equal(t, 40, res.Details.Keywords.Score)
}

func TestSpamDetector_Bounds(t *testing.T) {
	d := newTestDetector()
	worst := strings.Repeat("FREE MONEY CLICK HERE WINNER PRIZE CASINO ", 5) +
		strings.Repeat("https://bit.ly/x ", 8) +
		strings.Repeat("!", 30) +
		`<div style="display:none" onclick="x()"></div>`

	inputs := []string{"", "ok", worst, strings.Repeat("a", 5000)}
	for _, in := range inputs {
		res := d.Detect(in)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, 100)
		assert.Equal(t, res, d.Detect(in), "相同输入结果一致")
	}

	res := d.Detect(worst)
	require.Equal(t, 100, res.Score)
	assert.True(t, res.ShouldAutoReject)
}

func TestSpamDetector_Thresholds(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSpamDetector(cfg, nil)

	// 30 分：介于自动通过与人工审核之间
	res := d.Detect("visit https://promo.tk/one")
	assert.Equal(t, 30, res.Score)
	assert.False(t, res.ShouldAutoApprove)
	assert.False(t, res.RequiresManualReview)
	assert.False(t, res.ShouldAutoReject)

	// 55 分：人工审核
	res = d.Detect("visit https://promo.tk/one " + `<p style="display:none">x</p> and some more ordinary words`)
	assert.Equal(t, 55, res.Score)
	assert.True(t, res.RequiresManualReview)
}
