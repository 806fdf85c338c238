package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 80, cfg.AutoRejectThreshold)
	assert.Equal(t, 50, cfg.ManualReviewThreshold)
	assert.Equal(t, 20, cfg.ApproveThreshold)
	assert.Equal(t, 5, cfg.MaxLinks)
	assert.Len(t, cfg.PersonalInfoPatterns, 5)
	assert.Empty(t, cfg.ProfanityKeywords)
}

func TestDefaultConfig_FreshCopy(t *testing.T) {
	a := DefaultConfig()
	a.SpamKeywords[0] = "changed"

	b := DefaultConfig()
	assert.Equal(t, "viagra", b.SpamKeywords[0])
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.SuspiciousDomains = append(clone.SuspiciousDomains[:0], "evil.example")

	assert.Equal(t, "bit.ly", cfg.SuspiciousDomains[0])
	assert.Equal(t, cfg.AutoRejectThreshold, clone.AutoRejectThreshold)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"阈值倒置", func(c *Config) { c.ApproveThreshold = 60 }},
		{"人工审核高于自动拒绝", func(c *Config) { c.ManualReviewThreshold = 90 }},
		{"阈值超出范围", func(c *Config) { c.AutoRejectThreshold = 120 }},
		{"负的链接上限", func(c *Config) { c.MaxLinks = -1 }},
		{"大写比例超出范围", func(c *Config) { c.MaxCapsRatio = 1.5 }},
		{"重复次数过小", func(c *Config) { c.MaxRepeatedWords = 1 }},
		{"长度上下限矛盾", func(c *Config) { c.MinContentLength = 100; c.MaxContentLength = 10 }},
		{"通过率阈值超出范围", func(c *Config) { c.TrustedUserScore = 2 }},
		{"声誉阈值超出范围", func(c *Config) { c.AutoFlagReputation = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("阈值相等合法", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApproveThreshold = 50
		cfg.ManualReviewThreshold = 50
		cfg.AutoRejectThreshold = 50
		assert.NoError(t, cfg.Validate())
	})
}
