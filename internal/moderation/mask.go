package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	maskEmailRe     = regexp.MustCompile(EmailPattern)
	maskCardRe      = regexp.MustCompile(CardNumberPattern)
	maskAccountRe   = regexp.MustCompile(AccountNumberPattern)
	maskIntlPhoneRe = regexp.MustCompile(IntlPhonePattern)
	maskPhoneRe     = regexp.MustCompile(PhonePattern)
)

// MaskPersonalInfo 遮盖内容中的邮箱、电话、卡号与账号
//
//	john.doe@example.com  -> jo***@example.com
//	555-123-4567          -> 555-***-****
//	(555) 123-4567        -> (555) ***-****
//	4111 1111 1111 1111   -> 4111 **** **** ****
func MaskPersonalInfo(content string) string {
	if content == "" {
		return content
	}

	out := maskEmailRe.ReplaceAllStringFunc(content, maskEmail)
	out = maskCardRe.ReplaceAllStringFunc(out, func(s string) string { return maskDigitsAfter(s, 4) })
	out = maskAccountRe.ReplaceAllStringFunc(out, func(s string) string { return maskDigitsAfter(s, 4) })
	out = maskIntlPhoneRe.ReplaceAllStringFunc(out, func(s string) string {
		// 保留国家码与括号内的区号
		return maskDigitsAfter(s, countDigits(s[:strings.Index(s, ")")]))
	})
	out = maskPhoneRe.ReplaceAllStringFunc(out, func(s string) string { return maskDigitsAfter(s, 3) })
	return out
}

func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local := []rune(email[:at])
	keep := min(2, len(local))
	return string(local[:keep]) + "***" + email[at:]
}

// maskDigitsAfter 保留前 keep 个数字，其余数字替换为 *，分隔符原样保留
func maskDigitsAfter(s string, keep int) string {
	var b strings.Builder
	b.Grow(len(s))
	seen := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			seen++
			if seen > keep {
				b.WriteByte('*')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
