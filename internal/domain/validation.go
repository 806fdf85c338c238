package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 验证相关的错误定义
var (
	ErrInvalidAccountID       = errors.New("invalid account id format")
	ErrAccountIDTooLong       = errors.New("account id too long (max 64 chars)")
	ErrDisplayNameTooLong     = errors.New("display name too long (max 100 chars)")
	ErrInvalidContentType     = errors.New("invalid content type")
	ErrTitleTooLong           = errors.New("title too long (max 255 chars)")
	ErrAccountCreatedInFuture = errors.New("account creation time is in the future")
)

// 验证常量
const (
	MaxAccountIDLength   = 64
	MaxDisplayNameLength = 100
	MaxTitleLength       = 255
)

// 账户 ID 由外部身份系统分配，允许字母数字与 ._:- 分隔符
var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`)

// ValidateAccountID 验证账户 ID
func ValidateAccountID(id string) error {
	if len(id) > MaxAccountIDLength {
		return ErrAccountIDTooLong
	}
	if !accountIDRegex.MatchString(id) {
		return ErrInvalidAccountID
	}
	return nil
}

// ValidateDisplayName 验证显示名称，空值合法
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxDisplayNameLength {
		return ErrDisplayNameTooLong
	}
	return nil
}

// ValidateTitle 验证提交标题
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// ValidateContentType 验证内容类型，空值合法
func ValidateContentType(t ContentType) error {
	if t.Valid() {
		return nil
	}
	return ErrInvalidContentType
}
