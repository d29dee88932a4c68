// Package validation はリクエスト値の検証ルールを提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// 名前とパスワードのルール
const (
	NameMinLength     = 2
	NameMaxLength     = 25
	PasswordMinLength = 8
)

// New は独自タグ personname / strongpassword を登録したValidatorを生成する。
// エラーのフィールド名にはjsonタグの名前を使う。
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// 登録に失敗するのはタグ名が不正な場合のみ
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return IsPersonName(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	return v
}

// IsPersonName は2〜25文字で数字を含まない名前かを判定する。
func IsPersonName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < NameMinLength || n > NameMaxLength {
		return false
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsStrongPassword は8文字以上で空白を含まず、
// 大文字・数字・記号をそれぞれ1文字以上含むパスワードかを判定する。
func IsStrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < PasswordMinLength {
		return false
	}
	var upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && digit && special
}

// Describe は検証エラーを利用者向けの短い説明に変換する。
// validator以外のエラーはそのまま文字列化する。
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeField(fe))
	}
	return strings.Join(parts, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "personname":
		return fmt.Sprintf("%s must be %d-%d characters without digits", field, NameMinLength, NameMaxLength)
	case "strongpassword":
		return fmt.Sprintf("%s must be at least %d characters with an uppercase letter, a digit and a special character, and no spaces", field, PasswordMinLength)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
