package model

import (
	"regexp"
	"time"
)

// Product はバーコードで識別される共有の商品情報を表す。
// 初回参照時に作成され、以降は上書きされない。
type Product struct {
	Code      string
	Name      string
	Brand     string
	Category  string
	CreatedAt time.Time
}

// UnknownProductField はカタログに値がない項目の既定値。
const UnknownProductField = "Unknown"

// productCodePattern はEAN-8/UPC-A/EAN-13/GTIN-14などの数字のみのバーコード。
var productCodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// ValidProductCode はバーコードの形式が正しいかを判定する。
func ValidProductCode(code string) bool {
	return productCodePattern.MatchString(code)
}
