// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CalendarDateLayout は賞味期限の入出力形式。
const CalendarDateLayout = "2006-01-02"

// RefrigeratedItem はユーザーの冷蔵庫にある食品1件を表す。
type RefrigeratedItem struct {
	ID             string
	Code           string // バーコード。手動登録では空の場合がある
	Name           string
	Brand          string
	Category       string
	Quantity       Quantity
	ExpirationDate *time.Time       // UTCの0時に正規化した暦日。不明な場合はnil
	Price          *decimal.Decimal // 不明な場合はnil
	CreatedAt      time.Time
}

// 食品のテキスト項目の上限文字数。ストアの列幅と一致させる。
const (
	MaxItemTextLength = 255
	MaxQuantityLength = 64
)

// maxItemPrice はストアに保存できる価格の上限（NUMERIC(12, 2)）。
var maxItemPrice = decimal.RequireFromString("9999999999.99")

// NewItem は食品追加時の入力値を表す。IDはストアが採番する。
type NewItem struct {
	Code           string   `json:"code"`
	Name           string   `json:"name" validate:"max=255"`
	Brand          string   `json:"brand" validate:"max=255"`
	Category       string   `json:"category" validate:"max=255"`
	Quantity       Quantity `json:"quantity" validate:"max=64"`
	ExpirationDate *time.Time
	Price          *decimal.Decimal
}

// ItemPatch は食品の部分更新を表す。nilのフィールドは変更しない。
type ItemPatch struct {
	Code           *string   `json:"code"`
	Name           *string   `json:"name" validate:"omitempty,max=255"`
	Brand          *string   `json:"brand" validate:"omitempty,max=255"`
	Category       *string   `json:"category" validate:"omitempty,max=255"`
	Quantity       *Quantity `json:"quantity" validate:"omitempty,max=64"`
	ExpirationDate *time.Time
	Price          *decimal.Decimal
}

// ValidItemPrice は価格が0以上かつ保存可能な範囲にあるかを判定する。nilは価格不明として有効。
func ValidItemPrice(price *decimal.Decimal) bool {
	if price == nil {
		return true
	}
	return !price.IsNegative() && price.LessThanOrEqual(maxItemPrice)
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (p ItemPatch) IsEmpty() bool {
	return p.Code == nil && p.Name == nil && p.Brand == nil && p.Category == nil &&
		p.Quantity == nil && p.ExpirationDate == nil && p.Price == nil
}

// Apply はパッチを食品に適用した結果を返す。元の値は変更しない。
func (p ItemPatch) Apply(item RefrigeratedItem) RefrigeratedItem {
	if p.Code != nil {
		item.Code = *p.Code
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Brand != nil {
		item.Brand = *p.Brand
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.ExpirationDate != nil {
		d := *p.ExpirationDate
		item.ExpirationDate = &d
	}
	if p.Price != nil {
		price := *p.Price
		item.Price = &price
	}
	return item
}

// Quantity は数量を表す。数値（2）と文字列（"half a carton"）の両方を受け付け、
// テキストとして保持する。
type Quantity string

// UnmarshalJSON はJSONの数値または文字列をQuantityに変換する。
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a number or a string: %w", err)
	}
	*q = Quantity(n.String())
	return nil
}

// CalendarDate は時刻をその地域での暦日に切り詰め、UTCの0時として返す。
// 賞味期限の比較は暦日単位で行う。
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseCalendarDate は "YYYY-MM-DD" またはRFC3339形式の文字列を暦日に変換する。
// 空文字列の場合はnilを返す。
func ParseCalendarDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(CalendarDateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	d := CalendarDate(t)
	return &d, nil
}

// FormatCalendarDate は暦日を "YYYY-MM-DD" 形式に変換する。nilの場合は空文字列を返す。
func FormatCalendarDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(CalendarDateLayout)
}
