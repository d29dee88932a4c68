// Package prompt は在庫と会話の状態を言語モデルへの依頼文に変換する。
//
// すべての関数は純粋関数で、同じ入力に対して常に同じテキストを生成する。
// 生成したメッセージのTimestampは設定しない（呼び出し元が記録時に付与する）。
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/foodwallet/internal/model"
)

// RecipeCount は1回の提案で依頼するレシピの数。
const RecipeCount = 3

// UnknownPrice は価格が不明な食品の表示。
const UnknownPrice = "Unknown Price"

const (
	recipeSystem = "You are a helpful cooking assistant that reduces household food waste."
	kpiSystem    = "You are a household food-waste analyst. You respond with JSON only."
	chatSystem   = "You are a helpful kitchen assistant for a household. " +
		"Answer definitively and concisely. Do not present multiple options; pick one and commit to it."
)

// SortByExpiration は賞味期限の早い順に並べ替えた新しいスライスを返す。
// 賞味期限が不明な食品は末尾に置き、同順位の食品は元の順序を保つ。
func SortByExpiration(items []model.RefrigeratedItem) []model.RefrigeratedItem {
	sorted := make([]model.RefrigeratedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ExpirationDate, sorted[j].ExpirationDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return model.CalendarDate(*a).Before(model.CalendarDate(*b))
		}
	})
	return sorted
}

// PartitionByExpiration は食品を期限切れとそれ以外に分ける。
// 期限切れは賞味期限の暦日が today の暦日より前のもの。賞味期限が不明な食品は期限切れにしない。
// 各分類の中では元の順序を保つ。
func PartitionByExpiration(items []model.RefrigeratedItem, today time.Time) (expired, fresh []model.RefrigeratedItem) {
	day := model.CalendarDate(today)
	expired = []model.RefrigeratedItem{}
	fresh = []model.RefrigeratedItem{}
	for _, item := range items {
		if item.ExpirationDate != nil && model.CalendarDate(*item.ExpirationDate).Before(day) {
			expired = append(expired, item)
			continue
		}
		fresh = append(fresh, item)
	}
	return expired, fresh
}

// Recipe はレシピ提案の依頼メッセージを生成する。
func Recipe(items []model.RefrigeratedItem) []model.Message {
	var b strings.Builder
	b.WriteString("Here is what is currently in my fridge, soonest to expire first:\n")
	for _, item := range SortByExpiration(items) {
		b.WriteString(itemLine(item))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nSuggest exactly %d recipes I can cook with these items. ", RecipeCount)
	b.WriteString("Each recipe must prioritize the items that expire soonest.\n")
	b.WriteString("Respond with a JSON array only, in this shape:\n")
	b.WriteString(`[{"title": "string", "ingredients": ["string"], "instructions": ["string"]}]`)
	b.WriteString("\nDo not write any prose, explanation or markdown outside the JSON block.")

	return []model.Message{
		{Role: model.RoleSystem, Content: recipeSystem},
		{Role: model.RoleUser, Content: b.String()},
	}
}

// KPI は消費・廃棄指標の推計を依頼するメッセージを生成する。
func KPI(items []model.RefrigeratedItem, today time.Time) []model.Message {
	expired, fresh := PartitionByExpiration(items, today)

	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s.\n\n", model.CalendarDate(today).Format(model.CalendarDateLayout))
	b.WriteString("Expired items:\n")
	writePricedItems(&b, expired)
	b.WriteString("\nNon-expired items:\n")
	writePricedItems(&b, fresh)
	b.WriteString("\nEstimate the household's food-waste metrics from these items. ")
	b.WriteString("Return a JSON object with exactly these keys: ")
	b.WriteString(strings.Join(model.KPIKeys, ", "))
	b.WriteString(". Every value must be a string that includes its unit (for example \"$12.50\" or \"3.2 kg CO2e\").\n")
	b.WriteString("Respond with JSON only. Do not write any prose or markdown.")

	return []model.Message{
		{Role: model.RoleSystem, Content: kpiSystem},
		{Role: model.RoleUser, Content: b.String()},
	}
}

// ChatContext は現在の在庫を含むシステムメッセージを生成する。
func ChatContext(items []model.RefrigeratedItem) model.Message {
	var b strings.Builder
	b.WriteString(chatSystem)
	b.WriteString("\n\nThe user's fridge currently contains:\n")
	if len(items) == 0 {
		b.WriteString("(nothing)\n")
	}
	for _, item := range items {
		b.WriteString(itemLine(item))
		if item.Price != nil {
			fmt.Fprintf(&b, ", price: %s", item.Price.StringFixed(2))
		}
		b.WriteByte('\n')
	}
	return model.Message{Role: model.RoleSystem, Content: strings.TrimRight(b.String(), "\n")}
}

// Chat は会話1ターン分の依頼メッセージを生成する。
// 最新の在庫を表すシステムメッセージ、過去の履歴すべて、新しいユーザーメッセージの順に並べる。
func Chat(items []model.RefrigeratedItem, history []model.Message, userMessage string) []model.Message {
	msgs := make([]model.Message, 0, len(history)+2)
	msgs = append(msgs, ChatContext(items))
	for _, m := range history {
		msgs = append(msgs, model.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: userMessage})
	return msgs
}

func itemLine(item model.RefrigeratedItem) string {
	name := item.Name
	if item.Quantity != "" {
		name = fmt.Sprintf("%s (%s)", item.Name, item.Quantity)
	}
	if item.ExpirationDate == nil {
		return fmt.Sprintf("- %s, expiration unknown", name)
	}
	return fmt.Sprintf("- %s, expires %s", name, model.CalendarDate(*item.ExpirationDate).Format(model.CalendarDateLayout))
}

func writePricedItems(b *strings.Builder, items []model.RefrigeratedItem) {
	if len(items) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, item := range items {
		price := UnknownPrice
		if item.Price != nil {
			price = item.Price.StringFixed(2)
		}
		fmt.Fprintf(b, "%s, price: %s\n", itemLine(item), price)
	}
}
