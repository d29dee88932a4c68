package model

import "time"

// メッセージのロール
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message は会話の1メッセージを表す。
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Conversation はユーザーごとのアシスタントとの会話履歴を表す。
// 追記のみで、既存のメッセージは削除しない。
type Conversation struct {
	UserID    string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}
