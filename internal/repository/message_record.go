package repository

import (
	"time"

	"github.com/hitoshi/foodwallet/internal/model"
)

// messageRecord は会話メッセージの保存形式。
// PostgreSQLではJSONB配列の要素、MongoDBではchatsドキュメントの配列要素になる。
type messageRecord struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func toMessageRecords(messages []model.Message) []messageRecord {
	records := make([]messageRecord, len(messages))
	for i, m := range messages {
		records[i] = messageRecord{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp.UTC()}
	}
	return records
}

func fromMessageRecords(records []messageRecord) []model.Message {
	messages := make([]model.Message, len(records))
	for i, r := range records {
		messages[i] = model.Message{Role: r.Role, Content: r.Content, Timestamp: r.Timestamp}
	}
	return messages
}
