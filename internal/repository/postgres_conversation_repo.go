package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/foodwallet/internal/model"
)

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
// メッセージはconversations.messagesのJSONB配列に追記する。
type PostgresConversationRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db, now: time.Now}
}

// FindByUserID はユーザーの会話を取得する。まだ会話がない場合はnilを返す。
func (r *PostgresConversationRepo) FindByUserID(ctx context.Context, userID string) (*model.Conversation, error) {
	conv := &model.Conversation{UserID: userID}
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT messages, created_at, updated_at FROM conversations WHERE user_id = $1`,
		userID,
	).Scan(&raw, &conv.CreatedAt, &conv.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}

	var records []messageRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("会話メッセージの解析に失敗しました: %w", err)
	}
	conv.Messages = fromMessageRecords(records)

	return conv, nil
}

// AppendMessages はメッセージを会話の末尾に追記する。
// 既存の配列に連結する1文のupsertのため、同時に行われた別の追記を失わない。
func (r *PostgresConversationRepo) AppendMessages(ctx context.Context, userID string, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	payload, err := json.Marshal(toMessageRecords(messages))
	if err != nil {
		return fmt.Errorf("会話メッセージのエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, messages, created_at, updated_at)
		 VALUES ($1, $2::jsonb, $3, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		   messages   = conversations.messages || EXCLUDED.messages,
		   updated_at = EXCLUDED.updated_at`,
		userID, string(payload), r.now(),
	)
	if isPQError(err, pqForeignKeyViolation) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("会話メッセージの追記に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)
