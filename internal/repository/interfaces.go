// Package repository はデータ永続化のインターフェースを定義する。
// PostgreSQLとMongoDBの2種類の実装を持ち、起動時にどちらかを選択する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/foodwallet/internal/model"
)

var (
	// ErrNotFound は更新・追加対象の親レコードが存在しないことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約に違反したことを表す。
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// ItemRepository は冷蔵庫の食品データの永続化インターフェース。
// すべての変更は (userID, itemID) を指定した1件単位のアトミックな操作で行い、
// 同じユーザーの別の食品への同時編集を上書きしない。
type ItemRepository interface {
	// ListByUser はユーザーの食品を登録順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.RefrigeratedItem, error)

	// Add は食品を末尾に追加する。ユーザーが存在しない場合はErrNotFoundを返す。
	Add(ctx context.Context, userID string, item *model.RefrigeratedItem) error

	// Update はパッチのnilでないフィールドだけを上書きする。
	// 食品が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, userID, itemID string, patch model.ItemPatch) error

	// Remove は食品を削除する。存在しない場合も成功として扱う。
	Remove(ctx context.Context, userID, itemID string) error
}

// ProductRepository は共有の商品情報の永続化インターフェース。
type ProductRepository interface {
	// FindByCode はバーコードで商品を取得する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Product, error)

	// InsertIfAbsent は商品が未登録の場合のみ作成する。既存の商品は上書きしない。
	InsertIfAbsent(ctx context.Context, product *model.Product) error
}

// ConversationRepository はユーザーごとの会話履歴の永続化インターフェース。
type ConversationRepository interface {
	// FindByUserID はユーザーの会話を取得する。まだ会話がない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Conversation, error)

	// AppendMessages はメッセージを会話の末尾に追記する。
	// 会話が存在しない場合は作成する（upsert）。既存のメッセージは失われない。
	AppendMessages(ctx context.Context, userID string, messages []model.Message) error
}

// AccountRepository は認証基盤のログイン情報の永続化インターフェース。
type AccountRepository interface {
	// Create はアカウントを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, account *model.Account) error

	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// DeleteByID は指定IDのアカウントを削除する。
	DeleteByID(ctx context.Context, id string) error
}
