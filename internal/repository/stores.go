package repository

import (
	"database/sql"

	"go.mongodb.org/mongo-driver/mongo"
)

// Stores はアプリケーションが使うリポジトリ一式。
// STORE_DRIVERに応じてPostgreSQLまたはMongoDBの実装で構築する。
type Stores struct {
	Users         UserRepository
	Items         ItemRepository
	Products      ProductRepository
	Conversations ConversationRepository
	Accounts      AccountRepository
}

// NewPostgresStores はPostgreSQL実装のリポジトリ一式を生成する。
func NewPostgresStores(db *sql.DB) *Stores {
	return &Stores{
		Users:         NewPostgresUserRepo(db),
		Items:         NewPostgresItemRepo(db),
		Products:      NewPostgresProductRepo(db),
		Conversations: NewPostgresConversationRepo(db),
		Accounts:      NewPostgresAccountRepo(db),
	}
}

// NewMongoStores はMongoDB実装のリポジトリ一式を生成する。
func NewMongoStores(db *mongo.Database) *Stores {
	return &Stores{
		Users:         NewMongoUserRepo(db),
		Items:         NewMongoItemRepo(db),
		Products:      NewMongoProductRepo(db),
		Conversations: NewMongoConversationRepo(db),
		Accounts:      NewMongoAccountRepo(db),
	}
}
