package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/foodwallet/internal/model"
)

// mongoAccountDoc はaccountsコレクションのドキュメント。
type mongoAccountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash []byte    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// MongoAccountRepo はMongoDBを使用したアカウントリポジトリ。
type MongoAccountRepo struct {
	coll *mongo.Collection
}

// NewMongoAccountRepo はMongoAccountRepoを生成する。
func NewMongoAccountRepo(db *mongo.Database) *MongoAccountRepo {
	return &MongoAccountRepo{coll: db.Collection(mongoAccountsCollection)}
}

// Create はアカウントを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
func (r *MongoAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.coll.InsertOne(ctx, mongoAccountDoc{
		ID:           account.ID,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (r *MongoAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var doc mongoAccountDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return &model.Account{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// DeleteByID は指定IDのアカウントを削除する。
func (r *MongoAccountRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*MongoAccountRepo)(nil)
