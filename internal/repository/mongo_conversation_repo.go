package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/foodwallet/internal/model"
)

// mongoChatDoc はchatsコレクションのドキュメント。_idはユーザーID。
type mongoChatDoc struct {
	UserID    string          `bson:"_id"`
	Messages  []messageRecord `bson:"messages"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

// MongoConversationRepo はMongoDBを使用した会話リポジトリ。
type MongoConversationRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoConversationRepo はMongoConversationRepoを生成する。
func NewMongoConversationRepo(db *mongo.Database) *MongoConversationRepo {
	return &MongoConversationRepo{coll: db.Collection(mongoChatsCollection), now: time.Now}
}

// FindByUserID はユーザーの会話を取得する。まだ会話がない場合はnilを返す。
func (r *MongoConversationRepo) FindByUserID(ctx context.Context, userID string) (*model.Conversation, error) {
	var doc mongoChatDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	return &model.Conversation{
		UserID:    doc.UserID,
		Messages:  fromMessageRecords(doc.Messages),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// AppendMessages は$push + $eachのupsertでメッセージを会話の末尾に追記する。
func (r *MongoConversationRepo) AppendMessages(ctx context.Context, userID string, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	now := r.now().UTC()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push":        bson.M{"messages": bson.M{"$each": toMessageRecords(messages)}},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("会話メッセージの追記に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ConversationRepository = (*MongoConversationRepo)(nil)
