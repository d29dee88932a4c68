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

// mongoProductDoc はproductsコレクションのドキュメント。_idはバーコード。
type mongoProductDoc struct {
	Code      string    `bson:"_id"`
	Name      string    `bson:"name"`
	Brand     string    `bson:"brand"`
	Category  string    `bson:"category"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoProductRepo はMongoDBを使用した商品リポジトリ。
type MongoProductRepo struct {
	coll *mongo.Collection
}

// NewMongoProductRepo はMongoProductRepoを生成する。
func NewMongoProductRepo(db *mongo.Database) *MongoProductRepo {
	return &MongoProductRepo{coll: db.Collection(mongoProductsCollection)}
}

// FindByCode はバーコードで商品を取得する。見つからない場合はnilを返す。
func (r *MongoProductRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var doc mongoProductDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return &model.Product{
		Code:      doc.Code,
		Name:      doc.Name,
		Brand:     doc.Brand,
		Category:  doc.Category,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// InsertIfAbsent は$setOnInsertのupsertで商品が未登録の場合のみ作成する。
func (r *MongoProductRepo) InsertIfAbsent(ctx context.Context, product *model.Product) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": product.Code},
		bson.M{"$setOnInsert": bson.M{
			"name":      product.Name,
			"brand":     product.Brand,
			"category":  product.Category,
			"createdAt": product.CreatedAt.UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	// 同時upsertの競合は既に登録済みと同じ扱い
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("商品の登録に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProductRepository = (*MongoProductRepo)(nil)
