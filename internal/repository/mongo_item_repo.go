package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/foodwallet/internal/model"
)

// mongoItemDoc はusers.refrigeratedItems配列の要素。
// 価格は精度を保つため文字列で保存する。
type mongoItemDoc struct {
	ID             string     `bson:"id"`
	Code           string     `bson:"code"`
	Name           string     `bson:"name"`
	Brand          string     `bson:"brand"`
	Category       string     `bson:"category"`
	Quantity       string     `bson:"quantity"`
	ExpirationDate *time.Time `bson:"expirationDate,omitempty"`
	Price          *string    `bson:"price,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
}

// MongoItemRepo はMongoDBを使用した食品リポジトリ。
// 食品はユーザードキュメントに埋め込み、$push / 配列フィルタ付き$set / $pull で1件ずつ更新する。
type MongoItemRepo struct {
	coll *mongo.Collection
}

// NewMongoItemRepo はMongoItemRepoを生成する。
func NewMongoItemRepo(db *mongo.Database) *MongoItemRepo {
	return &MongoItemRepo{coll: db.Collection(mongoUsersCollection)}
}

// ListByUser はユーザーの食品を登録順に返す。ユーザーが存在しない場合は空を返す。
func (r *MongoItemRepo) ListByUser(ctx context.Context, userID string) ([]model.RefrigeratedItem, error) {
	var doc struct {
		RefrigeratedItems []mongoItemDoc `bson:"refrigeratedItems"`
	}
	opts := options.FindOne().SetProjection(bson.M{"refrigeratedItems": 1})
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []model.RefrigeratedItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("食品一覧の取得に失敗しました: %w", err)
	}

	items := make([]model.RefrigeratedItem, 0, len(doc.RefrigeratedItems))
	for _, d := range doc.RefrigeratedItems {
		items = append(items, fromMongoItemDoc(d))
	}
	return items, nil
}

// Add は食品を末尾に追加する。ユーザーが存在しない場合はErrNotFoundを返す。
func (r *MongoItemRepo) Add(ctx context.Context, userID string, item *model.RefrigeratedItem) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"refrigeratedItems": toMongoItemDoc(item)},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("食品の追加に失敗しました: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Update はパッチのnilでないフィールドだけを配列フィルタで対象の要素に$setする。
// 食品が存在しない場合はErrNotFoundを返す。
func (r *MongoItemRepo) Update(ctx context.Context, userID, itemID string, patch model.ItemPatch) error {
	filter := bson.M{"_id": userID, "refrigeratedItems.id": itemID}

	set := patchToSet(patch)
	if len(set) == 0 {
		count, err := r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("食品の確認に失敗しました: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}
	set["updatedAt"] = time.Now().UTC()

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"item.id": itemID}},
	})
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set}, opts)
	if err != nil {
		return fmt.Errorf("食品の更新に失敗しました: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove は食品を削除する。存在しない場合も成功として扱う。
func (r *MongoItemRepo) Remove(ctx context.Context, userID, itemID string) error {
	if _, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"refrigeratedItems": bson.M{"id": itemID}}},
	); err != nil {
		return fmt.Errorf("食品の削除に失敗しました: %w", err)
	}
	return nil
}

// patchToSet はパッチを配列要素への$set指定に変換する。
func patchToSet(patch model.ItemPatch) bson.M {
	const prefix = "refrigeratedItems.$[item]."
	set := bson.M{}
	if patch.Code != nil {
		set[prefix+"code"] = *patch.Code
	}
	if patch.Name != nil {
		set[prefix+"name"] = *patch.Name
	}
	if patch.Brand != nil {
		set[prefix+"brand"] = *patch.Brand
	}
	if patch.Category != nil {
		set[prefix+"category"] = *patch.Category
	}
	if patch.Quantity != nil {
		set[prefix+"quantity"] = string(*patch.Quantity)
	}
	if patch.ExpirationDate != nil {
		set[prefix+"expirationDate"] = model.CalendarDate(*patch.ExpirationDate)
	}
	if patch.Price != nil {
		set[prefix+"price"] = patch.Price.String()
	}
	return set
}

func toMongoItemDoc(item *model.RefrigeratedItem) mongoItemDoc {
	doc := mongoItemDoc{
		ID:        item.ID,
		Code:      item.Code,
		Name:      item.Name,
		Brand:     item.Brand,
		Category:  item.Category,
		Quantity:  string(item.Quantity),
		CreatedAt: item.CreatedAt.UTC(),
	}
	if item.ExpirationDate != nil {
		d := model.CalendarDate(*item.ExpirationDate)
		doc.ExpirationDate = &d
	}
	if item.Price != nil {
		s := item.Price.String()
		doc.Price = &s
	}
	return doc
}

func fromMongoItemDoc(doc mongoItemDoc) model.RefrigeratedItem {
	item := model.RefrigeratedItem{
		ID:        doc.ID,
		Code:      doc.Code,
		Name:      doc.Name,
		Brand:     doc.Brand,
		Category:  doc.Category,
		Quantity:  model.Quantity(doc.Quantity),
		CreatedAt: doc.CreatedAt,
	}
	if doc.ExpirationDate != nil {
		d := model.CalendarDate(doc.ExpirationDate.UTC())
		item.ExpirationDate = &d
	}
	// 解析できない価格は不明として扱う
	if doc.Price != nil {
		if p, err := decimal.NewFromString(*doc.Price); err == nil {
			item.Price = &p
		}
	}
	return item
}

// compile-time interface check
var _ ItemRepository = (*MongoItemRepo)(nil)
