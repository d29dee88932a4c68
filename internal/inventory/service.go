// Package inventory は冷蔵庫の在庫管理のドメインロジックを提供する。
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/repository"
	"github.com/hitoshi/foodwallet/internal/security"
	"github.com/hitoshi/foodwallet/internal/validation"
)

// 食品更新の操作名
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Service は在庫管理のサービス層。
// すべての変更操作は変更後の食品一覧を返す。
type Service struct {
	users     repository.UserRepository
	items     repository.ItemRepository
	products  repository.ProductRepository
	sanitizer security.TextSanitizer
	validate  *validator.Validate
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	users repository.UserRepository,
	items repository.ItemRepository,
	products repository.ProductRepository,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
) *Service {
	return &Service{
		users:     users,
		items:     items,
		products:  products,
		sanitizer: sanitizer,
		validate:  validation.New(),
		metrics:   m,
		now:       time.Now,
	}
}

// GetItems はユーザーの食品一覧を返す。
func (s *Service) GetItems(ctx context.Context, userID string) ([]model.RefrigeratedItem, error) {
	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, userID)
}

// AddItem は食品を追加する。
// manualEntry が true でバーコードが指定されている場合は、共有の商品情報も登録する（既存の商品は上書きしない）。
func (s *Service) AddItem(ctx context.Context, userID string, in model.NewItem, manualEntry bool) ([]model.RefrigeratedItem, error) {
	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.Code = s.sanitizer.Clean(in.Code)
	in.Name = s.sanitizer.Clean(in.Name)
	in.Brand = s.sanitizer.Clean(in.Brand)
	in.Category = s.sanitizer.Clean(in.Category)
	in.Quantity = model.Quantity(s.sanitizer.Clean(string(in.Quantity)))
	if in.Name == "" {
		return nil, model.NewValidationError("name is required")
	}
	if in.Code != "" && !model.ValidProductCode(in.Code) {
		return nil, model.NewInvalidProductCodeError(in.Code)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, model.NewValidationError(validation.Describe(err))
	}
	if !model.ValidItemPrice(in.Price) {
		return nil, model.NewValidationError("price is out of range")
	}

	if manualEntry && in.Code != "" {
		product := &model.Product{
			Code:     in.Code,
			Name:     in.Name,
			Brand:    orUnknown(in.Brand),
			Category: orUnknown(in.Category),
		}
		if err := s.products.InsertIfAbsent(ctx, product); err != nil {
			return nil, fmt.Errorf("商品の登録に失敗しました: %w", err)
		}
	}

	item := &model.RefrigeratedItem{
		ID:             uuid.New().String(),
		Code:           in.Code,
		Name:           in.Name,
		Brand:          in.Brand,
		Category:       in.Category,
		Quantity:       in.Quantity,
		ExpirationDate: calendarDate(in.ExpirationDate),
		Price:          in.Price,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.items.Add(ctx, userID, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("食品の追加に失敗しました: %w", err)
	}
	s.metrics.RecordItemMutation(OpAdd)

	return s.list(ctx, userID)
}

// UpdateItem は食品を部分更新する。パッチのnilでないフィールドだけを上書きする。
// 食品が存在しない場合はNotFoundを返し、一覧は変更しない。
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, patch model.ItemPatch) ([]model.RefrigeratedItem, error) {
	itemID, ok := canonicalID(itemID)
	if !ok {
		return nil, model.NewInvalidIDError(itemID)
	}
	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	patch = s.cleanPatch(patch)
	if patch.Name != nil && *patch.Name == "" {
		return nil, model.NewValidationError("name must not be empty")
	}
	if patch.Code != nil && *patch.Code != "" && !model.ValidProductCode(*patch.Code) {
		return nil, model.NewInvalidProductCodeError(*patch.Code)
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, model.NewValidationError(validation.Describe(err))
	}
	if !model.ValidItemPrice(patch.Price) {
		return nil, model.NewValidationError("price is out of range")
	}
	patch.ExpirationDate = calendarDate(patch.ExpirationDate)

	if err := s.items.Update(ctx, userID, itemID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewItemNotFoundError(itemID)
		}
		return nil, fmt.Errorf("食品の更新に失敗しました: %w", err)
	}
	s.metrics.RecordItemMutation(OpUpdate)

	return s.list(ctx, userID)
}

// RemoveItem は食品を削除する。存在しない食品の削除は何もせず成功する。
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) ([]model.RefrigeratedItem, error) {
	itemID, ok := canonicalID(itemID)
	if !ok {
		return nil, model.NewInvalidIDError(itemID)
	}
	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.items.Remove(ctx, userID, itemID); err != nil {
		return nil, fmt.Errorf("食品の削除に失敗しました: %w", err)
	}
	s.metrics.RecordItemMutation(OpRemove)

	return s.list(ctx, userID)
}

// requireUser はユーザーの存在を確認し、正規形のユーザーIDを返す。
func (s *Service) requireUser(ctx context.Context, userID string) (string, error) {
	id, ok := canonicalID(userID)
	if !ok {
		return "", model.NewInvalidIDError(userID)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError()
	}
	return id, nil
}

func (s *Service) list(ctx context.Context, userID string) ([]model.RefrigeratedItem, error) {
	items, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("食品一覧の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []model.RefrigeratedItem{}
	}
	return items, nil
}

func (s *Service) cleanPatch(p model.ItemPatch) model.ItemPatch {
	clean := func(v *string) *string {
		if v == nil {
			return nil
		}
		c := s.sanitizer.Clean(*v)
		return &c
	}
	p.Code = clean(p.Code)
	p.Name = clean(p.Name)
	p.Brand = clean(p.Brand)
	p.Category = clean(p.Category)
	if p.Quantity != nil {
		q := model.Quantity(s.sanitizer.Clean(string(*p.Quantity)))
		p.Quantity = &q
	}
	return p
}

// canonicalID はUUIDを小文字ハイフン区切りの正規形に変換する。
// ストアはIDを文字列として比較するため、波括弧やurn:uuid:形式のまま渡さない。
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return id, false
	}
	return u.String(), true
}

func calendarDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.CalendarDate(*t)
	return &d
}

func orUnknown(s string) string {
	if s == "" {
		return model.UnknownProductField
	}
	return s
}
