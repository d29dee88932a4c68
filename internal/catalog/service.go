package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/repository"
	"github.com/hitoshi/foodwallet/internal/security"
)

// Service は商品情報の取得サービス。
// 共有の商品キャッシュを先に参照し、未登録の場合のみ外部カタログに問い合わせる。
type Service struct {
	products  repository.ProductRepository
	lookup    Lookup
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	products repository.ProductRepository,
	lookup Lookup,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		products:  products,
		lookup:    lookup,
		sanitizer: sanitizer,
		metrics:   m,
		logger:    logger,
	}
}

// LookupProduct はバーコードから商品情報を取得する。
// 外部カタログで見つかった商品は共有キャッシュに登録する（既存の商品は上書きしない）。
func (s *Service) LookupProduct(ctx context.Context, code string) (*model.Product, error) {
	if !model.ValidProductCode(code) {
		return nil, model.NewInvalidProductCodeError(code)
	}

	cached, err := s.products.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if cached != nil {
		s.metrics.RecordCatalogLookup(metrics.LookupCacheHit)
		return cached, nil
	}

	product, err := s.lookup.LookupByCode(ctx, code)
	if err != nil {
		s.metrics.RecordCatalogLookup(metrics.LookupError)
		s.logger.WarnContext(ctx, "商品カタログを利用できません",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return nil, model.NewCatalogUnavailableError()
	}
	if product == nil {
		s.metrics.RecordCatalogLookup(metrics.LookupNotFound)
		return nil, model.NewProductNotFoundError(code)
	}

	product.Code = code
	product.Name = s.cleanOrUnknown(product.Name)
	product.Brand = s.cleanOrUnknown(product.Brand)
	product.Category = s.cleanOrUnknown(product.Category)

	if err := s.products.InsertIfAbsent(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の登録に失敗しました: %w", err)
	}
	s.metrics.RecordCatalogLookup(metrics.LookupFetched)

	return product, nil
}

// cleanOrUnknown はカタログの値を無害化し、ストアの列幅に収まるよう切り詰める。
func (s *Service) cleanOrUnknown(v string) string {
	if v = s.sanitizer.Clean(v); v == "" {
		return model.UnknownProductField
	}
	if r := []rune(v); len(r) > model.MaxItemTextLength {
		v = strings.TrimSpace(string(r[:model.MaxItemTextLength]))
	}
	return v
}
