package catalog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/security"
)

// --- モック ---

type mockProductRepo struct {
	findByCodeFn     func(ctx context.Context, code string) (*model.Product, error)
	insertIfAbsentFn func(ctx context.Context, product *model.Product) error
}

func (m *mockProductRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	return m.findByCodeFn(ctx, code)
}
func (m *mockProductRepo) InsertIfAbsent(ctx context.Context, product *model.Product) error {
	if m.insertIfAbsentFn != nil {
		return m.insertIfAbsentFn(ctx, product)
	}
	return nil
}

type mockLookup struct {
	calls int
	fn    func(ctx context.Context, code string) (*model.Product, error)
}

func (m *mockLookup) LookupByCode(ctx context.Context, code string) (*model.Product, error) {
	m.calls++
	return m.fn(ctx, code)
}

func newTestService(repo *mockProductRepo, lookup *mockLookup) *Service {
	var buf bytes.Buffer
	return NewService(repo, lookup, security.NewTextSanitizer(), metrics.Nop{}, newTestLogger(&buf))
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- テスト ---

func TestService_LookupProduct_CacheHit(t *testing.T) {
	repo := &mockProductRepo{
		findByCodeFn: func(ctx context.Context, code string) (*model.Product, error) {
			return &model.Product{Code: code, Name: "Milk"}, nil
		},
	}
	lookup := &mockLookup{}

	product, err := newTestService(repo, lookup).LookupProduct(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Name != "Milk" {
		t.Errorf("Name = %q, want Milk", product.Name)
	}
	if lookup.calls != 0 {
		t.Errorf("キャッシュにある商品で外部カタログを呼んではならない: calls = %d", lookup.calls)
	}
}

func TestService_LookupProduct_FetchesAndCaches(t *testing.T) {
	var inserted *model.Product
	repo := &mockProductRepo{
		findByCodeFn: func(ctx context.Context, code string) (*model.Product, error) { return nil, nil },
		insertIfAbsentFn: func(ctx context.Context, product *model.Product) error {
			inserted = product
			return nil
		},
	}
	lookup := &mockLookup{fn: func(ctx context.Context, code string) (*model.Product, error) {
		return &model.Product{Name: "<b>Oat</b> milk", Brand: "  ", Category: "Plant milks"}, nil
	}}

	product, err := newTestService(repo, lookup).LookupProduct(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Name != "Oat milk" {
		t.Errorf("Name = %q, want マークアップ除去済みの Oat milk", product.Name)
	}
	if product.Brand != model.UnknownProductField {
		t.Errorf("Brand = %q, want Unknown", product.Brand)
	}
	if inserted == nil || inserted.Code != "12345678" {
		t.Errorf("商品がキャッシュに登録されるべき: %+v", inserted)
	}
}

func TestService_LookupProduct_TruncatesLongFields(t *testing.T) {
	var inserted *model.Product
	repo := &mockProductRepo{
		findByCodeFn: func(ctx context.Context, code string) (*model.Product, error) { return nil, nil },
		insertIfAbsentFn: func(ctx context.Context, product *model.Product) error {
			inserted = product
			return nil
		},
	}
	lookup := &mockLookup{fn: func(ctx context.Context, code string) (*model.Product, error) {
		return &model.Product{
			Name:     strings.Repeat("牛", model.MaxItemTextLength+40),
			Brand:    "Farm",
			Category: strings.Repeat("c", model.MaxItemTextLength*2),
		}, nil
	}}

	product, err := newTestService(repo, lookup).LookupProduct(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := utf8.RuneCountInString(product.Name); n != model.MaxItemTextLength {
		t.Errorf("Name length = %d runes, want %d", n, model.MaxItemTextLength)
	}
	if n := utf8.RuneCountInString(product.Category); n != model.MaxItemTextLength {
		t.Errorf("Category length = %d runes, want %d", n, model.MaxItemTextLength)
	}
	if product.Brand != "Farm" {
		t.Errorf("Brand = %q, want Farm", product.Brand)
	}
	if inserted == nil || inserted.Name != product.Name {
		t.Errorf("切り詰めた値をキャッシュに登録するべき: %+v", inserted)
	}
}

func TestService_LookupProduct_Errors(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		lookupFn func(ctx context.Context, code string) (*model.Product, error)
		wantCode string
	}{
		{name: "不正なバーコード", code: "abc", wantCode: model.ErrCodeInvalidProductCode},
		{
			name:     "未登録",
			code:     "12345678",
			lookupFn: func(ctx context.Context, code string) (*model.Product, error) { return nil, nil },
			wantCode: model.ErrCodeProductNotFound,
		},
		{
			name:     "カタログ障害",
			code:     "12345678",
			lookupFn: func(ctx context.Context, code string) (*model.Product, error) { return nil, errors.New("timeout") },
			wantCode: model.ErrCodeCatalogUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProductRepo{
				findByCodeFn: func(ctx context.Context, code string) (*model.Product, error) { return nil, nil },
				insertIfAbsentFn: func(ctx context.Context, product *model.Product) error {
					t.Error("失敗時に商品を登録してはならない")
					return nil
				},
			}
			_, err := newTestService(repo, &mockLookup{fn: tt.lookupFn}).LookupProduct(context.Background(), tt.code)
			if got := apiErrorCode(t, err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}
