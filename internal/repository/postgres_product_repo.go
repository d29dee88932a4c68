package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/foodwallet/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// FindByCode はバーコードで商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	product := &model.Product{}
	err := r.db.QueryRowContext(ctx,
		`SELECT code, name, brand, category, created_at FROM products WHERE code = $1`,
		code,
	).Scan(&product.Code, &product.Name, &product.Brand, &product.Category, &product.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return product, nil
}

// InsertIfAbsent は商品が未登録の場合のみ作成する。
func (r *PostgresProductRepo) InsertIfAbsent(ctx context.Context, product *model.Product) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO products (code, name, brand, category, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (code) DO NOTHING`,
		product.Code, product.Name, product.Brand, product.Category, product.CreatedAt,
	); err != nil {
		return fmt.Errorf("商品の登録に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
