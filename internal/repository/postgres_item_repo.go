package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/foodwallet/internal/model"
)

// PostgresItemRepo はPostgreSQLを使用した食品リポジトリ。
// 食品はrefrigerated_itemsテーブルの1行として (user_id, id) 単位で更新する。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// ListByUser はユーザーの食品を登録順に返す。
func (r *PostgresItemRepo) ListByUser(ctx context.Context, userID string) ([]model.RefrigeratedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, brand, category, quantity, expiration_date, price, created_at
		 FROM refrigerated_items
		 WHERE user_id = $1
		 ORDER BY seq`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("食品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.RefrigeratedItem{}
	for rows.Next() {
		var item model.RefrigeratedItem
		var quantity string
		var expirationDate sql.NullTime
		var price decimal.NullDecimal
		if err := rows.Scan(
			&item.ID, &item.Code, &item.Name, &item.Brand, &item.Category,
			&quantity, &expirationDate, &price, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("食品のスキャンに失敗しました: %w", err)
		}
		item.Quantity = model.Quantity(quantity)
		if expirationDate.Valid {
			d := model.CalendarDate(expirationDate.Time)
			item.ExpirationDate = &d
		}
		if price.Valid {
			p := price.Decimal
			item.Price = &p
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("食品一覧の読み込みに失敗しました: %w", err)
	}

	return items, nil
}

// Add は食品を追加する。ユーザーが存在しない場合はErrNotFoundを返す。
func (r *PostgresItemRepo) Add(ctx context.Context, userID string, item *model.RefrigeratedItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refrigerated_items
		   (id, user_id, code, name, brand, category, quantity, expiration_date, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, userID, item.Code, item.Name, item.Brand, item.Category,
		string(item.Quantity), dateParam(item.ExpirationDate), priceParam(item.Price), item.CreatedAt,
	)
	if isPQError(err, pqForeignKeyViolation) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("食品の追加に失敗しました: %w", err)
	}
	return nil
}

// Update はパッチのnilでないフィールドだけを上書きする。
// COALESCEにより、指定のないカラムは同時に行われた別の更新を保持する。
func (r *PostgresItemRepo) Update(ctx context.Context, userID, itemID string, patch model.ItemPatch) error {
	var quantity *string
	if patch.Quantity != nil {
		q := string(*patch.Quantity)
		quantity = &q
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE refrigerated_items SET
		   code            = COALESCE($3, code),
		   name            = COALESCE($4, name),
		   brand           = COALESCE($5, brand),
		   category        = COALESCE($6, category),
		   quantity        = COALESCE($7, quantity),
		   expiration_date = COALESCE($8::date, expiration_date),
		   price           = COALESCE($9::numeric, price)
		 WHERE user_id = $1 AND id = $2`,
		userID, itemID,
		patch.Code, patch.Name, patch.Brand, patch.Category, quantity,
		dateParam(patch.ExpirationDate), priceParam(patch.Price),
	)
	if err != nil {
		return fmt.Errorf("食品の更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove は食品を削除する。存在しない場合も成功として扱う。
func (r *PostgresItemRepo) Remove(ctx context.Context, userID, itemID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM refrigerated_items WHERE user_id = $1 AND id = $2`,
		userID, itemID,
	); err != nil {
		return fmt.Errorf("食品の削除に失敗しました: %w", err)
	}
	return nil
}

// dateParam は暦日をDATE型のパラメータに変換する。
func dateParam(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(model.CalendarDateLayout)
}

// priceParam は価格をNUMERIC型のパラメータに変換する。
func priceParam(p *decimal.Decimal) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
