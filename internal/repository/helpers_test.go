package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/foodwallet/internal/model"
)

func mustDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := model.ParseCalendarDate(s)
	if err != nil {
		t.Fatalf("ParseCalendarDate(%q): %v", s, err)
	}
	return d
}

func mustDecimal(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return &d
}

// runConcurrentItemUpdates は同じユーザーの異なる食品を並行して更新し、
// どちらの更新も失われないことを検証する。
func runConcurrentItemUpdates(t *testing.T, stores *Stores) {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	u := &model.User{ID: uuid.NewString(), FirstName: "Con", LastName: "Current", Email: uuid.NewString() + "@example.com", CreatedAt: now, UpdatedAt: now}
	if err := stores.Users.Create(ctx, u); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	a := &model.RefrigeratedItem{ID: uuid.NewString(), Name: "A", CreatedAt: now}
	b := &model.RefrigeratedItem{ID: uuid.NewString(), Name: "B", CreatedAt: now}
	for _, item := range []*model.RefrigeratedItem{a, b} {
		if err := stores.Items.Add(ctx, u.ID, item); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("A-%d", i)
			errs <- stores.Items.Update(ctx, u.ID, a.ID, model.ItemPatch{Name: &name})
		}(i)
		go func(i int) {
			defer wg.Done()
			qty := model.Quantity(fmt.Sprintf("%d", i))
			errs <- stores.Items.Update(ctx, u.ID, b.ID, model.ItemPatch{Quantity: &qty})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
	}

	items, err := stores.Items.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Name == "A" {
		t.Error("updates to item A were lost")
	}
	if items[1].Quantity == "" {
		t.Error("updates to item B were lost")
	}
	if items[1].Name != "B" {
		t.Errorf("item B name = %q, want %q", items[1].Name, "B")
	}
}
