package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/foodwallet/internal/model"
)

// runStoresContract はバックエンドに依存しない振る舞いを検証する。
// PostgreSQLとMongoDBの両方の実装に対して同じテストを実行する。
func runStoresContract(t *testing.T, stores *Stores) {
	t.Helper()
	ctx := context.Background()

	newUser := func(t *testing.T) *model.User {
		t.Helper()
		now := time.Now().UTC().Truncate(time.Millisecond)
		u := &model.User{
			ID:        uuid.NewString(),
			FirstName: "Alice",
			LastName:  "Smith",
			Email:     uuid.NewString() + "@example.com",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := stores.Users.Create(ctx, u); err != nil {
			t.Fatalf("ユーザー作成に失敗: %v", err)
		}
		return u
	}

	newItem := func(name string) *model.RefrigeratedItem {
		return &model.RefrigeratedItem{
			ID:        uuid.NewString(),
			Name:      name,
			Quantity:  "1",
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("ユーザーをIDとメールアドレスで取得できる", func(t *testing.T) {
		u := newUser(t)

		got, err := stores.Users.FindByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("FindByID returned error: %v", err)
		}
		if got == nil || got.Email != u.Email || got.FirstName != "Alice" {
			t.Fatalf("FindByID = %+v, want user %s", got, u.Email)
		}

		got, err = stores.Users.FindByEmail(ctx, u.Email)
		if err != nil {
			t.Fatalf("FindByEmail returned error: %v", err)
		}
		if got == nil || got.ID != u.ID {
			t.Fatalf("FindByEmail = %+v, want id %s", got, u.ID)
		}
	})

	t.Run("存在しないユーザーはnilを返す", func(t *testing.T) {
		got, err := stores.Users.FindByID(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("FindByID returned error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil user, got %+v", got)
		}
	})

	t.Run("メールアドレスの重複はErrDuplicate", func(t *testing.T) {
		u := newUser(t)
		dup := *u
		dup.ID = uuid.NewString()
		if err := stores.Users.Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
			t.Errorf("err = %v, want ErrDuplicate", err)
		}
	})

	t.Run("食品は登録順に返る", func(t *testing.T) {
		u := newUser(t)
		for _, name := range []string{"Milk", "Eggs", "Butter"} {
			if err := stores.Items.Add(ctx, u.ID, newItem(name)); err != nil {
				t.Fatalf("Add(%s) returned error: %v", name, err)
			}
		}

		items, err := stores.Items.ListByUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListByUser returned error: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("len(items) = %d, want 3", len(items))
		}
		for i, want := range []string{"Milk", "Eggs", "Butter"} {
			if items[i].Name != want {
				t.Errorf("items[%d].Name = %q, want %q", i, items[i].Name, want)
			}
		}
	})

	t.Run("存在しないユーザーへの追加はErrNotFound", func(t *testing.T) {
		err := stores.Items.Add(ctx, uuid.NewString(), newItem("Ghost"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("部分更新は指定フィールドのみ変更する", func(t *testing.T) {
		u := newUser(t)
		item := newItem("Milk")
		exp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		price := decimal.RequireFromString("3.50")
		item.Brand = "Acme"
		item.ExpirationDate = &exp
		item.Price = &price
		if err := stores.Items.Add(ctx, u.ID, item); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}

		qty := model.Quantity("2")
		if err := stores.Items.Update(ctx, u.ID, item.ID, model.ItemPatch{Quantity: &qty}); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}

		items, err := stores.Items.ListByUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListByUser returned error: %v", err)
		}
		got := items[0]
		if got.Quantity != "2" {
			t.Errorf("Quantity = %q, want %q", got.Quantity, "2")
		}
		if got.Name != "Milk" || got.Brand != "Acme" {
			t.Errorf("unpatched fields changed: %+v", got)
		}
		if got.ExpirationDate == nil || !got.ExpirationDate.Equal(exp) {
			t.Errorf("ExpirationDate = %v, want %v", got.ExpirationDate, exp)
		}
		if got.Price == nil || !got.Price.Equal(price) {
			t.Errorf("Price = %v, want %v", got.Price, price)
		}
	})

	t.Run("存在しない食品の更新はErrNotFound", func(t *testing.T) {
		u := newUser(t)
		name := "X"
		err := stores.Items.Update(ctx, u.ID, uuid.NewString(), model.ItemPatch{Name: &name})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		err = stores.Items.Update(ctx, u.ID, uuid.NewString(), model.ItemPatch{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("empty patch: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("削除は冪等", func(t *testing.T) {
		u := newUser(t)
		item := newItem("Milk")
		if err := stores.Items.Add(ctx, u.ID, item); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}

		for i := 0; i < 2; i++ {
			if err := stores.Items.Remove(ctx, u.ID, item.ID); err != nil {
				t.Fatalf("Remove #%d returned error: %v", i+1, err)
			}
		}

		items, err := stores.Items.ListByUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListByUser returned error: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("len(items) = %d, want 0", len(items))
		}
	})

	t.Run("商品は上書きされない", func(t *testing.T) {
		code := uuid.NewString()[:13]
		first := &model.Product{Code: code, Name: "Nutella", Brand: "Ferrero", Category: "Spreads", CreatedAt: time.Now().UTC()}
		if err := stores.Products.InsertIfAbsent(ctx, first); err != nil {
			t.Fatalf("InsertIfAbsent returned error: %v", err)
		}
		second := &model.Product{Code: code, Name: "Other", CreatedAt: time.Now().UTC()}
		if err := stores.Products.InsertIfAbsent(ctx, second); err != nil {
			t.Fatalf("second InsertIfAbsent returned error: %v", err)
		}

		got, err := stores.Products.FindByCode(ctx, code)
		if err != nil {
			t.Fatalf("FindByCode returned error: %v", err)
		}
		if got == nil || got.Name != "Nutella" {
			t.Errorf("FindByCode = %+v, want Nutella", got)
		}
	})

	t.Run("会話は追記のみでupsertされる", func(t *testing.T) {
		u := newUser(t)

		conv, err := stores.Conversations.FindByUserID(ctx, u.ID)
		if err != nil {
			t.Fatalf("FindByUserID returned error: %v", err)
		}
		if conv != nil {
			t.Fatalf("expected no conversation, got %+v", conv)
		}

		now := time.Now().UTC()
		turn := []model.Message{
			{Role: model.RoleSystem, Content: "inventory", Timestamp: now},
			{Role: model.RoleUser, Content: "hi", Timestamp: now},
			{Role: model.RoleAssistant, Content: "hello", Timestamp: now},
		}
		if err := stores.Conversations.AppendMessages(ctx, u.ID, turn); err != nil {
			t.Fatalf("AppendMessages returned error: %v", err)
		}
		if err := stores.Conversations.AppendMessages(ctx, u.ID, turn[1:]); err != nil {
			t.Fatalf("second AppendMessages returned error: %v", err)
		}

		conv, err = stores.Conversations.FindByUserID(ctx, u.ID)
		if err != nil {
			t.Fatalf("FindByUserID returned error: %v", err)
		}
		if conv == nil || len(conv.Messages) != 5 {
			t.Fatalf("conversation = %+v, want 5 messages", conv)
		}
		wantRoles := []string{"system", "user", "assistant", "user", "assistant"}
		for i, role := range wantRoles {
			if conv.Messages[i].Role != role {
				t.Errorf("Messages[%d].Role = %q, want %q", i, conv.Messages[i].Role, role)
			}
		}
	})

	t.Run("アカウントの作成と削除", func(t *testing.T) {
		account := &model.Account{
			ID:           uuid.NewString(),
			Email:        uuid.NewString() + "@example.com",
			PasswordHash: []byte("hash"),
			CreatedAt:    time.Now().UTC(),
		}
		if err := stores.Accounts.Create(ctx, account); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if err := stores.Accounts.Create(ctx, account); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate Create err = %v, want ErrDuplicate", err)
		}

		got, err := stores.Accounts.FindByEmail(ctx, account.Email)
		if err != nil {
			t.Fatalf("FindByEmail returned error: %v", err)
		}
		if got == nil || string(got.PasswordHash) != "hash" {
			t.Fatalf("FindByEmail = %+v, want account with hash", got)
		}

		if err := stores.Accounts.DeleteByID(ctx, account.ID); err != nil {
			t.Fatalf("DeleteByID returned error: %v", err)
		}
		got, err = stores.Accounts.FindByEmail(ctx, account.Email)
		if err != nil {
			t.Fatalf("FindByEmail returned error: %v", err)
		}
		if got != nil {
			t.Errorf("expected account to be deleted, got %+v", got)
		}
	})
}
