package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/foodwallet/internal/auth"
	"github.com/hitoshi/foodwallet/internal/middleware"
	"github.com/hitoshi/foodwallet/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn func(ctx context.Context, in auth.SignupInput) (*model.User, error)
	loginFn  func(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return &model.User{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialError()
}

type mockProductService struct {
	lookupFn func(ctx context.Context, code string) (*model.Product, error)
}

func (m *mockProductService) LookupProduct(ctx context.Context, code string) (*model.Product, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, code)
	}
	return nil, model.NewProductNotFoundError(code)
}

type mockItemService struct {
	listFn   func(ctx context.Context, userID string) ([]itemResponse, error)
	addFn    func(ctx context.Context, userID string, in model.NewItem, manualEntry bool) ([]itemResponse, error)
	updateFn func(ctx context.Context, userID, itemID string, patch model.ItemPatch) ([]itemResponse, error)
	removeFn func(ctx context.Context, userID, itemID string) ([]itemResponse, error)
}

func (m *mockItemService) ListItems(ctx context.Context, userID string) ([]itemResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []itemResponse{}, nil
}

func (m *mockItemService) AddItem(ctx context.Context, userID string, in model.NewItem, manualEntry bool) ([]itemResponse, error) {
	if m.addFn != nil {
		return m.addFn(ctx, userID, in, manualEntry)
	}
	return []itemResponse{}, nil
}

func (m *mockItemService) UpdateItem(ctx context.Context, userID, itemID string, patch model.ItemPatch) ([]itemResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, itemID, patch)
	}
	return []itemResponse{}, nil
}

func (m *mockItemService) RemoveItem(ctx context.Context, userID, itemID string) ([]itemResponse, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, itemID)
	}
	return []itemResponse{}, nil
}

type mockInsightService struct {
	recipesFn func(ctx context.Context, userID string) ([]model.Recipe, error)
	kpisFn    func(ctx context.Context, userID string) (model.KPIReport, error)
	chatFn    func(ctx context.Context, userID, message string) (chatMessageResponse, error)
	historyFn func(ctx context.Context, userID string) ([]chatMessageResponse, error)
}

func (m *mockInsightService) SuggestRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	if m.recipesFn != nil {
		return m.recipesFn(ctx, userID)
	}
	return []model.Recipe{}, nil
}

func (m *mockInsightService) ComputeKPIs(ctx context.Context, userID string) (model.KPIReport, error) {
	if m.kpisFn != nil {
		return m.kpisFn(ctx, userID)
	}
	return model.KPIReport{}, nil
}

func (m *mockInsightService) ChatTurn(ctx context.Context, userID, message string) (chatMessageResponse, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, userID, message)
	}
	return chatMessageResponse{}, nil
}

func (m *mockInsightService) History(ctx context.Context, userID string) ([]chatMessageResponse, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID)
	}
	return []chatMessageResponse{}, nil
}

// --- ヘルパー ---

const testUserID = "6f1c2b9e-8d3a-4c5f-9e7b-1a2b3c4d5e6f"

// newRequest はJSONボディ付きのリクエストを生成する。
func newRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// withUser は認証済みユーザーをコンテキストに設定したリクエストを返す。
func withUser(req *http.Request) *http.Request {
	user := &model.User{ID: testUserID, FirstName: "Hanako", LastName: "Yamada", Email: "hanako@example.com"}
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response body: %v\nraw: %s", err, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	var body apiErrorResponse
	decodeBody(t, w, &body)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
}
