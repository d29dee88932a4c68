package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/foodwallet/internal/model"
)

// ItemServiceInterface は食品ハンドラーが必要とするサービスインターフェース。
// 変更系の操作はすべて変更後の一覧を返す。
type ItemServiceInterface interface {
	// ListItems はユーザーの冷蔵庫の食品一覧を返す。
	ListItems(ctx context.Context, userID string) ([]itemResponse, error)
	// AddItem は食品を追加する。
	AddItem(ctx context.Context, userID string, in model.NewItem, manualEntry bool) ([]itemResponse, error)
	// UpdateItem は食品を部分更新する。
	UpdateItem(ctx context.Context, userID, itemID string, patch model.ItemPatch) ([]itemResponse, error)
	// RemoveItem は食品を削除する。存在しない食品の削除も成功する。
	RemoveItem(ctx context.Context, userID, itemID string) ([]itemResponse, error)
}

// ItemHandler は冷蔵庫の食品管理のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// itemResponse は食品1件のレスポンス。
type itemResponse struct {
	ID             string           `json:"id"`
	Code           string           `json:"code,omitempty"`
	Name           string           `json:"name"`
	Brand          string           `json:"brand,omitempty"`
	Category       string           `json:"category,omitempty"`
	Quantity       string           `json:"quantity,omitempty"`
	ExpirationDate string           `json:"expiration_date,omitempty"` // YYYY-MM-DD
	Price          *decimal.Decimal `json:"price,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// itemListResponse は食品一覧のレスポンス。
type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

// addItemRequest は食品追加リクエストのボディ。
// quantity は数値と文字列の両方を受け付ける。
type addItemRequest struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Brand          string           `json:"brand"`
	Category       string           `json:"category"`
	Quantity       model.Quantity   `json:"quantity"`
	ExpirationDate string           `json:"expiration_date"`
	Price          *decimal.Decimal `json:"price"`
	ManualEntry    bool             `json:"manual_entry"`
}

// updateItemRequest は食品更新リクエストのボディ。省略したフィールドは変更しない。
type updateItemRequest struct {
	Code           *string          `json:"code"`
	Name           *string          `json:"name"`
	Brand          *string          `json:"brand"`
	Category       *string          `json:"category"`
	Quantity       *model.Quantity  `json:"quantity"`
	ExpirationDate *string          `json:"expiration_date"`
	Price          *decimal.Decimal `json:"price"`
}

// ListItems は食品一覧を取得する。
// GET /api/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListItems(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemListResponse{Items: items})
}

// AddItem は食品を追加し、追加後の一覧を返す。
// POST /api/items
func (h *ItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expiration, err := model.ParseCalendarDate(req.ExpirationDate)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("expiration_date must be YYYY-MM-DD"))
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("price must not be negative"))
		return
	}

	items, err := h.service.AddItem(r.Context(), userID, model.NewItem{
		Code:           req.Code,
		Name:           req.Name,
		Brand:          req.Brand,
		Category:       req.Category,
		Quantity:       req.Quantity,
		ExpirationDate: expiration,
		Price:          req.Price,
	}, req.ManualEntry)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemListResponse{Items: items})
}

// UpdateItem は食品を部分更新し、更新後の一覧を返す。
// PATCH /api/items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "id")

	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := model.ItemPatch{
		Code:     req.Code,
		Name:     req.Name,
		Brand:    req.Brand,
		Category: req.Category,
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	if req.ExpirationDate != nil {
		expiration, err := model.ParseCalendarDate(*req.ExpirationDate)
		if err != nil || expiration == nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("expiration_date must be YYYY-MM-DD"))
			return
		}
		patch.ExpirationDate = expiration
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("price must not be negative"))
		return
	}

	// 更新するフィールドが1つもない場合はバリデーションエラー
	if patch.IsEmpty() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("at least one field must be specified"))
		return
	}

	items, err := h.service.UpdateItem(r.Context(), userID, itemID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemListResponse{Items: items})
}

// RemoveItem は食品を削除し、削除後の一覧を返す。
// DELETE /api/items/:id
func (h *ItemHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.RemoveItem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemListResponse{Items: items})
}
