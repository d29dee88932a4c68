package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/foodwallet/internal/model"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	// LookupProduct はバーコードから商品情報を取得する。
	LookupProduct(ctx context.Context, code string) (*model.Product, error)
}

// ProductHandler は商品情報参照のHTTPハンドラー。
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

type productLookupRequest struct {
	Code string `json:"code"`
}

type productResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

type productLookupResponse struct {
	ProductFound bool            `json:"product_found"`
	Product      productResponse `json:"product"`
}

// Lookup はバーコードで商品を検索する。
// POST /api/products/lookup
func (h *ProductHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req productLookupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.LookupProduct(r.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productLookupResponse{
		ProductFound: true,
		Product: productResponse{
			Code:     product.Code,
			Name:     product.Name,
			Brand:    product.Brand,
			Category: product.Category,
		},
	})
}
