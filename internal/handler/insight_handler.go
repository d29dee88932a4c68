package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/foodwallet/internal/model"
)

// InsightServiceInterface は洞察ハンドラーが必要とするサービスインターフェース。
type InsightServiceInterface interface {
	// SuggestRecipes は在庫からレシピを提案する。
	SuggestRecipes(ctx context.Context, userID string) ([]model.Recipe, error)
	// ComputeKPIs は消費・廃棄指標を推計する。
	ComputeKPIs(ctx context.Context, userID string) (model.KPIReport, error)
	// ChatTurn はアシスタントとの会話を1ターン進める。
	ChatTurn(ctx context.Context, userID, message string) (chatMessageResponse, error)
	// History は会話履歴を返す。
	History(ctx context.Context, userID string) ([]chatMessageResponse, error)
}

// InsightHandler はレシピ提案・KPI・チャットのHTTPハンドラー。
type InsightHandler struct {
	service InsightServiceInterface
}

// NewInsightHandler はInsightHandlerを生成する。
func NewInsightHandler(service InsightServiceInterface) *InsightHandler {
	return &InsightHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

type recipesResponse struct {
	Recipes []model.Recipe `json:"recipes"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatMessageResponse は会話の1メッセージのレスポンス。
type chatMessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type chatReplyResponse struct {
	Reply chatMessageResponse `json:"reply"`
}

type chatHistoryResponse struct {
	Messages []chatMessageResponse `json:"messages"`
}

// SuggestRecipes は在庫からレシピを提案する。
// 言語モデルの応答が不正な場合は空の配列を返す。
// GET /api/insights/recipes
func (h *InsightHandler) SuggestRecipes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	recipes, err := h.service.SuggestRecipes(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}

	writeJSON(w, http.StatusOK, recipesResponse{Recipes: recipes})
}

// ComputeKPIs は消費・廃棄指標を返す。
// 言語モデルの応答が不正な場合は空のオブジェクトを返す。
// GET /api/insights/kpis
func (h *InsightHandler) ComputeKPIs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := h.service.ComputeKPIs(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Chat はアシスタントにメッセージを送り、返信を返す。
// POST /api/chat
func (h *InsightHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := h.service.ChatTurn(r.Context(), userID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatReplyResponse{Reply: reply})
}

// ChatHistory は会話履歴を返す。
// GET /api/chat
func (h *InsightHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	messages, err := h.service.History(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatHistoryResponse{Messages: messages})
}
