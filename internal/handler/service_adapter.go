package handler

import (
	"context"

	"github.com/hitoshi/foodwallet/internal/insight"
	"github.com/hitoshi/foodwallet/internal/inventory"
	"github.com/hitoshi/foodwallet/internal/model"
)

// ItemServiceAdapter は inventory.Service を ItemServiceInterface に適合させるアダプタ。
type ItemServiceAdapter struct {
	svc *inventory.Service
}

// NewItemServiceAdapter は inventory.Service から ItemServiceInterface を生成する。
func NewItemServiceAdapter(svc *inventory.Service) *ItemServiceAdapter {
	return &ItemServiceAdapter{svc: svc}
}

// ListItems は食品一覧をhandlerレスポンス型で返す。
func (a *ItemServiceAdapter) ListItems(ctx context.Context, userID string) ([]itemResponse, error) {
	return toItemResponses(a.svc.GetItems(ctx, userID))
}

// AddItem は食品を追加し、追加後の一覧をhandlerレスポンス型で返す。
func (a *ItemServiceAdapter) AddItem(ctx context.Context, userID string, in model.NewItem, manualEntry bool) ([]itemResponse, error) {
	return toItemResponses(a.svc.AddItem(ctx, userID, in, manualEntry))
}

// UpdateItem は食品を部分更新し、更新後の一覧をhandlerレスポンス型で返す。
func (a *ItemServiceAdapter) UpdateItem(ctx context.Context, userID, itemID string, patch model.ItemPatch) ([]itemResponse, error) {
	return toItemResponses(a.svc.UpdateItem(ctx, userID, itemID, patch))
}

// RemoveItem は食品を削除し、削除後の一覧をhandlerレスポンス型で返す。
func (a *ItemServiceAdapter) RemoveItem(ctx context.Context, userID, itemID string) ([]itemResponse, error) {
	return toItemResponses(a.svc.RemoveItem(ctx, userID, itemID))
}

// toItemResponses はドメインの食品一覧をhandlerのレスポンス型に変換する。
func toItemResponses(items []model.RefrigeratedItem, err error) ([]itemResponse, error) {
	if err != nil {
		return nil, err
	}
	results := make([]itemResponse, len(items))
	for i, it := range items {
		results[i] = itemResponse{
			ID:             it.ID,
			Code:           it.Code,
			Name:           it.Name,
			Brand:          it.Brand,
			Category:       it.Category,
			Quantity:       string(it.Quantity),
			ExpirationDate: model.FormatCalendarDate(it.ExpirationDate),
			Price:          it.Price,
			CreatedAt:      it.CreatedAt,
		}
	}
	return results, nil
}

// InsightServiceAdapter は insight.Service を InsightServiceInterface に適合させるアダプタ。
type InsightServiceAdapter struct {
	svc *insight.Service
}

// NewInsightServiceAdapter はInsightServiceAdapterを生成する。
func NewInsightServiceAdapter(svc *insight.Service) *InsightServiceAdapter {
	return &InsightServiceAdapter{svc: svc}
}

// SuggestRecipes はレシピ提案を返す。
func (a *InsightServiceAdapter) SuggestRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	return a.svc.SuggestRecipes(ctx, userID)
}

// ComputeKPIs は消費・廃棄指標を返す。
func (a *InsightServiceAdapter) ComputeKPIs(ctx context.Context, userID string) (model.KPIReport, error) {
	return a.svc.ComputeKPIs(ctx, userID)
}

// ChatTurn は会話を1ターン進め、返信をhandlerレスポンス型で返す。
func (a *InsightServiceAdapter) ChatTurn(ctx context.Context, userID, message string) (chatMessageResponse, error) {
	reply, err := a.svc.ChatTurn(ctx, userID, message)
	if err != nil {
		return chatMessageResponse{}, err
	}
	return toChatMessageResponse(reply), nil
}

// History は会話履歴をhandlerレスポンス型で返す。
func (a *InsightServiceAdapter) History(ctx context.Context, userID string) ([]chatMessageResponse, error) {
	messages, err := a.svc.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]chatMessageResponse, len(messages))
	for i, m := range messages {
		results[i] = toChatMessageResponse(m)
	}
	return results, nil
}

func toChatMessageResponse(m model.Message) chatMessageResponse {
	return chatMessageResponse{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
	}
}

// --- compile-time interface checks ---

var _ ItemServiceInterface = (*ItemServiceAdapter)(nil)
var _ InsightServiceInterface = (*InsightServiceAdapter)(nil)
