package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/foodwallet/internal/model"
)

func TestInsightHandler_SuggestRecipes(t *testing.T) {
	svc := &mockInsightService{
		recipesFn: func(ctx context.Context, userID string) ([]model.Recipe, error) {
			return []model.Recipe{{Title: "Omelette", Ingredients: []string{"Eggs"}, Instructions: []string{"Whisk", "Fry"}}}, nil
		},
	}

	w := httptest.NewRecorder()
	NewInsightHandler(svc).SuggestRecipes(w, withUser(newRequest(http.MethodGet, "/api/insights/recipes", "")))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp recipesResponse
	decodeBody(t, w, &resp)
	if len(resp.Recipes) != 1 || resp.Recipes[0].Title != "Omelette" {
		t.Errorf("recipes = %+v", resp.Recipes)
	}
}

func TestInsightHandler_SuggestRecipes_DegradedIsEmptyArray(t *testing.T) {
	svc := &mockInsightService{
		recipesFn: func(ctx context.Context, userID string) ([]model.Recipe, error) {
			return nil, nil
		},
	}

	w := httptest.NewRecorder()
	NewInsightHandler(svc).SuggestRecipes(w, withUser(newRequest(http.MethodGet, "/api/insights/recipes", "")))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "{\"recipes\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestInsightHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"在庫なし", model.NewNoItemsError(), http.StatusUnprocessableEntity, model.ErrCodeNoItems},
		{"言語モデル障害", model.NewLLMUnavailableError(), http.StatusBadGateway, model.ErrCodeLLMUnavailable},
		{"ユーザーなし", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockInsightService{
				recipesFn: func(ctx context.Context, userID string) ([]model.Recipe, error) { return nil, tt.err },
			}
			w := httptest.NewRecorder()
			NewInsightHandler(svc).SuggestRecipes(w, withUser(newRequest(http.MethodGet, "/api/insights/recipes", "")))
			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestInsightHandler_ComputeKPIs(t *testing.T) {
	t.Run("camelCaseのキーで返す", func(t *testing.T) {
		svc := &mockInsightService{
			kpisFn: func(ctx context.Context, userID string) (model.KPIReport, error) {
				return model.KPIReport{
					TotalWastedValue:         "$2.00",
					TotalFridgeValue:         "$10.00",
					PotentialSavings:         "$2.00",
					RecommendedGroceryBudget: "$50.00",
					EnvironmentalImpact:      "1.1 kg CO2e",
				}, nil
			},
		}
		w := httptest.NewRecorder()
		NewInsightHandler(svc).ComputeKPIs(w, withUser(newRequest(http.MethodGet, "/api/insights/kpis", "")))

		var resp map[string]string
		decodeBody(t, w, &resp)
		for _, key := range model.KPIKeys {
			if resp[key] == "" {
				t.Errorf("missing key %q in %v", key, resp)
			}
		}
	})

	t.Run("不正な応答は空オブジェクト", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewInsightHandler(&mockInsightService{}).ComputeKPIs(w, withUser(newRequest(http.MethodGet, "/api/insights/kpis", "")))

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "{}\n" {
			t.Errorf("body = %q, want {}", got)
		}
	})
}

func TestInsightHandler_Chat(t *testing.T) {
	ts := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	var gotMessage string
	svc := &mockInsightService{
		chatFn: func(ctx context.Context, userID, message string) (chatMessageResponse, error) {
			gotMessage = message
			return chatMessageResponse{Role: model.RoleAssistant, Content: "Make an omelette.", Timestamp: ts}, nil
		},
	}

	w := httptest.NewRecorder()
	NewInsightHandler(svc).Chat(w, withUser(newRequest(http.MethodPost, "/api/chat", `{"message":"What's for dinner?"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotMessage != "What's for dinner?" {
		t.Errorf("message = %q", gotMessage)
	}
	var resp chatReplyResponse
	decodeBody(t, w, &resp)
	if resp.Reply.Role != model.RoleAssistant || resp.Reply.Content != "Make an omelette." || !resp.Reply.Timestamp.Equal(ts) {
		t.Errorf("reply = %+v", resp.Reply)
	}
}

func TestInsightHandler_Chat_Errors(t *testing.T) {
	t.Run("不正なJSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewInsightHandler(&mockInsightService{}).Chat(w, withUser(newRequest(http.MethodPost, "/api/chat", `message`)))
		assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeInvalidRequest)
	})

	t.Run("空のメッセージ", func(t *testing.T) {
		svc := &mockInsightService{
			chatFn: func(ctx context.Context, userID, message string) (chatMessageResponse, error) {
				return chatMessageResponse{}, model.NewValidationError("message is required")
			},
		}
		w := httptest.NewRecorder()
		NewInsightHandler(svc).Chat(w, withUser(newRequest(http.MethodPost, "/api/chat", `{"message":""}`)))
		assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidationFailed)
	})
}

func TestInsightHandler_ChatHistory(t *testing.T) {
	svc := &mockInsightService{
		historyFn: func(ctx context.Context, userID string) ([]chatMessageResponse, error) {
			return []chatMessageResponse{
				{Role: model.RoleSystem, Content: "inventory"},
				{Role: model.RoleUser, Content: "hi"},
				{Role: model.RoleAssistant, Content: "hello"},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	NewInsightHandler(svc).ChatHistory(w, withUser(newRequest(http.MethodGet, "/api/chat", "")))

	var resp chatHistoryResponse
	decodeBody(t, w, &resp)
	if len(resp.Messages) != 3 || resp.Messages[2].Content != "hello" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestToChatMessageResponse_NormalizesToUTC(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	got := toChatMessageResponse(model.Message{Role: model.RoleUser, Content: "hi", Timestamp: time.Date(2024, 1, 5, 21, 0, 0, 0, jst)})
	if got.Timestamp.Location() != time.UTC || got.Timestamp.Hour() != 12 {
		t.Errorf("timestamp = %v, want 12:00 UTC", got.Timestamp)
	}
}
