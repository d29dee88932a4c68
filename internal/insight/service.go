// Package insight は在庫から洞察（レシピ提案、消費・廃棄指標、アシスタントとの会話）を生成する。
//
// 各操作は最新の在庫を読み直し、依頼文を組み立て、言語モデルを1回だけ呼び出し、
// 応答を検証してから返す。リトライは行わない。
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitoshi/foodwallet/internal/interpreter"
	"github.com/hitoshi/foodwallet/internal/llm"
	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/prompt"
	"github.com/hitoshi/foodwallet/internal/repository"
	"github.com/hitoshi/foodwallet/internal/security"
)

// 言語モデルの用途
const (
	UseCaseRecipes = "recipes"
	UseCaseKPIs    = "kpis"
	UseCaseChat    = "chat"
)

// 用途ごとのtemperature
const (
	recipeTemperature float32 = 0.7
	kpiTemperature    float32 = 0.2
	chatTemperature   float32 = 0.7
)

// MaxChatMessageLength はチャットメッセージの最大文字数。
const MaxChatMessageLength = 4000

const tracerName = "github.com/hitoshi/foodwallet/internal/insight"

// Config は洞察サービスの設定。
type Config struct {
	LLMTimeout time.Duration  // 言語モデル1回の呼び出しの上限時間
	Location   *time.Location // 「今日」を判定するタイムゾーン

	// TracerProvider はスパンの記録先。nilの場合はotelのグローバルを使う。
	TracerProvider trace.TracerProvider
}

// Service は洞察生成のオーケストレーター。
type Service struct {
	users         repository.UserRepository
	items         repository.ItemRepository
	conversations repository.ConversationRepository
	llm           llm.Completer
	interpreter   *interpreter.Interpreter
	sanitizer     security.TextSanitizer
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	tracer        trace.Tracer
	config        Config
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	users repository.UserRepository,
	items repository.ItemRepository,
	conversations repository.ConversationRepository,
	completer llm.Completer,
	interp *interpreter.Interpreter,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
	logger *slog.Logger,
	config Config,
) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	return &Service{
		users:         users,
		items:         items,
		conversations: conversations,
		llm:           completer,
		interpreter:   interp,
		sanitizer:     sanitizer,
		metrics:       m,
		logger:        logger,
		tracer:        config.TracerProvider.Tracer(tracerName),
		config:        config,
		now:           time.Now,
	}
}

// SuggestRecipes は在庫から賞味期限の近い食品を優先したレシピを提案する。
// 在庫が空の場合はNoItemsエラーを返す。応答が不正な場合は空のスライスを返す。
func (s *Service) SuggestRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	ctx, span := s.tracer.Start(ctx, "insight.SuggestRecipes", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	items, err := s.loadItems(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.NewNoItemsError()
	}
	span.SetAttributes(attribute.Int("item_count", len(items)))

	raw, err := s.complete(ctx, UseCaseRecipes, prompt.Recipe(items), recipeTemperature)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	recipes := s.interpreter.Recipes(ctx, raw)
	span.SetAttributes(attribute.Int("recipe_count", len(recipes)))
	return recipes, nil
}

// ComputeKPIs は期限切れ・期限内の在庫から消費・廃棄指標を推計する。
// 在庫が空でも実行する。応答が不正な場合は空のレポートを返す。
func (s *Service) ComputeKPIs(ctx context.Context, userID string) (model.KPIReport, error) {
	ctx, span := s.tracer.Start(ctx, "insight.ComputeKPIs", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return model.KPIReport{}, err
	}
	items, err := s.loadItems(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return model.KPIReport{}, err
	}

	today := s.now().In(s.config.Location)
	span.SetAttributes(
		attribute.Int("item_count", len(items)),
		attribute.String("today", model.CalendarDate(today).Format(model.CalendarDateLayout)),
	)

	raw, err := s.complete(ctx, UseCaseKPIs, prompt.KPI(items, today), kpiTemperature)
	if err != nil {
		recordSpanError(span, err)
		return model.KPIReport{}, err
	}
	return s.interpreter.KPIs(ctx, raw), nil
}

// ChatTurn はアシスタントとの会話を1ターン進め、アシスタントの返信を返す。
// 成功した場合のみ、在庫のシステムメッセージ・ユーザーメッセージ・返信の3件を会話に追記する。
func (s *Service) ChatTurn(ctx context.Context, userID, message string) (model.Message, error) {
	ctx, span := s.tracer.Start(ctx, "insight.ChatTurn", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	message = s.sanitizer.Clean(message)
	if message == "" {
		return model.Message{}, model.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		return model.Message{}, model.NewValidationError(fmt.Sprintf("message must be at most %d characters", MaxChatMessageLength))
	}

	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return model.Message{}, err
	}
	items, err := s.loadItems(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return model.Message{}, err
	}

	conv, err := s.conversations.FindByUserID(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return model.Message{}, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	var history []model.Message
	if conv != nil {
		history = conv.Messages
	}
	span.SetAttributes(
		attribute.Int("item_count", len(items)),
		attribute.Int("history_length", len(history)),
		attribute.Bool("first_turn", conv == nil),
	)

	msgs := prompt.Chat(items, history, message)
	reply, err := s.complete(ctx, UseCaseChat, msgs, chatTemperature)
	if err != nil {
		recordSpanError(span, err)
		return model.Message{}, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.WarnContext(ctx, "empty assistant reply", slog.String("user_id", userID))
		s.metrics.RecordMalformedResponse(UseCaseChat)
		return model.Message{}, model.NewLLMUnavailableError()
	}

	now := s.now().UTC()
	turn := []model.Message{
		{Role: model.RoleSystem, Content: msgs[0].Content, Timestamp: now},
		{Role: model.RoleUser, Content: message, Timestamp: now},
		{Role: model.RoleAssistant, Content: reply, Timestamp: now},
	}
	if err := s.conversations.AppendMessages(ctx, userID, turn); err != nil {
		recordSpanError(span, err)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Message{}, model.NewUserNotFoundError()
		}
		return model.Message{}, fmt.Errorf("会話の保存に失敗しました: %w", err)
	}

	return turn[2], nil
}

// History はユーザーの会話履歴を返す。会話がまだない場合は空のスライスを返す。
func (s *Service) History(ctx context.Context, userID string) ([]model.Message, error) {
	userID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if conv == nil || conv.Messages == nil {
		return []model.Message{}, nil
	}
	return conv.Messages, nil
}

// complete は言語モデルを LLMTimeout の範囲で1回呼び出す。
// 失敗はLLMUnavailableエラーに変換する。
func (s *Service) complete(ctx context.Context, useCase string, msgs []model.Message, temperature float32) (string, error) {
	ctx, span := s.tracer.Start(ctx, "llm.Complete", trace.WithAttributes(
		attribute.String("use_case", useCase),
		attribute.Int("messages_count", len(msgs)),
		attribute.Float64("temperature", float64(temperature)),
	))
	defer span.End()

	if s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, msgs, temperature)
	elapsed := time.Since(start)

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		s.metrics.RecordLLMRequest(useCase, outcome, elapsed)
		s.logger.ErrorContext(ctx, "language model call failed",
			slog.String("use_case", useCase),
			slog.String("outcome", outcome),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, "llm call failed")
		span.RecordError(err)
		return "", model.NewLLMUnavailableError()
	}

	s.metrics.RecordLLMRequest(useCase, metrics.OutcomeSuccess, elapsed)
	span.AddEvent("llm response received", trace.WithAttributes(
		attribute.Int("response_length", len(raw)),
		attribute.Float64("elapsed_seconds", elapsed.Seconds()),
	))
	return raw, nil
}

func (s *Service) loadItems(ctx context.Context, userID string) ([]model.RefrigeratedItem, error) {
	items, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("食品一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// requireUser はユーザーの存在を確認し、ストアに渡す正規形のユーザーIDを返す。
func (s *Service) requireUser(ctx context.Context, userID string) (string, error) {
	u, err := uuid.Parse(userID)
	if err != nil {
		return "", model.NewInvalidIDError(userID)
	}
	id := u.String()
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError()
	}
	return id, nil
}

func recordSpanError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
