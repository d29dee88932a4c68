// Package interpreter は言語モデルの自由形式の応答を構造化データに変換する。
//
// 応答は信頼できない入力として扱う。JSONとして解釈できない場合や
// 期待する形に合わない場合は空の結果に縮退し、エラーは呼び出し元に返さず
// ログとメトリクスにのみ記録する。
package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/model"
	"github.com/hitoshi/foodwallet/internal/validation"
)

// 応答の種類
const (
	KindRecipes = "recipes"
	KindKPIs    = "kpis"
)

// rawExcerptLimit はログに残す応答本文の最大文字数。
const rawExcerptLimit = 200

const fence = "```"

// StripFence は前後の空白を除去し、先頭の ```json または ``` と末尾の ``` を1つずつ取り除く。
// フェンスがない場合は空白除去のみ行う。
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, fence); ok {
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		s = rest
	}
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, fence); ok {
		s = rest
	}
	return strings.TrimSpace(s)
}

// Parse はフェンスを取り除いた応答をJSONとして厳密に解析する。
// 数値はjson.Numberとして保持し、JSON値の後に続くデータがあればエラーとする。
func Parse(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(StripFence(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// Interpreter は用途ごとのスキーマで応答を検証する。
type Interpreter struct {
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	validate *validator.Validate
}

// New は新しいInterpreterを生成する。
func New(logger *slog.Logger, m metrics.MetricsCollector) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Interpreter{
		logger:   logger,
		metrics:  m,
		validate: validation.New(),
	}
}

// Recipes はレシピ提案の応答を解釈する。
// 応答がレシピの配列でない場合や、1件でも必須項目を欠くレシピがある場合は空のスライスを返す。
func (i *Interpreter) Recipes(ctx context.Context, raw string) []model.Recipe {
	recipes, err := i.decodeRecipes(raw)
	if err != nil {
		i.report(ctx, KindRecipes, raw, err)
		return []model.Recipe{}
	}
	return recipes
}

func (i *Interpreter) decodeRecipes(raw string) ([]model.Recipe, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := v.([]any); !ok {
		return nil, fmt.Errorf("expected a JSON array, got %s", jsonKind(v))
	}

	var recipes []model.Recipe
	if err := json.Unmarshal([]byte(StripFence(raw)), &recipes); err != nil {
		return nil, fmt.Errorf("recipe shape mismatch: %w", err)
	}
	for idx := range recipes {
		if err := i.validate.Struct(recipes[idx]); err != nil {
			return nil, fmt.Errorf("recipe %d: %s", idx, validation.Describe(err))
		}
	}
	return recipes, nil
}

// KPIs は消費・廃棄指標の応答を解釈する。
// 応答が5つのキーをちょうど持ち、すべての値が空でない文字列であるオブジェクトでない場合は
// 空のレポートを返す。
func (i *Interpreter) KPIs(ctx context.Context, raw string) model.KPIReport {
	report, err := decodeKPIs(raw)
	if err != nil {
		i.report(ctx, KindKPIs, raw, err)
		return model.KPIReport{}
	}
	return report
}

func decodeKPIs(raw string) (model.KPIReport, error) {
	v, err := Parse(raw)
	if err != nil {
		return model.KPIReport{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return model.KPIReport{}, fmt.Errorf("expected a JSON object, got %s", jsonKind(v))
	}
	if len(obj) != len(model.KPIKeys) {
		return model.KPIReport{}, fmt.Errorf("expected %d keys, got %d", len(model.KPIKeys), len(obj))
	}

	values := make(map[string]string, len(obj))
	for _, key := range model.KPIKeys {
		val, ok := obj[key]
		if !ok {
			return model.KPIReport{}, fmt.Errorf("missing key %q", key)
		}
		s, ok := val.(string)
		if !ok {
			return model.KPIReport{}, fmt.Errorf("key %q must be a string, got %s", key, jsonKind(val))
		}
		if strings.TrimSpace(s) == "" {
			return model.KPIReport{}, fmt.Errorf("key %q must not be empty", key)
		}
		values[key] = s
	}

	return model.KPIReport{
		TotalWastedValue:         values["totalWastedValue"],
		TotalFridgeValue:         values["totalFridgeValue"],
		PotentialSavings:         values["potentialSavings"],
		RecommendedGroceryBudget: values["recommendedGroceryBudget"],
		EnvironmentalImpact:      values["environmentalImpact"],
	}, nil
}

func (i *Interpreter) report(ctx context.Context, kind, raw string, cause error) {
	merr := &model.MalformedResponseError{Kind: kind, Reason: cause.Error(), Raw: excerpt(raw)}
	i.metrics.RecordMalformedResponse(kind)
	i.logger.WarnContext(ctx, "malformed model response",
		slog.String("kind", merr.Kind),
		slog.String("reason", merr.Reason),
		slog.String("raw", merr.Raw),
	)
}

func excerpt(raw string) string {
	if utf8.RuneCountInString(raw) <= rawExcerptLimit {
		return raw
	}
	var b bytes.Buffer
	n := 0
	for _, r := range raw {
		if n == rawExcerptLimit {
			break
		}
		b.WriteRune(r)
		n++
	}
	b.WriteString("...")
	return b.String()
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
