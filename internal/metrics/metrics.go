// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 言語モデル呼び出しの結果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// カタログ照会の結果
const (
	LookupCacheHit = "cache_hit"
	LookupFetched  = "fetched"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordLLMRequest(useCase, outcome string, duration time.Duration)
	RecordMalformedResponse(kind string)
	RecordHTTPStatus(statusCode int)
	RecordItemMutation(operation string)
	RecordCatalogLookup(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	llmRequests   *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	malformed     *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	itemMutations *prometheus.CounterVec
	catalogLookup *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodwallet_llm_requests_total",
			Help: "用途・結果別の言語モデル呼び出し数",
		}, []string{"use_case", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodwallet_llm_latency_seconds",
			Help:    "言語モデル呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"use_case"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodwallet_llm_malformed_responses_total",
			Help: "期待する形式でなかった言語モデル応答の数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodwallet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		itemMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodwallet_item_mutations_total",
			Help: "操作別の食品更新数",
		}, []string{"operation"}),
		catalogLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodwallet_catalog_lookups_total",
			Help: "結果別の商品カタログ照会数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.llmRequests,
		c.llmLatency,
		c.malformed,
		c.httpStatus,
		c.itemMutations,
		c.catalogLookup,
	)

	return c
}

// RecordLLMRequest は言語モデル呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordLLMRequest(useCase, outcome string, duration time.Duration) {
	c.llmRequests.WithLabelValues(useCase, outcome).Inc()
	c.llmLatency.WithLabelValues(useCase).Observe(duration.Seconds())
}

// RecordMalformedResponse は形式不正な応答を記録する。
func (c *Collector) RecordMalformedResponse(kind string) {
	c.malformed.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordItemMutation は食品の追加・更新・削除を記録する。
func (c *Collector) RecordItemMutation(operation string) {
	c.itemMutations.WithLabelValues(operation).Inc()
}

// RecordCatalogLookup は商品カタログ照会の結果を記録する。
func (c *Collector) RecordCatalogLookup(result string) {
	c.catalogLookup.WithLabelValues(result).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス不要な構成で使う。
type Nop struct{}

func (Nop) RecordLLMRequest(string, string, time.Duration) {}
func (Nop) RecordMalformedResponse(string)                 {}
func (Nop) RecordHTTPStatus(int)                           {}
func (Nop) RecordItemMutation(string)                      {}
func (Nop) RecordCatalogLookup(string)                     {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
