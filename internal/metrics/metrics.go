// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証操作の種別（operationラベル）。
const (
	OperationSignup = "signup"
	OperationLogin  = "login"
)

// 認証操作の結果（resultラベル）。
const (
	ResultSuccess       = "success"
	ResultUserNotFound  = "user_not_found"
	ResultBadPassword   = "bad_password"
	ResultDuplicate     = "duplicate"
	ResultInvalidInput  = "invalid_input"
	ResultInternalError = "internal_error"
)

// 取引の書き込み種別（operationラベル）。
const (
	WriteCreate = "create"
	WriteUpdate = "update"
	WriteDelete = "delete"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordAuthAttempt(operation, result string)
	RecordTokenRejection(reason string)
	RecordExpenseWrite(operation string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts    *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	expenseWrites   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_auth_attempts_total",
			Help: "サインアップ・ログイン試行の合計数（操作・結果別）",
		}, []string{"operation", "result"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_token_rejections_total",
			Help: "認証ミドルウェアで拒否されたリクエスト数（理由別）",
		}, []string{"reason"}),
		expenseWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_expenses_written_total",
			Help: "取引の作成・更新・削除の合計数",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.tokenRejections,
		c.expenseWrites,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordAuthAttempt は認証操作の結果を記録する。
func (c *Collector) RecordAuthAttempt(operation, result string) {
	c.authAttempts.WithLabelValues(operation, result).Inc()
}

// RecordTokenRejection はトークン拒否を理由別に記録する。
func (c *Collector) RecordTokenRejection(reason string) {
	c.tokenRejections.WithLabelValues(reason).Inc()
}

// RecordExpenseWrite は取引の書き込みを記録する。
func (c *Collector) RecordExpenseWrite(operation string) {
	c.expenseWrites.WithLabelValues(operation).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。メトリクス未設定時やテストで使用する。
type Nop struct{}

func (Nop) RecordAuthAttempt(string, string)   {}
func (Nop) RecordTokenRejection(string)        {}
func (Nop) RecordExpenseWrite(string)          {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
