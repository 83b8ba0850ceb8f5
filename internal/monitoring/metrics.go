package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 命令指标（按终态统计）
	CommandsTotal *prometheus.CounterVec

	// 令牌指标
	TokensIssued   prometheus.Counter
	TokensRedeemed prometheus.Counter

	// 投递指标（primary/audit × ok/error）
	DeliveriesTotal *prometheus.CounterVec

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonrelay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anonrelay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonrelay_commands_total",
				Help: "Total number of slash commands processed, by outcome",
			},
			[]string{"outcome"},
		),

		TokensIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonrelay_tokens_issued_total",
				Help: "Total number of reply tokens issued",
			},
		),

		TokensRedeemed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonrelay_tokens_redeemed_total",
				Help: "Total number of successful reply token redemptions",
			},
		),

		DeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonrelay_deliveries_total",
				Help: "Total number of message deliveries, by kind and status",
			},
			[]string{"kind", "status"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonrelay_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求。
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPanic 记录一次 panic 恢复。
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus 指标处理器。
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
