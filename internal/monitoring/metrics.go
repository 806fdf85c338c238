package monitoring

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campuswiki/backend/internal/moderation"
)

const namespace = "campuswiki"

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 审核指标
	ModerationDecisions *prometheus.CounterVec
	ModerationDuration  *prometheus.HistogramVec
	SpamScore           prometheus.Histogram
	FilterViolations    *prometheus.CounterVec
	ReputationFallbacks *prometheus.CounterVec
	SubmissionsStored   *prometheus.CounterVec
	ConfigReloads       *prometheus.CounterVec

	// 数据库连接池
	DatabaseConnections *prometheus.GaugeVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
//
// 每个实例使用独立的注册表，测试中可以重复创建。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		ModerationDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moderation_decisions_total",
				Help:      "Moderation decisions by action and content type",
			},
			[]string{"action", "content_type"},
		),

		ModerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "moderation_duration_seconds",
				Help:      "Time spent producing a moderation decision",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"action"},
		),

		SpamScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "moderation_spam_score",
				Help:      "Distribution of spam scores",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),

		FilterViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moderation_filter_violations_total",
				Help:      "Content policy violations by type and severity",
			},
			[]string{"type", "severity"},
		),

		ReputationFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reputation_fallbacks_total",
				Help:      "Reputation lookups answered with the default reputation",
			},
			[]string{"reason"},
		),

		SubmissionsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_stored_total",
				Help:      "Persisted submissions by status",
			},
			[]string{"status"},
		),

		ConfigReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moderation_config_reloads_total",
				Help:      "Moderation config updates by result",
			},
			[]string{"result"},
		),

		DatabaseConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "database_connections",
				Help:      "Database pool connections by state",
			},
			[]string{"state"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_blocks_total",
				Help:      "Total number of rate limit blocks",
			},
			[]string{"type"},
		),
	}
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if responseSize >= 0 {
		m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
	}
}

// RecordModeration 记录一次审核决策
func (m *Metrics) RecordModeration(result moderation.ModerationResult, duration time.Duration) {
	contentType := string(result.ContentType)
	if contentType == "" {
		contentType = "unknown"
	}
	m.ModerationDecisions.WithLabelValues(string(result.Action), contentType).Inc()
	m.ModerationDuration.WithLabelValues(string(result.Action)).Observe(duration.Seconds())
	m.SpamScore.Observe(float64(result.SpamScore))
	for _, v := range result.FilterViolations {
		m.FilterViolations.WithLabelValues(string(v.Type), string(v.Severity)).Inc()
	}
	if result.Reputation.Fallback != moderation.FallbackNone {
		m.RecordReputationFallback(result.Reputation.Fallback)
	}
}

// RecordReputationFallback 记录声誉降级
func (m *Metrics) RecordReputationFallback(reason moderation.FallbackReason) {
	m.ReputationFallbacks.WithLabelValues(string(reason)).Inc()
}

// RecordSubmissionStored 记录提交入库
func (m *Metrics) RecordSubmissionStored(status string) {
	m.SubmissionsStored.WithLabelValues(status).Inc()
}

// RecordConfigReload 记录配置更新
func (m *Metrics) RecordConfigReload(success bool) {
	result := "success"
	if !success {
		result = "rejected"
	}
	m.ConfigReloads.WithLabelValues(result).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// UpdateDatabasePool 更新连接池指标
func (m *Metrics) UpdateDatabasePool(stat *pgxpool.Stat) {
	if stat == nil {
		return
	}
	m.DatabaseConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	m.DatabaseConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	m.DatabaseConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	m.DatabaseConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
