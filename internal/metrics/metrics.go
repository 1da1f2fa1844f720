// Package metrics exposes cache outcomes and front-end request counts as
// Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/any-cache/internal/cache"
)

const namespace = "any_cache"

// Recorder 记录缓存加载结果与 HTTP 请求，实现 cache.Observer。
type Recorder struct {
	registry *prometheus.Registry

	// LoadsTotal 按结果（fresh/stale/failed）统计 Load 次数
	LoadsTotal *prometheus.CounterVec

	// LoadDuration 统计 Load 从调用到完成的耗时
	LoadDuration *prometheus.HistogramVec

	// RequestsTotal 按 remote 与状态码统计前端请求
	RequestsTotal *prometheus.CounterVec
}

// NewRecorder 创建独立 registry 上的指标集合，避免与进程默认 registry 冲突。
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Cache loads by outcome",
			},
			[]string{"outcome"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Cache load duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Front-end requests by remote and status code",
			},
			[]string{"remote", "status"},
		),
	}

	reg.MustRegister(
		r.LoadsTotal,
		r.LoadDuration,
		r.RequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveLoad implements cache.Observer.
func (r *Recorder) ObserveLoad(outcome cache.Outcome, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.LoadsTotal.WithLabelValues(string(outcome)).Inc()
	r.LoadDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// RecordRequest 记录一次前端请求的最终状态码。
func (r *Recorder) RecordRequest(remote string, status int) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(remote, strconv.Itoa(status)).Inc()
}

// Handler 返回 Prometheus 文本格式的导出 handler。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var _ cache.Observer = (*Recorder)(nil)
