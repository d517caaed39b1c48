package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AoiMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoimap_mutations_total",
		Help: "AOI store mutations by operation",
	}, []string{"op"})
	AoiCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aoimap_aoi_count",
		Help: "Number of AOIs currently held by the store",
	})
	PersistWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_persist_writes_total",
		Help: "Total successful persistence writes",
	})
	PersistFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoimap_persist_fail_total",
		Help: "Persistence failures by phase (encode, write, read, decode, shape)",
	}, []string{"phase"})
	PersistLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoimap_persist_loads_total",
		Help: "Persistence loads by result (ok, empty, invalid)",
	}, []string{"result"})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_geocode_requests_total",
		Help: "Total geocoding HTTP requests",
	})
	GeocodeSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_geocode_success_total",
		Help: "Total geocoding HTTP successes",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_geocode_fail_total",
		Help: "Total geocoding transport or decode failures",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_geocode_cache_hits_total",
		Help: "Total geocoding cache hits",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aoimap_geocode_duration_ms",
		Help:    "Geocoding call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	SearchSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aoimap_search_superseded_total",
		Help: "Search responses discarded because a newer query was issued",
	})
	SurfaceOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoimap_surface_ops_total",
		Help: "Drawing surface operations issued by the adapter",
	}, []string{"op"})
	SurfaceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aoimap_surface_errors_total",
		Help: "Drawing surface operations that failed and were skipped",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(AoiMutationsTotal)
	prometheus.MustRegister(AoiCount)
	prometheus.MustRegister(PersistWritesTotal)
	prometheus.MustRegister(PersistFailTotal)
	prometheus.MustRegister(PersistLoadsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeSuccessTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(SearchSupersededTotal)
	prometheus.MustRegister(SurfaceOpsTotal)
	prometheus.MustRegister(SurfaceErrorsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
