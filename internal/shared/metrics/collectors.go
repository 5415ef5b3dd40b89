package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// API agrupa as métricas do tips-service
type API struct {
	Requests   *prometheus.HistogramVec
	Writes     *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

func NewAPI(reg prometheus.Registerer) *API {
	m := &API{
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tips_http_request_duration_seconds",
			Help:    "latência das requisições HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tips_writes_total",
			Help: "escritas aceitas por tipo",
		}, []string{"kind"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tips_policy_rejections_total",
			Help: "escritas rejeitadas pela política por motivo",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.Requests, m.Writes, m.Rejections)
	return m
}

// Middleware mede latência por rota chi (padrão, não path cru)
func (m *API) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(statusOf(ww))).Observe(time.Since(start).Seconds())
	})
}

// Relay agrupa as métricas do feed-relay-worker por estágio
type Relay struct {
	Consumed  prometheus.Counter
	Published prometheus.Counter
	Errors    *prometheus.CounterVec
}

func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		Consumed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "tips_relay_messages_consumed_total", Help: "mensagens consumidas"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{Name: "tips_relay_broadcasts_total", Help: "invalidações publicadas no Redis"}),
		Errors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tips_relay_errors_total", Help: "erros por estágio"}, []string{"stage"}),
	}
	reg.MustRegister(m.Consumed, m.Published, m.Errors)
	return m
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
