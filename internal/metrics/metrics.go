package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can take one unconditionally.
type Metrics struct {
	gatherer prometheus.Gatherer

	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	balancePollsTotal *prometheus.CounterVec
	pollerRunning     prometheus.Gauge

	purchasesTotal   *prometheus.CounterVec
	purchaseDuration prometheus.Histogram

	sessionResetsTotal *prometheus.CounterVec
}

// New registers all collectors on registry. A nil registry uses a fresh
// one rather than the global default.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		gatherer: registry,

		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presale_rpc_calls_total",
				Help: "Total number of JSON-RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "presale_rpc_call_duration_seconds",
				Help:    "Duration of JSON-RPC calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method", "endpoint"},
		),
		balancePollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presale_balance_polls_total",
				Help: "Total number of balance refreshes by outcome",
			},
			[]string{"status"},
		),
		pollerRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "presale_balance_poller_running",
				Help: "1 while the balance poller is running",
			},
		),
		purchasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presale_purchases_total",
				Help: "Total number of purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
		purchaseDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "presale_purchase_duration_seconds",
				Help:    "Duration from approval request to purchase receipt in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		),
		sessionResetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presale_session_resets_total",
				Help: "Total number of wallet session resets by reason",
			},
			[]string{"reason"},
		),
	}
}

// RecordRPCCall records a JSON-RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, endpoint string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status(err), endpoint).Inc()
	m.rpcCallDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RPCHook returns a callback suitable for chain.WithCallHook.
func (m *Metrics) RPCHook(endpoint string) func(method string, elapsed time.Duration, err error) {
	return func(method string, elapsed time.Duration, err error) {
		m.RecordRPCCall(method, endpoint, elapsed, err)
	}
}

// RecordBalancePoll records one balance refresh.
func (m *Metrics) RecordBalancePoll(err error) {
	if m == nil {
		return
	}
	m.balancePollsTotal.WithLabelValues(status(err)).Inc()
}

// SetPollerRunning tracks poller start and stop.
func (m *Metrics) SetPollerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.pollerRunning.Set(1)
	} else {
		m.pollerRunning.Set(0)
	}
}

// RecordPurchase records a finished purchase. outcome is one of
// "confirmed", "failed", "rejected", "skipped".
func (m *Metrics) RecordPurchase(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.purchasesTotal.WithLabelValues(outcome).Inc()
	m.purchaseDuration.Observe(duration.Seconds())
}

// RecordSessionReset records a session reset, e.g. "accounts_changed".
func (m *Metrics) RecordSessionReset(reason string) {
	if m == nil {
		return
	}
	m.sessionResetsTotal.WithLabelValues(reason).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
