package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// PaymentsCreated counts checkout and PIX creations by result.
	PaymentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apostas_payments_created_total",
		Help: "Payment creation attempts by kind and result.",
	}, []string{"kind", "result"})

	// WebhooksReceived counts notifications by processing outcome.
	WebhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apostas_webhooks_total",
		Help: "Processed payment notifications by outcome.",
	}, []string{"outcome"})

	// BetsConfirmed counts bets recorded for the first time.
	BetsConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apostas_bets_confirmed_total",
		Help: "Confirmed bets written to the store.",
	})
)

func init() {
	prometheus.MustRegister(PaymentsCreated, WebhooksReceived, BetsConfirmed)
}

// HealthFunc reports an error when a dependency is unreachable.
type HealthFunc func(ctx context.Context) error

// StartServer serves /metrics and /healthz on their own port. Listen
// failures are logged; the main server keeps running without metrics.
func StartServer(port string, healthFn HealthFunc, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", HealthHandler(healthFn))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()

	return srv
}

// HealthHandler answers 200 "ok" or 503 with the health error.
func HealthHandler(healthFn HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
