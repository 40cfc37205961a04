package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "playlist_bot"

var (
	// GateOutcomesTotal counts precondition gate results
	GateOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "outcomes_total",
			Help:      "Total number of gate evaluations by status and reason",
		},
		[]string{"status", "reason"},
	)

	// StoreOperationsTotal counts playlist store calls
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of playlist store operations by result",
		},
		[]string{"op", "result"},
	)

	// StoreOperationDuration tracks playlist store latency
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Playlist store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	// CommandsTotal counts dispatched commands per protocol
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "dispatched_total",
			Help:      "Total number of commands dispatched by protocol",
		},
		[]string{"command", "protocol"},
	)
)

// RecordGate records one gate evaluation
func RecordGate(status, reason string) {
	GateOutcomesTotal.WithLabelValues(status, reason).Inc()
}

// ObserveStore records one store operation and its duration
func ObserveStore(op, result string, start time.Time) {
	StoreOperationsTotal.WithLabelValues(op, result).Inc()
	StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordCommand records one dispatched command
func RecordCommand(command, protocol string) {
	CommandsTotal.WithLabelValues(command, protocol).Inc()
}

// Server exposes /metrics over HTTP
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		logrus.WithField("addr", s.srv.Addr).Info("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server stopped")
		}
	}()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
