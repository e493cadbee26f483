// Package metricsrv serves the CLI's prometheus metrics and pprof
// profiles over HTTP when --metrics-addr is set.
package metricsrv

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/batchq/pkg/log"
)

// Server exposes /metrics and /debug/pprof on a dedicated listener.
type Server struct {
	srv    *http.Server
	logger log.Logger
}

// New builds a server for addr serving the metrics gathered by g.
func New(addr string, g prometheus.Gatherer, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve listens on the configured address until Shutdown. It runs on
// the calling goroutine and returns nil after a clean shutdown.
func (s *Server) Serve() error {
	s.logger.Info("metrics server listening", log.Str("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
