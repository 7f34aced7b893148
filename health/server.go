package health

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /healthz and /metrics. It never touches the query layer —
// no committed offsets, lag, or group membership is reachable from here,
// only the operational counters registered in this package.
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

// NewServer builds a health server listening on addr (e.g. ":9308").
func NewServer(logger *zap.Logger, addr string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		logger: logger.Named("health"),
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Run starts serving until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
