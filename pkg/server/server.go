package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/daveminer/dapp-punks/pkg/allowlist"
)

// Server serves the proof boundary over HTTP: the committed root and
// per-address inclusion proofs. The allowlist is immutable once built, so
// handlers read it without locking.
//
//	GET /root             -> {"root": "0x..."}
//	GET /proof?address=.. -> {"address", "leafIndex", "leaf", "proof", "root"}
//	GET /healthz          -> 200 once serving
//
// Proof requests come from untrusted mint-site callers, so the server
// carries a global rate limit.
type Server struct {
	allowlist  *allowlist.Allowlist
	logger     *zap.Logger
	limiter    *rate.Limiter
	httpServer *http.Server
}

// Config holds the server settings
type Config struct {
	Port int

	// RequestsPerSecond bounds the global request rate; 0 uses a default
	RequestsPerSecond float64
	// Burst is the rate limiter burst size; 0 uses a default
	Burst int
}

const (
	defaultRequestsPerSecond = 50
	defaultBurst             = 100
)

// NewServer creates a proof server for a committed allowlist.
func NewServer(al *allowlist.Allowlist, cfg Config, logger *zap.Logger) *Server {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	s := &Server{
		allowlist: al,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/root", s.handleRoot)
	mux.HandleFunc("/proof", s.handleProof)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting proof server",
			"addr", s.httpServer.Addr,
			"root", s.allowlist.RootHex(),
			"addresses", s.allowlist.Len(),
		)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("Proof server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Sugar().Infow("Stopping proof server")
	return s.httpServer.Shutdown(ctx)
}

// withMiddleware wraps a handler with request-id tagging, rate limiting and
// request logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		if !s.limiter.Allow() {
			s.logger.Sugar().Warnw("Rate limit exceeded",
				"request_id", requestID,
				"remote", r.RemoteAddr,
			)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Sugar().Debugw("Handled request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
