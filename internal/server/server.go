package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"wavegate/internal/observability/metrics"
	"wavegate/internal/ratelimit"
	"wavegate/internal/stream"
)

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr       string
	TLS        TLSConfig
	RateLimit  ratelimit.Config
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	CORSOrigin string
}

type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	metrics     *metrics.Recorder
	limiter     ratelimit.Limiter
	tlsCertFile string
	tlsKeyFile  string
}

// New assembles the gateway's routes and middleware chain around the stream
// handler.
func New(handler *stream.Handler, cfg Config) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("stream handler is required")
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Default()
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", recorder.Handler())
	mux.Handle("/stream", handler)

	limiter := ratelimit.New(cfg.RateLimit)
	handlerChain := http.Handler(mux)
	handlerChain = preflightMiddleware(origin, handlerChain)
	handlerChain = rateLimitMiddleware(limiter, recorder, cfg.Logger, handlerChain)
	handlerChain = metrics.HTTPMiddleware(recorder, handlerChain)
	handlerChain = requestIDMiddleware(cfg.Logger, handlerChain)
	handlerChain = loggingMiddleware(cfg.Logger, handlerChain)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlerChain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := &Server{
		httpServer:  httpServer,
		logger:      cfg.Logger,
		metrics:     recorder,
		limiter:     limiter,
		tlsCertFile: strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
	}

	if srv.tlsCertFile != "" && srv.tlsKeyFile != "" {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return srv, nil
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// HTTPServer exposes the configured http.Server for callers that manage the
// listener lifecycle themselves.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", duration.Milliseconds(),
			"remote_ip", extractClientIP(r))
	})
}

// rateLimitMiddleware admits stream requests per client IP. Preflight and
// operational endpoints are never limited.
func rateLimitMiddleware(limiter ratelimit.Limiter, recorder *metrics.Recorder, logger *slog.Logger, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream" || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		allowed, retryAfter, err := limiter.Allow(extractClientIP(r))
		if err != nil {
			if logger != nil {
				logger.Error("rate limiter failure", "error", err)
			}
			http.Error(w, "rate limit failure", http.StatusServiceUnavailable)
			return
		}
		if !allowed {
			if recorder != nil {
				recorder.ObserveRateLimited()
			}
			if retryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			}
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	return clientIP(r.RemoteAddr)
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
