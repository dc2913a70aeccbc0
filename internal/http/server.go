// Package http is the JSON API over the ledger service.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"livrocaixa/internal/cache"
	"livrocaixa/internal/ledger"
	applog "livrocaixa/internal/log"
)

type Server struct {
	http.Server
	svc         *ledger.Service
	rateLimiter *rateLimiter

	// Cashflow reports are the expensive read; everything else goes
	// straight to the store.
	cashflowCache *cache.LRUCache[[]ledger.PeriodRow]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run server.
func NewServer(addr string, svc *ledger.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:           svc,
		rateLimiter:   newRateLimiter(),
		cashflowCache: cache.NewLRUCache[[]ledger.PeriodRow](100, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.cashflowCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/cashflow", s.withMiddleware(s.handleCashflow))

	mux.HandleFunc("GET /api/registries/{kind}", s.withMiddleware(s.handleListRegistry))
	mux.HandleFunc("POST /api/registries/{kind}", s.withMiddleware(s.handleUpsertRegistry))
	mux.HandleFunc("DELETE /api/registries/{kind}/{id}", s.withMiddleware(s.handleDeleteRegistry))

	mux.HandleFunc("POST /api/csv/import", s.withMiddleware(s.handleCSVImport))
	mux.HandleFunc("GET /api/csv/export", s.withMiddleware(s.handleCSVExport))

	// Every handler sees a request-scoped logger carrying the request id.
	httpLogger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	s.Server.Handler = applog.Middleware(httpLogger)(applog.RequestIDMiddleware(requestIDFor)(mux))

	return s
}

// requestIDFor honors an upstream X-Request-ID, minting one otherwise.
func requestIDFor(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return generateRequestID()
}

// Shutdown stops the background routines alongside the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting on writes, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		ctx := r.Context()
		logger := applog.FromContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the store answers.
	if _, err := s.svc.ListRegistry(r.Context(), "bank"); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateReports drops cached cashflow ladders after any write.
func (s *Server) invalidateReports() {
	s.cashflowCache.Purge()
}
