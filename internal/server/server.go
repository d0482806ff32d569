package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-builder/internal/auth"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/content"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/jonathan/resume-builder/internal/session"
)

// maxBodyBytes bounds request bodies; profile pictures arrive as data URLs.
const maxBodyBytes = 8 << 20

// ContentService refines entry text and drafts summaries.
type ContentService interface {
	session.Refiner
	session.Summarizer
}

// DocumentExporter turns a rendered surface into a file.
type DocumentExporter interface {
	Export(ctx context.Context, surface export.Surface, format export.Format) (*export.Blob, error)
}

// Deps overrides the collaborators New would otherwise build from config.
// Nil fields are built from config.
type Deps struct {
	Store       *session.Store
	Content     ContentService
	Exporter    DocumentExporter
	Provider    auth.Provider
	JWT         *JWTService
	RateLimiter *ratelimit.Limiter
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       *session.Store
	content     ContentService
	exporter    DocumentExporter
	provider    auth.Provider
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	origins     []string
	verbose     bool
	closers     []io.Closer
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps) (*Server, error) {
	s := &Server{
		store:       deps.Store,
		content:     deps.Content,
		exporter:    deps.Exporter,
		provider:    deps.Provider,
		jwtService:  deps.JWT,
		rateLimiter: deps.RateLimiter,
		validate:    validator.New(),
		origins:     cfg.AllowedOrigins,
		verbose:     cfg.Verbose,
	}

	if s.store == nil {
		s.store = session.NewStore(cfg.SessionIdleTimeout())
	}

	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}

	if s.jwtService == nil {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
		s.jwtService = NewJWTService(jwtConfig)
	}

	if s.provider == nil {
		authDeps := auth.Deps{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
		if cfg.Auth.Strategy == config.AuthStrategyOTP {
			otpConfig, err := config.NewOTPConfig()
			if err != nil {
				return nil, fmt.Errorf("failed to create OTP config: %w", err)
			}
			authDeps.OTP = otpConfig
		}
		provider, err := auth.NewProvider(cfg.Auth, authDeps)
		if err != nil {
			return nil, fmt.Errorf("failed to create auth provider: %w", err)
		}
		s.provider = provider
	}

	if s.content == nil && cfg.APIKey != "" {
		refiner, err := content.Open(context.Background(), cfg.LLM, cfg.APIKey, cfg.Verbose)
		if err != nil {
			return nil, err
		}
		s.content = refiner
		s.closers = append(s.closers, refiner)
	}
	if s.content == nil {
		log.Printf("[SERVER] GEMINI_API_KEY not set; refine and summary endpoints are disabled")
	}

	if s.exporter == nil {
		rasterizer := export.NewChromedpRasterizer(cfg.Export.ChromePath, cfg.ExportTimeout(), cfg.Verbose)
		s.exporter = export.New(rasterizer, export.Options{
			Scale:      cfg.Export.Scale,
			PageWidth:  cfg.Export.PageWidthMM,
			PageHeight: cfg.Export.PageHeightMM,
			Verbose:    cfg.Verbose,
		})
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ExportTimeout() + 30*time.Second, // exports run inside the request
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	authHandler := NewAuthHandler(s.provider, s.jwtService, s.validate)
	mux.HandleFunc("POST /auth/begin", authHandler.Begin)
	mux.HandleFunc("POST /auth/complete", authHandler.Complete)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/state", authHandler.State)

	protected := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}

	handle("POST /sessions", s.handleCreateSession)
	handle("GET /sessions", s.handleListSessions)
	handle("GET /sessions/{id}", s.handleGetSession)
	handle("DELETE /sessions/{id}", s.handleDeleteSession)
	handle("PUT /sessions/{id}/document", s.handleReplaceDocument)
	handle("PATCH /sessions/{id}/fields", s.handleSetField)
	handle("PUT /sessions/{id}/template", s.handleSetTemplate)
	handle("POST /sessions/{id}/{section}", s.handleAddEntry)
	handle("DELETE /sessions/{id}/{section}/{entry_id}", s.handleRemoveEntry)
	handle("POST /sessions/{id}/experience/{entry_id}/refine", s.handleRefine)
	handle("POST /sessions/{id}/experience/{entry_id}/refine/stream", s.handleRefineStream)
	handle("POST /sessions/{id}/summary/generate", s.handleGenerateSummary)
	handle("GET /sessions/{id}/layout", s.handleLayout)
	handle("GET /sessions/{id}/preview", s.handlePreview)
	handle("POST /sessions/{id}/export", s.handleExport)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go s.store.Run(sweepCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close stops background work and releases collaborators.
func (s *Server) Close() {
	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Printf("[SERVER] close failed: %v", err)
		}
	}
	s.closers = nil
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.origins) == 0 || slices.Contains(s.origins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-Pages, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if s.verbose {
			log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d completed in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE responses streaming through the logging middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
		"auth":     s.provider.Strategy(),
		"content":  s.content != nil,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status code and writes it. Server-side failures are
// logged and their details withheld.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[SERVER] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	if status == http.StatusInternalServerError {
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a JSON request body into v. An empty body is allowed
// when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	return nil
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		response["retry_after"] = retry
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
