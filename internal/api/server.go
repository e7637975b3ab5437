// Package api provides the Juniper Search REST and WebSocket server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/cache"
	"github.com/FocuswithJustin/JuniperSearch/internal/config"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/server"
)

// Corpus is the corpus the server searches. *store.Store satisfies it.
type Corpus interface {
	search.Corpus

	// Translations lists every translation, enabled or not, in rank order.
	Translations(ctx context.Context) ([]search.Translation, error)

	// Fingerprint identifies the corpus contents for result caching.
	Fingerprint(ctx context.Context) (string, error)
}

// Server serves searches over one corpus.
type Server struct {
	cfg     Config
	corpus  Corpus
	prefs   config.Config
	cache   *cache.Results
	jobs    *JobStore
	hub     *Hub
	limiter *RateLimiter
	started time.Time
	handler http.Handler
}

// New validates cfg and builds a server. prefs supplies the default search
// flags and the translation overrides. Close releases the background
// goroutines.
func New(cfg Config, corpus Corpus, prefs config.Config) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return nil, fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return nil, fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	defaults := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	s := &Server{
		cfg:     cfg,
		corpus:  corpus,
		prefs:   prefs,
		cache:   cache.NewResults(cfg.CacheTTL, cfg.CacheSize),
		jobs:    NewJobStore(),
		hub:     NewHub(),
		started: time.Now(),
	}
	go s.hub.Run()

	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}

	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the server's HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close cancels running jobs and stops the background goroutines.
func (s *Server) Close() {
	s.jobs.CancelAll()
	s.hub.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Run listens on the configured port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	protocol := "http"
	wsProtocol := "ws"
	if s.cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
		logging.Info("TLS enabled", "cert_file", server.AbsPath(s.cfg.TLS.CertFile))
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	s.logSecurityConfig()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()
	logging.ServerStartup("rest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"workers", s.cfg.Workers)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.jobs.CancelAll()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logSecurityConfig() {
	logging.SecurityEvent("authentication_configured", "api",
		"enabled", s.cfg.Auth.Enabled)
	if s.limiter != nil {
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimitRequests,
			"burst_size", s.limiter.config.BurstSize)
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins", strings.Join(s.cfg.AllowedOrigins, ","))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}
}

// buildHandler wires routes and the middleware chain, innermost first.
func (s *Server) buildHandler() http.Handler {
	mux := s.setupRoutes()

	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), mux)
	handler = AuthMiddleware(s.cfg.Auth, handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/read", s.handleRead)
	mux.HandleFunc("/translations", s.handleTranslations)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobByID)

	return mux
}

// settings resolves the saved preferences against the current catalog and
// applies the request's overrides. A translations list enables exactly the
// named translations, keeping their configured order.
func (s *Server) settings(ctx context.Context, req SearchRequest) (search.Settings, error) {
	catalog, err := s.corpus.Translations(ctx)
	if err != nil {
		return search.Settings{}, errors.NewCorpusUnavailable("list translations", err)
	}
	settings := s.prefs.Settings(catalog)

	if req.CaseSensitive != nil {
		settings.CaseSensitive = *req.CaseSensitive
	}
	if req.UniqueVerse != nil {
		settings.UniqueVerse = *req.UniqueVerse
	}
	if req.Abbreviate != nil {
		settings.Abbreviate = *req.Abbreviate
	}
	if req.Truncate != nil {
		if *req.Truncate < 0 {
			return search.Settings{}, errors.NewValidation("truncate", "must not be negative")
		}
		settings.Truncate = *req.Truncate
	}

	if len(req.Translations) > 0 {
		if err := config.Only(&settings, req.Translations); err != nil {
			return search.Settings{}, err
		}
	}
	return settings, nil
}

// runSearch serves input from the result cache or runs the engine and caches
// the outcome. A cache hit replays the cached results through OnBatch.
func (s *Server) runSearch(ctx context.Context, input string, settings search.Settings, opts search.Options) (*search.Outcome, bool, error) {
	fingerprint, err := s.corpus.Fingerprint(ctx)
	if err != nil {
		logging.CorpusError(ctx, "fingerprint", err)
		return nil, false, errors.NewCorpusUnavailable("fingerprint", err)
	}

	key := cache.Key(fingerprint, input, settings)
	if out, ok := s.cache.Get(key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		out.Sequence = opts.Sequence
		if opts.OnBatch != nil && len(out.Results) > 0 {
			opts.OnBatch(opts.Sequence, out.Results)
		}
		return out, true, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	if opts.Workers == 0 {
		opts.Workers = s.cfg.Workers
	}
	out, err := search.Search(ctx, s.corpus, input, settings, opts)
	s.observe(ctx, input, out, err)
	if err != nil {
		return nil, false, err
	}
	s.cache.Put(key, out)
	return out, false, nil
}

// maxLoggedQuery caps the query text written to logs.
const maxLoggedQuery = 128

// observe records metrics and logs one engine run.
func (s *Server) observe(ctx context.Context, input string, out *search.Outcome, err error) {
	recordSearch(out, err)
	query := server.LimitStringLength(input, maxLoggedQuery)
	switch {
	case errors.Is(err, errors.ErrCorpusUnavailable):
		logging.CorpusError(ctx, "search", err, "query", query)
	case errors.Is(err, errors.ErrInvalidInput), errors.Is(err, errors.ErrReferenceRange),
		errors.Is(err, errors.ErrNotFound):
		logging.InfoContext(ctx, "search rejected", "query", query, "error", err)
	case err != nil:
		logging.ErrorContext(ctx, "search failed", "query", query, "error", err)
	default:
		logging.SearchCompleted(ctx, string(out.Kind), query, out.Total(), out.Unique, out.Cancelled, out.Duration, "sequence", out.Sequence)
	}
}
