package main

import (
	"context"
	"time"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/api"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

// ServeCmd starts the API server over the corpus.
type ServeCmd struct {
	Port           int           `help:"HTTP server port" default:"8080"`
	Workers        int           `help:"Translations scanned concurrently per search" default:"2"`
	RateLimit      int           `name:"rate-limit" help:"Requests per minute per client (0 = disabled)" default:"120"`
	RateBurst      int           `name:"rate-burst" help:"Burst size for rate limiting" default:"20"`
	APIKey         string        `name:"api-key" help:"Require this key in X-API-Key (min 16 characters)" env:"JUNIPER_SEARCH_API_KEY"`
	TLSCert        string        `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey         string        `name:"tls-key" help:"TLS private key file" type:"path"`
	AllowedOrigins []string      `name:"allowed-origins" help:"Allowed CORS and WebSocket origins (comma separated, default all)" sep:","`
	CacheTTL       time.Duration `name:"cache-ttl" help:"How long search results are cached" default:"5m"`
	CacheSize      int           `name:"cache-size" help:"Maximum cached searches" default:"256"`
	Preload        bool          `help:"Load the whole corpus into memory at startup; later imports need a restart"`
}

// preloaded serves the API from an in-memory snapshot.
type preloaded struct {
	*store.Snapshot
}

var _ api.Corpus = preloaded{}

func (p preloaded) Translations(context.Context) ([]search.Translation, error) {
	return p.Snapshot.Translations(), nil
}

func (p preloaded) Fingerprint(context.Context) (string, error) {
	return p.Snapshot.Fingerprint(), nil
}

// config builds the server configuration from the flags.
func (c *ServeCmd) config() api.Config {
	cfg := api.DefaultConfig()
	cfg.Port = c.Port
	cfg.Version = version
	cfg.Workers = c.Workers
	cfg.RateLimitRequests = c.RateLimit
	cfg.RateLimitBurst = c.RateBurst
	cfg.AllowedOrigins = c.AllowedOrigins
	cfg.CacheTTL = c.CacheTTL
	cfg.CacheSize = c.CacheSize
	if c.APIKey != "" {
		cfg.Auth = api.AuthConfig{Enabled: true, APIKey: c.APIKey}
	}
	if c.TLSCert != "" || c.TLSKey != "" {
		cfg.TLS = api.TLSConfig{Enabled: true, CertFile: c.TLSCert, KeyFile: c.TLSKey}
	}
	return cfg
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var corpus api.Corpus = e.store
	if c.Preload {
		snap, err := e.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		logging.Info("corpus preloaded", "translations", len(snap.Translations()), "fingerprint", snap.Fingerprint())
		corpus = preloaded{snap}
	}

	srv, err := api.New(c.config(), corpus, e.cfg.Config())
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Run(ctx)
}
