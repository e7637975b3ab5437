package api

import "time"

// Config holds server configuration.
type Config struct {
	Port              int
	Version           string
	Workers           int           // Translations scanned concurrently per search
	MaxQueryLength    int           // Longest accepted query in bytes
	RateLimitRequests int           // Requests per minute (0 = disabled)
	RateLimitBurst    int           // Burst size
	Auth              AuthConfig    // Authentication configuration
	TLS               TLSConfig     // TLS configuration
	AllowedOrigins    []string      // CORS and WebSocket allowed origins (empty = allow all)
	CacheTTL          time.Duration // Lifetime of a cached search outcome
	CacheSize         int           // Maximum cached outcomes
	ShutdownTimeout   time.Duration
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

// DefaultConfig returns the configuration used by `juniper-search serve`
// when no flags override it.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		Version:           "dev",
		Workers:           1,
		MaxQueryLength:    512,
		RateLimitRequests: 120,
		RateLimitBurst:    20,
		CacheTTL:          5 * time.Minute,
		CacheSize:         256,
		ShutdownTimeout:   10 * time.Second,
	}
}
