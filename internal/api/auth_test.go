package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{}, false},
		{"enabled without key", AuthConfig{Enabled: true}, true},
		{"short key", AuthConfig{Enabled: true, APIKey: "abc"}, true},
		{"valid", AuthConfig{Enabled: true, APIKey: "0123456789abcdef"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAuthConfig(tt.cfg); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAuthConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKey: "0123456789abcdef"}
	handler := AuthMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		path   string
		key    string
		status int
	}{
		{"/", "", http.StatusNoContent},
		{"/health", "", http.StatusNoContent},
		{"/metrics", "", http.StatusNoContent},
		{"/search", "", http.StatusUnauthorized},
		{"/jobs", "nope", http.StatusUnauthorized},
		{"/search", "0123456789abcdef", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != tt.status {
			t.Errorf("%s with key %q: status = %d, want %d", tt.path, tt.key, w.Code, tt.status)
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !constantTimeCompare("secret", "secret") {
		t.Error("equal strings should match")
	}
	if constantTimeCompare("secret", "secreT") || constantTimeCompare("secret", "secret2") {
		t.Error("different strings should not match")
	}
}
