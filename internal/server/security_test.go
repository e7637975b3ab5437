package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPICSPConfig(t *testing.T) {
	cfg := APICSPConfig()

	if len(cfg.DefaultSrc) != 1 || cfg.DefaultSrc[0] != "'none'" {
		t.Errorf("API DefaultSrc should be ['none'], got %v", cfg.DefaultSrc)
	}
}

func TestBuildCSPHeader(t *testing.T) {
	tests := []struct {
		name     string
		cfg      CSPConfig
		expected string
	}{
		{
			name: "simple config",
			cfg: CSPConfig{
				DefaultSrc: []string{"'self'"},
				ScriptSrc:  []string{"'self'"},
			},
			expected: "default-src 'self'; script-src 'self'",
		},
		{
			name: "with upgrade-insecure-requests",
			cfg: CSPConfig{
				DefaultSrc:              []string{"'self'"},
				UpgradeInsecureRequests: true,
			},
			expected: "default-src 'self'; upgrade-insecure-requests",
		},
		{
			name:     "api config",
			cfg:      APICSPConfig(),
			expected: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		},
		{
			name:     "empty",
			cfg:      CSPConfig{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BuildCSPHeader(); got != tt.expected {
				t.Errorf("BuildCSPHeader() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSecurityHeadersWithCSP(t *testing.T) {
	handler := SecurityHeadersWithCSP(APICSPConfig(), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": APICSPConfig().BuildCSPHeader(),
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestSanitizeUserInput(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  love  ", "love"},
		{"grace\x00 and\x07 truth", "grace and truth"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"del\x7fete", "delete"},
		{"\"faith hope\" AND love", "\"faith hope\" AND love"},
	}

	for _, tt := range tests {
		if got := SanitizeUserInput(tt.input); got != tt.expected {
			t.Errorf("SanitizeUserInput(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLimitStringLength(t *testing.T) {
	tests := []struct {
		input     string
		maxLength int
		expected  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long string", 3, "too"},
		{"λόγος", 3, "λ"},
	}

	for _, tt := range tests {
		if got := LimitStringLength(tt.input, tt.maxLength); got != tt.expected {
			t.Errorf("LimitStringLength(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.expected)
		}
	}
}

func TestValidateContentType(t *testing.T) {
	allowed := []string{"application/json"}
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"Application/JSON", true},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateContentType(tt.contentType, allowed); got != tt.want {
			t.Errorf("ValidateContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
