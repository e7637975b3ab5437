package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/config"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	logging.InitLogger(logging.LevelError, logging.FormatText)
	os.Exit(m.Run())
}

func verse(translation, book string, chapter, v int, text string) search.Verse {
	return search.Verse{
		Coordinate: search.Coordinate{Translation: translation, Book: book, Chapter: chapter, Verse: v},
		Text:       text,
	}
}

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, tr := range []search.Translation{
		{ID: "KJV", Name: "King James Version"},
		{ID: "WEB", Name: "World English Bible"},
	} {
		if err := st.PutTranslation(ctx, tr); err != nil {
			t.Fatalf("PutTranslation(%s) error: %v", tr.ID, err)
		}
	}
	kjv := []search.Verse{
		verse("KJV", "Gen", 1, 1, "In the beginning God created the heaven and the earth."),
		verse("KJV", "Gen", 1, 2, "And the earth was without form, and void."),
		verse("KJV", "Gen", 1, 3, "And God said, Let there be light: and there was light."),
		verse("KJV", "Joh", 11, 35, "Jesus wept."),
	}
	web := []search.Verse{
		verse("WEB", "Gen", 1, 1, "In the beginning, God created the heavens and the earth."),
		verse("WEB", "Joh", 11, 35, "Jesus wept."),
	}
	if _, err := st.ReplaceVerses(ctx, "KJV", kjv); err != nil {
		t.Fatalf("ReplaceVerses(KJV) error: %v", err)
	}
	if _, err := st.ReplaceVerses(ctx, "WEB", web); err != nil {
		t.Fatalf("ReplaceVerses(WEB) error: %v", err)
	}
	return st
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(cfg, seedStore(t), config.Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, target string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response envelope, decoding Data into data.
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.APIResponse
}

func TestNewValidatesConfig(t *testing.T) {
	st := seedStore(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"auth without key", Config{Auth: AuthConfig{Enabled: true}}},
		{"short key", Config{Auth: AuthConfig{Enabled: true, APIKey: "short"}}},
		{"tls without files", Config{TLS: TLSConfig{Enabled: true}}},
		{"tls missing cert", Config{TLS: TLSConfig{Enabled: true, CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s, err := New(tt.cfg, st, config.Config{}); err == nil {
				s.Close()
				t.Error("New() should fail")
			}
		})
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, Config{Version: "1.2.3"})

	w := do(t, s.Handler(), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", w.Code)
	}

	w = do(t, s.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d: %s", w.Code, w.Body.String())
	}
	var info HealthInfo
	resp := decode(t, w, &info)
	if !resp.Success || info.Status != "healthy" || info.Version != "1.2.3" {
		t.Errorf("health = %+v", info)
	}
	if info.Storage.DriverName == "" {
		t.Errorf("health storage = %+v", info.Storage)
	}
	if info.Translations != 2 || info.Fingerprint == "" {
		t.Errorf("health corpus info = %+v", info)
	}

	if w := do(t, s.Handler(), http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d", w.Code)
	}
	if w := do(t, s.Handler(), http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d", w.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	s := newTestServer(t, Config{AllowedOrigins: []string{"https://app.example.com"}})

	w := do(t, s.Handler(), http.MethodGet, "/health", "", "Origin", "https://app.example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
}

func TestRequestLogFields(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		target string
		want   []string
	}{
		{"/search?q=God", []string{`"path":"/search"`, `"query_kind":"expression"`, `"results":3`, `"cached":false`}},
		{"/search?q=God", []string{`"cached":true`}},
		{"/search?q=Gen+1:1-2", []string{`"query_kind":"reference"`, `"results":3`}},
		{"/read?translation=KJV&book=Gen&chapter=1", []string{`"path":"/read"`, `"book":"Gen"`, `"verses":3`}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			var buf strings.Builder
			logging.SetOutput(&buf)
			logging.InitLogger(logging.LevelInfo, logging.FormatJSON)
			defer func() {
				logging.SetOutput(io.Discard)
				logging.InitLogger(logging.LevelError, logging.FormatText)
			}()

			if w := do(t, s.Handler(), http.MethodGet, tt.target, ""); w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}

			var line string
			for _, l := range strings.Split(buf.String(), "\n") {
				if strings.Contains(l, `"msg":"http_request"`) {
					line = l
				}
			}
			for _, want := range tt.want {
				if !strings.Contains(line, want) {
					t.Errorf("request log missing %s: %s", want, line)
				}
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	do(t, s.Handler(), http.MethodGet, "/search?q=God", "")

	w := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", w.Code)
	}
	for _, name := range []string{"juniper_search_searches_total", "juniper_search_cache_lookups_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}

func TestAuthProtectsSearch(t *testing.T) {
	key := "0123456789abcdef0123"
	s := newTestServer(t, Config{Auth: AuthConfig{Enabled: true, APIKey: key}})

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"public health", "/health", "", http.StatusOK},
		{"public metrics", "/metrics", "", http.StatusOK},
		{"missing key", "/search?q=God", "", http.StatusUnauthorized},
		{"wrong key", "/search?q=God", "wrong-key-wrong-key", http.StatusUnauthorized},
		{"valid key", "/search?q=God", key, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.key != "" {
				headers = []string{"X-API-Key", tt.key}
			}
			if w := do(t, s.Handler(), http.MethodGet, tt.path, "", headers...); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRateLimitedServer(t *testing.T) {
	s := newTestServer(t, Config{RateLimitRequests: 1, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		if w := do(t, s.Handler(), http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do(t, s.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}
