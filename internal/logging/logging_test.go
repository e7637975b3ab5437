package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// captureLogOutput redirects the default logger to a buffer while f runs.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := defaultLogger
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f()
	defaultLogger = oldLogger
	return buf.String()
}

// captureLogOutputWithInit goes through InitLogger so the handler options
// are exercised.
func captureLogOutputWithInit(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	SetOutput(&buf)
	InitLogger(level, format)
	f()
	SetOutput(os.Stderr)
	InitLogger(LevelInfo, FormatText)
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"Debug level JSON format", LevelDebug, FormatJSON},
		{"Warn level JSON format", LevelWarn, FormatJSON},
		{"Error level Text format", LevelError, FormatText},
		{"Default level (invalid value)", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if slog.Default() != defaultLogger {
				t.Error("InitLogger() did not install the default logger")
			}
		})
	}
	InitLogger(LevelInfo, FormatText)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutputWithInit(LevelWarn, FormatJSON, func() {
		Info("hidden")
		Warn("shown")
	})
	if strings.Contains(output, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(output, "shown") {
		t.Error("warn message missing")
	}
}

func TestReplaceAttrTimestamp(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatJSON, func() {
		Info("timestamp test")
	})
	ts := strings.SplitN(strings.SplitN(output, `"time":"`, 2)[1], `"`, 2)[0]
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", ts, err)
	}
}

func TestLoggerFromContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}

	output := captureLogOutput(func() {
		InfoContext(ctx, "with id")
	})
	if !strings.Contains(output, `"request_id":"req-42"`) {
		t.Errorf("output missing request_id: %s", output)
	}
}

func TestDomainEvents(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want []string
	}{
		{
			name: "SearchCompleted",
			log: func() {
				SearchCompleted(context.Background(), "expression", "love AND mercy", 12, 5, false, 40*time.Millisecond)
			},
			want: []string{"search_completed", `"query":"love AND mercy"`, `"results":12`, `"unique":5`, `"cancelled":false`, `"duration_ms":40`},
		},
		{
			name: "CorpusError",
			log: func() {
				CorpusError(context.Background(), "scan", errors.New("disk I/O error"), "translation", "KJV")
			},
			want: []string{"corpus_error", `"level":"ERROR"`, "disk I/O error", `"translation":"KJV"`},
		},
		{
			name: "IngestProgress",
			log:  func() { IngestProgress("KJV", 31102) },
			want: []string{"ingest_progress", `"verses":31102`},
		},
		{
			name: "WebSocketEvent",
			log:  func() { WebSocketEvent("client_connected", 5) },
			want: []string{"websocket_event", `"client_count":5`},
		},
		{
			name: "ServerStartup",
			log:  func() { ServerStartup("api", "http", 8080, "db", "corpus.db") },
			want: []string{"server_startup", `"port":8080`, `"db":"corpus.db"`},
		},
		{
			name: "SecurityEvent",
			log:  func() { SecurityEvent("rate_limited", "api", "ip", "10.0.0.1") },
			want: []string{"security_event", `"level":"WARN"`, "10.0.0.1"},
		},
		{
			name: "HTTPRequestContext",
			log: func() {
				HTTPRequestContext(context.Background(), "GET", "/search", "127.0.0.1", 200, time.Second)
			},
			want: []string{"http_request", `"status_code":200`, `"duration_ms":1000`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.log)
			for _, w := range tt.want {
				if !strings.Contains(output, w) {
					t.Errorf("output missing %s: %s", w, output)
				}
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: recorder, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("test data"))
	if err != nil || n != 9 {
		t.Errorf("Write() = %d, %v", n, err)
	}
	rw.Write([]byte("!"))

	if rw.status != http.StatusNotFound || recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, recorder = %d; want %d", rw.status, recorder.Code, http.StatusNotFound)
	}
	if rw.bytes != 10 {
		t.Errorf("bytes = %d, want 10", rw.bytes)
	}
}

func TestStatusRecorderHijack(t *testing.T) {
	rw := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
	if _, ok := http.ResponseWriter(rw).(http.Hijacker); !ok {
		t.Error("statusRecorder should implement http.Hijacker")
	}
}

func TestNewRequestID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newRequestID()
		if len(id) != 16 || !validRequestID(id) {
			t.Errorf("newRequestID() = %q", id)
		}
		if ids[id] {
			t.Error("Generated duplicate request ID")
		}
		ids[id] = true
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		reused   bool
	}{
		{"generates new ID", "", false},
		{"reuses client ID", "existing-req-id-123", true},
		{"rejects spaces", "forged id\nlevel=ERROR", false},
		{"rejects long ID", strings.Repeat("a", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			})
			req := httptest.NewRequest("GET", "/search", nil)
			if tt.existing != "" {
				req.Header.Set(RequestIDHeader, tt.existing)
			}
			w := httptest.NewRecorder()
			RequestIDMiddleware(handler).ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Errorf("header %q, context %q", got, seen)
			}
			if (got == tt.existing) != tt.reused {
				t.Errorf("request ID %q, client sent %q, reused want %v", got, tt.existing, tt.reused)
			}
		})
	}
}

func TestCombinedMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest("GET", "/translations", nil)
	w := httptest.NewRecorder()

	output := captureLogOutput(func() {
		CombinedMiddleware(handler).ServeHTTP(w, req)
	})

	for _, want := range []string{"/translations", `"status_code":418`, "request_id", `"bytes":0`} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestRequestFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []any
		want   []string
	}{
		{"search", []any{"query_kind", "expression", "results", 7, "cached", false},
			[]string{`"query_kind":"expression"`, `"results":7`, `"cached":false`}},
		{"job", []any{"job_id", "job-1"}, []string{`"job_id":"job-1"`}},
		{"none", nil, []string{`"msg":"http_request"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				AddRequestFields(r.Context(), tt.fields...)
				w.Write([]byte("ok"))
			})
			output := captureLogOutput(func() {
				CombinedMiddleware(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/search", nil))
			})
			for _, want := range append(tt.want, `"bytes":2`) {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %s: %s", want, output)
				}
			}
		})
	}

	// Outside a logged request the fields go nowhere.
	AddRequestFields(context.Background(), "query_kind", "reference")
}
