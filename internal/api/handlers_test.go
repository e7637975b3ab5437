package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t, Config{})

	w := do(t, s.Handler(), http.MethodGet, "/search?q=God", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got SearchResponse
	resp := decode(t, w, &got)
	if resp.Meta == nil || resp.Meta.Total != 3 {
		t.Errorf("meta = %+v, want total 3", resp.Meta)
	}
	if got.Kind != search.KindExpression || got.Total != 3 || got.Unique != 2 {
		t.Errorf("response = %+v", got)
	}
	if got.Summary != "3 results (2 unique verses)" {
		t.Errorf("Summary = %q", got.Summary)
	}
	first := got.Records[0]
	if first.Translation != "King James Version" || first.Book != "Gen" || first.Verse != 1 {
		t.Errorf("first record = %+v", first)
	}
	if want := "In the beginning [God] created the heaven and the earth."; first.Text != want {
		t.Errorf("first text = %q, want %q", first.Text, want)
	}
	if got.Cached {
		t.Error("first search should not be cached")
	}

	w = do(t, s.Handler(), http.MethodGet, "/search?q=God", "")
	decode(t, w, &got)
	if !got.Cached || got.Total != 3 {
		t.Errorf("repeat search = %+v, want cached with 3 results", got)
	}
}

func TestHandleSearchOverrides(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name   string
		target string
		total  int
		check  func(t *testing.T, got SearchResponse)
	}{
		{"reference", "/search?q=Gen+1:1", 2, func(t *testing.T, got SearchResponse) {
			if got.Kind != search.KindReference {
				t.Errorf("Kind = %s", got.Kind)
			}
		}},
		{"unique", "/search?q=wept&unique=true", 1, func(t *testing.T, got SearchResponse) {
			if got.Records[0].Translation != "King James Version" {
				t.Errorf("unique kept %q, want the first-ranked translation", got.Records[0].Translation)
			}
		}},
		{"translation filter", "/search?q=God&translations=web", 1, nil},
		{"case sensitive", "/search?q=god&case=true", 0, nil},
		{"abbreviate", "/search?q=wept&abbreviate=1&truncate=8", 2, func(t *testing.T, got SearchResponse) {
			if got.Records[0].Translation != "KJV" {
				t.Errorf("abbreviated translation = %q", got.Records[0].Translation)
			}
			if got.Records[0].Text != "Jesus..." {
				t.Errorf("abbreviated text = %q", got.Records[0].Text)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodGet, tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			var got SearchResponse
			decode(t, w, &got)
			if got.Total != tt.total {
				t.Errorf("Total = %d, want %d (%+v)", got.Total, tt.total, got.Records)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestHandleSearchErrors(t *testing.T) {
	s := newTestServer(t, Config{MaxQueryLength: 16})

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"empty", "/search?q=", http.StatusBadRequest, "INVALID_INPUT"},
		{"syntax", "/search?q=love+AND", http.StatusBadRequest, "SYNTAX_ERROR"},
		{"reversed range", "/search?q=Gen+1:5-3", http.StatusBadRequest, "REFERENCE_RANGE"},
		{"bad flag", "/search?q=God&unique=maybe", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad truncate", "/search?q=God&truncate=x", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative truncate", "/search?q=God&truncate=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown translation", "/search?q=God&translations=XYZ", http.StatusNotFound, "NOT_FOUND"},
		{"too long", "/search?q=abcdefghijklmnopqrstuvwxyz", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodGet, tt.target, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			resp := decode(t, w, nil)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.code)
			}
		})
	}

	w := do(t, s.Handler(), http.MethodGet, "/search?q=love+AND", "")
	resp := decode(t, w, nil)
	if resp.Error.Position == nil || *resp.Error.Position != 8 {
		t.Errorf("syntax error position = %v, want 8", resp.Error.Position)
	}
}

func TestHandleRead(t *testing.T) {
	s := newTestServer(t, Config{})

	w := do(t, s.Handler(), http.MethodGet, "/read?translation=kjv&book=genesis&chapter=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got PassageResponse
	decode(t, w, &got)
	if got.Translation != "KJV" || got.Book != "Genesis" || got.Chapter != 1 {
		t.Errorf("passage = %+v", got)
	}
	if len(got.Records) != 3 || got.Records[2].Verse != 3 {
		t.Errorf("records = %+v, want Gen 1:1-3", got.Records)
	}

	w = do(t, s.Handler(), http.MethodGet, "/read?translation=KJV&book=Gen&chapter=1&verse=2&count=1", "")
	decode(t, w, &got)
	if len(got.Records) != 1 || got.Records[0].Verse != 2 {
		t.Errorf("windowed records = %+v", got.Records)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/read?translation=KJ&book=Gen&chapter=1", http.StatusBadRequest},
		{"/read?translation=KJV&book=Nowhere&chapter=1", http.StatusNotFound},
		{"/read?translation=KJV&book=Gen", http.StatusBadRequest},
		{"/read?translation=KJV&book=Gen&chapter=0", http.StatusBadRequest},
		{"/read?translation=KJV&book=Gen&chapter=50", http.StatusNotFound},
		{"/read?translation=ASV&book=Gen&chapter=1", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := do(t, s.Handler(), http.MethodGet, tt.target, ""); w.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d", tt.target, w.Code, tt.status)
		}
	}
}

func TestHandleTranslations(t *testing.T) {
	s := newTestServer(t, Config{})

	w := do(t, s.Handler(), http.MethodGet, "/translations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []search.Translation
	decode(t, w, &got)
	if len(got) != 2 || got[0].ID != "KJV" || got[0].Rank != 1 || got[1].ID != "WEB" {
		t.Errorf("translations = %+v", got)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{errors.NewSyntax("love AND", 8, "expected term"), http.StatusBadRequest, "SYNTAX_ERROR"},
		{errors.NewReferenceRange("Gen 1:5-3", 5, 3), http.StatusBadRequest, "REFERENCE_RANGE"},
		{errors.NewValidation("query", "query is empty"), http.StatusBadRequest, "INVALID_INPUT"},
		{errors.NewNotFound("job", "x"), http.StatusNotFound, "NOT_FOUND"},
		{errors.NewCorpusUnavailable("scan", fmt.Errorf("disk")), http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, apiErr := errorResponse(tt.err)
		if status != tt.status || apiErr.Code != tt.code {
			t.Errorf("errorResponse(%v) = %d %s, want %d %s", tt.err, status, apiErr.Code, tt.status, tt.code)
		}
	}
}
