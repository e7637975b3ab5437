package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/format"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/core/sqlite"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/server"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Position is the byte offset of a query syntax error.
	Position *int `json:"position,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SearchRequest is a query plus optional overrides of the saved settings.
// Nil fields keep the server's defaults.
type SearchRequest struct {
	Query         string   `json:"query"`
	CaseSensitive *bool    `json:"case_sensitive,omitempty"`
	UniqueVerse   *bool    `json:"unique_verse,omitempty"`
	Abbreviate    *bool    `json:"abbreviate,omitempty"`
	Truncate      *int     `json:"truncate,omitempty"`
	Translations  []string `json:"translations,omitempty"`
}

// SearchResponse is a completed search rendered for display.
type SearchResponse struct {
	Query     string          `json:"query"`
	Kind      search.Kind     `json:"kind"`
	Records   []format.Record `json:"records"`
	Total     int             `json:"total"`
	Unique    int             `json:"unique"`
	Summary   string          `json:"summary"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Cached    bool            `json:"cached,omitempty"`
	Duration  string          `json:"duration"`
}

// PassageResponse is a run of consecutive verses.
type PassageResponse struct {
	Translation string          `json:"translation"`
	Book        string          `json:"book"`
	Chapter     int             `json:"chapter"`
	Records     []format.Record `json:"records"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Translations int    `json:"translations"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	CacheEntries int    `json:"cache_entries"`
	Jobs         int    `json:"jobs"`
	Clients      int    `json:"websocket_clients"`

	Storage sqlite.Info `json:"storage"`
}

const (
	defaultReadCount = 10
	maxReadCount     = 200
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Juniper Search API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /metrics",
			"GET /search?q=",
			"GET /read?translation=&book=&chapter=",
			"GET /translations",
			"WS /ws",
			"GET /jobs",
			"POST /jobs",
			"GET /jobs/:id",
			"DELETE /jobs/:id",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	info := HealthInfo{
		Status:       "healthy",
		Version:      s.cfg.Version,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		CacheEntries: s.cache.Len(),
		Jobs:         s.jobs.Len(),
		Clients:      s.hub.ClientCount(),
		Storage:      sqlite.GetInfo(),
	}

	catalog, err := s.corpus.Translations(r.Context())
	if err == nil {
		info.Translations = len(catalog)
		info.Fingerprint, err = s.corpus.Fingerprint(r.Context())
	}
	if err != nil {
		logging.CorpusError(r.Context(), "health", err)
		info.Status = "degraded"
		respond(w, http.StatusServiceUnavailable, info)
		return
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := s.checkQuery(&req); err != nil {
		respondErr(w, err)
		return
	}

	settings, err := s.settings(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	out, cached, err := s.runSearch(r.Context(), req.Query, settings, search.Options{})
	if err != nil {
		respondErr(w, err)
		return
	}
	logging.AddRequestFields(r.Context(), "query_kind", string(out.Kind), "results", out.Total(), "cached", cached)

	respondWithTotal(w, http.StatusOK, newSearchResponse(req.Query, out, settings, cached), out.Total())
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	q := r.URL.Query()
	translation := store.NormalizeTranslationID(q.Get("translation"))
	if err := store.ValidateTranslationID(translation); err != nil {
		respondErr(w, err)
		return
	}
	book, ok := s.corpus.LookupBook(q.Get("book"))
	if !ok {
		respondErr(w, errors.NewNotFound("book", q.Get("book")))
		return
	}
	chapter, err := intParam(q, "chapter", 0)
	if err != nil {
		respondErr(w, err)
		return
	}
	verse, err := intParam(q, "verse", 1)
	if err != nil {
		respondErr(w, err)
		return
	}
	count, err := intParam(q, "count", defaultReadCount)
	if err != nil {
		respondErr(w, err)
		return
	}
	count = min(count, maxReadCount)

	results, err := search.ReadPassage(r.Context(), s.corpus, translation, book, chapter, verse, count)
	if err != nil {
		logging.WarnContext(r.Context(), "read failed", "translation", translation, "book", book, "error", err)
		respondErr(w, err)
		return
	}
	logging.AddRequestFields(r.Context(), "translation", translation, "book", book, "verses", len(results))
	if len(results) == 0 {
		respondErr(w, errors.NewNotFound("passage", fmt.Sprintf("%s %s %d:%d", translation, book, chapter, verse)))
		return
	}

	respondWithTotal(w, http.StatusOK, PassageResponse{
		Translation: translation,
		Book:        s.corpus.CanonicalBookName(book),
		Chapter:     chapter,
		Records:     format.Records(results, format.Options{}),
	}, len(results))
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	catalog, err := s.corpus.Translations(r.Context())
	if err != nil {
		respondErr(w, errors.NewCorpusUnavailable("list translations", err))
		return
	}
	translations := s.prefs.Apply(catalog)
	respondWithTotal(w, http.StatusOK, translations, len(translations))
}

// searchRequestFromQuery reads q, case, unique, abbreviate, truncate and a
// comma separated translations list.
func searchRequestFromQuery(q url.Values) (SearchRequest, error) {
	req := SearchRequest{Query: q.Get("q")}

	flags := []struct {
		name string
		dst  **bool
	}{
		{"case", &req.CaseSensitive},
		{"unique", &req.UniqueVerse},
		{"abbreviate", &req.Abbreviate},
	}
	for _, f := range flags {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return req, errors.NewValidation(f.name, "must be a boolean")
		}
		*f.dst = &v
	}

	if raw := q.Get("truncate"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.NewValidation("truncate", "must be an integer")
		}
		req.Truncate = &n
	}

	if raw := q.Get("translations"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.Translations = append(req.Translations, id)
			}
		}
	}
	return req, nil
}

// checkQuery sanitizes the query in place and enforces the length limit.
func (s *Server) checkQuery(req *SearchRequest) error {
	req.Query = server.SanitizeUserInput(req.Query)
	if s.cfg.MaxQueryLength > 0 && len(req.Query) > s.cfg.MaxQueryLength {
		return errors.NewValidation("query", fmt.Sprintf("longer than %d bytes", s.cfg.MaxQueryLength))
	}
	return nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		if def == 0 {
			return 0, errors.NewValidation(name, "is required")
		}
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.NewValidation(name, "must be a positive integer")
	}
	return n, nil
}

func newSearchResponse(query string, out *search.Outcome, settings search.Settings, cached bool) SearchResponse {
	return SearchResponse{
		Query:     query,
		Kind:      out.Kind,
		Records:   format.Records(out.Results, format.OptionsFrom(settings)),
		Total:     out.Total(),
		Unique:    out.Unique,
		Summary:   format.Summary(out.Total(), out.Unique),
		Cancelled: out.Cancelled,
		Cached:    cached,
		Duration:  out.Duration.String(),
	}
}

// errorResponse maps an engine or store error to an HTTP status and body.
func errorResponse(err error) (int, APIError) {
	var syntax *errors.SyntaxError
	switch {
	case errors.As(err, &syntax):
		apiErr := APIError{Code: "SYNTAX_ERROR", Message: err.Error()}
		if syntax.Position >= 0 {
			pos := syntax.Position
			apiErr.Position = &pos
		}
		return http.StatusBadRequest, apiErr
	case errors.Is(err, errors.ErrReferenceRange):
		return http.StatusBadRequest, APIError{Code: "REFERENCE_RANGE", Message: err.Error()}
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, errors.ErrCorpusUnavailable):
		return http.StatusServiceUnavailable, APIError{Code: "CORPUS_UNAVAILABLE", Message: "corpus unavailable"}
	default:
		return http.StatusInternalServerError, APIError{Code: "INTERNAL_ERROR", Message: "internal error"}
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	respondWithTotal(w, status, data, 0)
}

func respondWithTotal(w http.ResponseWriter, status int, data interface{}, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondErr(w http.ResponseWriter, err error) {
	status, apiErr := errorResponse(err)
	writeError(w, status, apiErr)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, APIError{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, status int, apiErr APIError) {
	response := APIResponse{
		Success: false,
		Error:   &apiErr,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
