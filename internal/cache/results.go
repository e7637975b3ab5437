package cache

import (
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// Results caches completed search outcomes. Keys bind the corpus
// fingerprint, so a corpus change never serves stale results.
type Results struct {
	entries *TTLCache[string, *search.Outcome]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResults creates a result cache.
func NewResults(ttl time.Duration, maxEntries int) *Results {
	return &Results{entries: New[string, *search.Outcome](ttl, maxEntries)}
}

// Key derives a cache key from the corpus fingerprint, the raw query and
// every setting that affects the outcome.
func Key(fingerprint, query string, settings search.Settings) string {
	enabled := settings.Enabled()
	ids := make([]string, len(enabled))
	for i, t := range enabled {
		ids[i] = t.ID
	}
	payload, _ := json.Marshal(struct {
		Fingerprint   string   `json:"f"`
		Query         string   `json:"q"`
		CaseSensitive bool     `json:"c"`
		UniqueVerse   bool     `json:"u"`
		Translations  []string `json:"t"`
	}{fingerprint, query, settings.CaseSensitive, settings.UniqueVerse, ids})

	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of a cached outcome.
func (r *Results) Get(key string) (*search.Outcome, bool) {
	out, ok := r.entries.Get(key)
	if !ok {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return clone(out), true
}

// Put stores an outcome. Cancelled outcomes are incomplete and are not
// cached.
func (r *Results) Put(key string, out *search.Outcome) {
	if out == nil || out.Cancelled {
		return
	}
	r.entries.Set(key, clone(out))
}

// Invalidate drops every cached outcome.
func (r *Results) Invalidate() {
	r.entries.Invalidate()
}

// Stats reports hit and miss counts.
func (r *Results) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}

// Len returns the number of cached outcomes.
func (r *Results) Len() int {
	return r.entries.Len()
}

func clone(out *search.Outcome) *search.Outcome {
	c := *out
	c.Results = make([]search.MatchResult, len(out.Results))
	for i, m := range out.Results {
		m.Spans = slices.Clone(m.Spans)
		c.Results[i] = m
	}
	return &c
}
