package cache

import (
	"testing"
	"time"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

func outcome() *search.Outcome {
	return &search.Outcome{
		Kind: search.KindExpression,
		Results: []search.MatchResult{{
			Coordinate: search.Coordinate{Translation: "KJV", Book: "Gen", Chapter: 1, Verse: 1},
			Text:       "In the beginning",
			Spans:      []search.Span{{Start: 7, End: 16}},
		}},
		Unique: 1,
	}
}

func TestKey(t *testing.T) {
	base := search.Settings{Translations: []search.Translation{
		{ID: "KJV", Enabled: true, Rank: 1},
		{ID: "WEB", Enabled: true, Rank: 2},
	}}
	k := Key("fp", "love", base)
	if len(k) != 64 {
		t.Errorf("Key() length = %d", len(k))
	}
	if Key("fp", "love", base) != k {
		t.Error("Key() not deterministic")
	}

	reordered := search.Settings{Translations: []search.Translation{
		{ID: "KJV", Enabled: true, Rank: 2},
		{ID: "WEB", Enabled: true, Rank: 1},
	}}
	abbreviated := base
	abbreviated.Abbreviate = true
	abbreviated.Truncate = 40
	caseSensitive := base
	caseSensitive.CaseSensitive = true
	unique := base
	unique.UniqueVerse = true

	tests := []struct {
		name string
		key  string
		same bool
	}{
		{"other fingerprint", Key("fp2", "love", base), false},
		{"other query", Key("fp", "Love", base), false},
		{"priority order", Key("fp", "love", reordered), false},
		{"case sensitive", Key("fp", "love", caseSensitive), false},
		{"unique verse", Key("fp", "love", unique), false},
		{"display only settings", Key("fp", "love", abbreviated), true},
	}
	for _, tt := range tests {
		if (tt.key == k) != tt.same {
			t.Errorf("%s: same key = %v, want %v", tt.name, tt.key == k, tt.same)
		}
	}
}

func TestResultsGetPut(t *testing.T) {
	r := NewResults(time.Minute, 10)
	if _, ok := r.Get("k"); ok {
		t.Fatal("empty cache hit")
	}

	r.Put("k", outcome())
	got, ok := r.Get("k")
	if !ok || got.Total() != 1 {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	got.Results[0].Spans[0].Start = 99
	again, _ := r.Get("k")
	if again.Results[0].Spans[0].Start != 7 {
		t.Error("cached outcome shared with caller")
	}

	hits, misses := r.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestResultsSkipsCancelled(t *testing.T) {
	r := NewResults(time.Minute, 10)
	out := outcome()
	out.Cancelled = true
	r.Put("k", out)
	r.Put("nil", nil)
	if r.Len() != 0 {
		t.Errorf("Len() = %d, cancelled outcome cached", r.Len())
	}

	r.Put("k", outcome())
	r.Invalidate()
	if r.Len() != 0 {
		t.Error("Invalidate() kept entries")
	}
}
