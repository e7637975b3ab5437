// Package search is the query engine: it classifies user input as a passage
// reference or a boolean expression, evaluates it against a Corpus, ranks and
// optionally collapses the matches by translation priority, and marks the
// matched spans in each verse.
//
// Every call is a function of (input, Settings, corpus snapshot). The package
// holds no mutable global state and never writes to the corpus.
package search

import (
	"fmt"
	"slices"
	"time"

	"github.com/FocuswithJustin/JuniperSearch/core/query"
	"github.com/FocuswithJustin/JuniperSearch/core/reference"
)

// Coordinate identifies one verse of one translation.
type Coordinate struct {
	Translation string `json:"translation"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
}

// Location drops the translation from the coordinate.
func (c Coordinate) Location() reference.Location {
	return reference.Location{Book: c.Book, Chapter: c.Chapter, Verse: c.Verse}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s %s %d:%d", c.Translation, c.Book, c.Chapter, c.Verse)
}

// Translation is a searchable edition of the text. Rank orders translations
// for sorting and unique-verse collapsing; lower is better.
type Translation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Rank    int    `json:"rank"`
}

// Verse is one unit of corpus text.
type Verse struct {
	Coordinate
	Text string `json:"text"`
}

// Span is a half-open byte range [Start, End) within a verse's text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MatchResult is one matching verse. Spans are ascending and never overlap;
// reference lookups carry no spans.
type MatchResult struct {
	Coordinate
	Rank  int    `json:"rank"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
}

// Settings are the per-query options.
type Settings struct {
	CaseSensitive bool `json:"case_sensitive"`
	UniqueVerse   bool `json:"unique_verse"`
	Abbreviate    bool `json:"abbreviate"`

	// Truncate is the abbreviated-mode character budget for verse text.
	// Zero disables truncation.
	Truncate int `json:"truncate,omitempty"`

	// Translations, when non-empty, replaces the corpus' own list. Only
	// enabled entries are searched.
	Translations []Translation `json:"translations,omitempty"`
}

// Enabled returns the enabled translations in rank order. Equal ranks keep
// their relative order.
func (s Settings) Enabled() []Translation {
	out := make([]Translation, 0, len(s.Translations))
	for _, t := range s.Translations {
		if t.Enabled {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Translation) int { return a.Rank - b.Rank })
	return out
}

// Kind distinguishes the two query variants.
type Kind string

const (
	KindReference  Kind = "reference"
	KindExpression Kind = "expression"
)

// Query is the classified form of user input. Exactly one of Passage and
// Expression is set.
type Query struct {
	Input      string
	Passage    *reference.Passage
	Expression query.Node
}

// Kind reports which variant is populated.
func (q Query) Kind() Kind {
	if q.Passage != nil {
		return KindReference
	}
	return KindExpression
}

// Outcome is the result of one Search call.
type Outcome struct {
	Sequence  uint64        `json:"sequence"`
	Kind      Kind          `json:"kind"`
	Results   []MatchResult `json:"results"`
	Unique    int           `json:"unique"`
	Cancelled bool          `json:"cancelled"`
	Stale     bool          `json:"stale,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Total is the number of results.
func (o *Outcome) Total() int {
	return len(o.Results)
}
