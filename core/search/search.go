package search

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/query"
	"github.com/FocuswithJustin/JuniperSearch/core/reference"
)

// Classify decides whether input is a passage reference or an expression.
// A reference is tried first and must match in full; anything else is
// parsed as an expression. A reversed verse range is an error, not a
// fallback to free text.
func Classify(input string, books reference.BookLookup) (Query, error) {
	if strings.TrimSpace(input) == "" {
		return Query{}, errors.NewValidation("query", "query is empty")
	}

	p, err := reference.Resolve(input, books)
	switch {
	case err == nil:
		return Query{Input: input, Passage: p}, nil
	case !stderrors.Is(err, reference.ErrNotReference):
		return Query{}, err
	}

	n, err := query.Parse(input)
	if err != nil {
		return Query{}, err
	}
	return Query{Input: input, Expression: n}, nil
}

// Search runs input against corpus: classify, execute, rank and dedup.
// Cancellation through ctx is reported in Outcome.Cancelled together with
// the ranked matches found so far; it is never an error.
func Search(ctx context.Context, corpus Corpus, input string, settings Settings, opts Options) (*Outcome, error) {
	start := time.Now()

	q, err := Classify(input, corpus)
	if err != nil {
		return nil, err
	}

	matches, cancelled, err := Execute(ctx, q, settings, corpus, opts)
	if err != nil {
		return nil, err
	}

	results := RankAndDedup(matches, settings)
	return &Outcome{
		Sequence:  opts.Sequence,
		Kind:      q.Kind(),
		Results:   results,
		Unique:    CountUnique(results),
		Cancelled: cancelled,
		Duration:  time.Since(start),
	}, nil
}

// ReadPassage returns up to count verses of one chapter starting at verse
// start. Verses the translation lacks are skipped, so the window extends past
// gaps until count verses are found or the chapter ends.
func ReadPassage(ctx context.Context, corpus Corpus, translation, book string, chapter, start, count int) ([]MatchResult, error) {
	if chapter < 1 || start < 1 {
		return nil, errors.NewValidation("reference", "chapter and verse must be positive")
	}
	if count < 1 {
		return nil, errors.NewValidation("count", "count must be positive")
	}

	out := make([]MatchResult, 0, min(count, canon.MaxVerse))
	err := corpus.ReadChapter(ctx, translation, book, chapter, start, 0, func(v Verse) error {
		out = append(out, MatchResult{Coordinate: v.Coordinate, Text: v.Text})
		if len(out) == count {
			return errWindowFull
		}
		return nil
	})
	switch {
	case err == nil, stderrors.Is(err, errWindowFull):
		return out, nil
	case isContextErr(err):
		return out, err
	default:
		return nil, errors.NewCorpusUnavailable("read passage", err)
	}
}

// errWindowFull stops a chapter read once a reading window is filled.
var errWindowFull = stderrors.New("window full")
