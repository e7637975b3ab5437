package search

import (
	"context"
	stderrors "errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
)

// DefaultBatchSize is how many verses are scanned between cancellation checks
// and the largest batch handed to Options.OnBatch.
const DefaultBatchSize = 256

// Options control how a search runs, not what it matches.
type Options struct {
	// Sequence is the caller-assigned invocation number, echoed in OnBatch
	// and in the Outcome.
	Sequence uint64

	// Workers is the number of translations scanned concurrently.
	// Values below 1 mean 1.
	Workers int

	// BatchSize overrides DefaultBatchSize.
	BatchSize int

	// OnBatch, if set, receives complete matches as they are found, before
	// ranking. Calls are serialized.
	OnBatch func(seq uint64, batch []MatchResult)
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

// Execute evaluates q against every enabled translation. Matches come back
// unsorted. When ctx is cancelled, Execute stops at the next check and
// returns the matches accumulated so far with cancelled set; every returned
// match is complete. Corpus failures abort the search with a
// *errors.CorpusUnavailableError.
func Execute(ctx context.Context, q Query, settings Settings, corpus Corpus, opts Options) (matches []MatchResult, cancelled bool, err error) {
	translations, err := enabledTranslations(ctx, settings, corpus)
	if err != nil {
		return nil, false, err
	}

	e := &executor{
		corpus: corpus,
		opts:   opts,
		slots:  make([][]MatchResult, len(translations)),
	}

	if q.Passage != nil {
		err = e.lookup(ctx, q, translations)
	} else {
		var m *matcher
		m, err = compile(q.Expression, settings.CaseSensitive)
		if err != nil {
			return nil, false, errors.Wrap(err, "compile query")
		}
		err = e.scanAll(ctx, m, translations)
	}

	for _, slot := range e.slots {
		matches = append(matches, slot...)
	}

	switch {
	case err == nil:
		return matches, false, nil
	case ctx.Err() != nil:
		return matches, true, nil
	default:
		return nil, false, err
	}
}

func enabledTranslations(ctx context.Context, settings Settings, corpus Corpus) ([]Translation, error) {
	if len(settings.Translations) > 0 {
		return settings.Enabled(), nil
	}
	list, err := corpus.EnabledTranslations(ctx)
	if err != nil {
		return nil, errors.NewCorpusUnavailable("list translations", err)
	}
	return Settings{Translations: list}.Enabled(), nil
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

type executor struct {
	corpus Corpus
	opts   Options

	// slots[i] holds the matches of the i-th translation.
	slots [][]MatchResult

	emitMu sync.Mutex
}

func (e *executor) emit(batch []MatchResult) {
	if e.opts.OnBatch == nil || len(batch) == 0 {
		return
	}
	out := make([]MatchResult, len(batch))
	copy(out, batch)
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.opts.OnBatch(e.opts.Sequence, out)
}

// lookup reads the passage range of a reference query. Verses a translation
// lacks are skipped.
func (e *executor) lookup(ctx context.Context, q Query, translations []Translation) error {
	p := q.Passage
	for i, t := range translations {
		if err := ctx.Err(); err != nil {
			return err
		}
		var found []MatchResult
		err := e.corpus.ReadChapter(ctx, t.ID, p.Book, p.Chapter, p.StartVerse, p.EndVerse, func(v Verse) error {
			found = append(found, MatchResult{Coordinate: v.Coordinate, Rank: t.Rank, Text: v.Text})
			return nil
		})
		if err != nil {
			if isContextErr(err) {
				return err
			}
			return errors.NewCorpusUnavailable("read "+p.String(), err)
		}
		e.slots[i] = found
		e.emit(found)
	}
	return nil
}

// scanAll runs one scan per translation on a bounded worker pool.
func (e *executor) scanAll(ctx context.Context, m *matcher, translations []Translation) error {
	workers := e.opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range translations {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return e.scan(gctx, m, t, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *executor) scan(ctx context.Context, m *matcher, t Translation, slot int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	size := e.opts.batchSize()
	var (
		found   []MatchResult
		pending int
		seen    int
	)
	err := e.corpus.Scan(ctx, t.ID, func(v Verse) error {
		seen++
		if seen%size == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !m.Match(v.Text) {
			return nil
		}
		found = append(found, MatchResult{
			Coordinate: Coordinate{Translation: t.ID, Book: v.Book, Chapter: v.Chapter, Verse: v.Verse},
			Rank:       t.Rank,
			Text:       v.Text,
			Spans:      m.Spans(v.Text),
		})
		if len(found)-pending >= size {
			e.emit(found[pending:])
			pending = len(found)
		}
		return nil
	})

	e.slots[slot] = found
	e.emit(found[pending:])

	if err != nil {
		if isContextErr(err) {
			return err
		}
		return errors.NewCorpusUnavailable("scan "+t.ID, err)
	}
	return nil
}
