package search

import (
	"context"
	"sync"
)

// Session issues searches with increasing sequence numbers. Submitting a new
// search cancels the one in flight, and an outcome that finishes after a
// newer submission is marked Stale so callers display only the latest.
type Session struct {
	corpus Corpus
	opts   Options

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSession creates a session over corpus. opts applies to every search;
// its Sequence field is ignored.
func NewSession(corpus Corpus, opts Options) *Session {
	return &Session{corpus: corpus, opts: opts}
}

// Submit cancels any in-flight search and runs input as the newest one.
func (s *Session) Submit(ctx context.Context, input string, settings Settings) (*Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	opts := s.opts
	opts.Sequence = seq
	out, err := Search(ctx, s.corpus, input, settings, opts)

	s.mu.Lock()
	latest := s.seq
	if latest == seq {
		s.cancel = nil
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	out.Stale = seq != latest
	return out, nil
}

// Latest returns the most recently issued sequence number.
func (s *Session) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Cancel stops the in-flight search, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
