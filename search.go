package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const searchQuietPeriod = 500 * time.Millisecond

// artistSearcher is the slice of the catalog the search session needs.
type artistSearcher interface {
	SearchArtists(ctx context.Context, query string) ([]Artist, error)
}

// SearchSession turns a stream of keystroke-driven queries into at most
// one in-flight artist search reflecting only the most recent input.
// Each query restarts the quiet-period timer; firing a new search
// cancels the previous request, and a generation counter guarantees a
// stale response can never overwrite newer results.
type SearchSession struct {
	searcher  artistSearcher
	quiet     time.Duration
	onResults func(query string, artists []Artist)
	onError   func(query string, err error)

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	gen    uint64
	closed bool
}

func newSearchSession(searcher artistSearcher, onResults func(string, []Artist), onError func(string, error)) *SearchSession {
	return &SearchSession{
		searcher:  searcher,
		quiet:     searchQuietPeriod,
		onResults: onResults,
		onError:   onError,
	}
}

// QueryChanged restarts the quiet-period timer for query. Queries of
// two characters or fewer clear the result list immediately and never
// reach the catalog.
func (s *SearchSession) QueryChanged(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}

	s.gen++
	gen := s.gen

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if utf8.RuneCountInString(query) < minQueryLength {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()

		s.onResults(query, []Artist{})

		return
	}

	s.timer = time.AfterFunc(s.quiet, func() {
		s.fire(gen, query)
	})
	s.mu.Unlock()
}

// Close cancels the pending timer and any in-flight request. Responses
// arriving afterwards are dropped.
func (s *SearchSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.gen++

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *SearchSession) fire(gen uint64, query string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()

		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s.cancel = cancel
	s.mu.Unlock()

	artists, err := s.searcher.SearchArtists(ctx, query)
	cancel()

	s.mu.Lock()
	stale := s.closed || gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		// A superseded request is not a failure.
		if errors.Is(err, context.Canceled) {
			return
		}
		s.onError(query, err)

		return
	}

	s.onResults(query, artists)
}
