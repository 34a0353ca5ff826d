package main

import (
	"context"
	"sort"
	"sync"
)

// TrackLoader fetches the track listing for an album. Nil in cover mode.
type TrackLoader func(ctx context.Context, albumID string) ([]Track, error)

// RoundState is the observable state consumed by the session layer.
type RoundState struct {
	Deck       []Album
	Active     int
	GuessedIDs []string
	Score      int
	Complete   bool
}

// RoundEngine owns the deck of albums remaining to be guessed, the
// active index, the guessed set, and the score. Every transition is
// atomic with respect to callers; invalid guesses are ordinary
// non-matches, not errors.
type RoundEngine struct {
	mu sync.Mutex

	source  []Album // full deck as fetched, kept for Reset
	deck    []Album
	active  int
	guessed map[string]bool
	score   int

	loadTracks TrackLoader
	tracks     []Track
	trackSeq   uint64
}

func newRoundEngine(deck []Album, loadTracks TrackLoader) *RoundEngine {
	e := &RoundEngine{
		source:     append([]Album(nil), deck...),
		guessed:    make(map[string]bool),
		loadTracks: loadTracks,
	}
	e.deck = append([]Album(nil), e.source...)

	return e
}

// SubmitGuess compares the guess against the active album under
// normalization. On a match the album moves out of the deck into the
// guessed set and the score increments; the album occupying the freed
// slot becomes active, wrapping to the start only when the index has
// fallen off the end of the deck. A mismatch changes nothing.
func (e *RoundEngine) SubmitGuess(text string) (Album, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.deck) == 0 {
		return Album{}, false
	}

	guess := normalizeName(text)
	if guess == "" || guess != normalizeName(e.deck[e.active].Name) {
		return Album{}, false
	}

	matched := e.deck[e.active]
	e.guessed[matched.ID] = true
	e.deck = append(e.deck[:e.active], e.deck[e.active+1:]...)
	e.score++

	if e.active > len(e.deck)-1 {
		e.active = 0
	}

	return matched, true
}

// Navigate moves the active index by delta, wrapping around the deck.
// A no-op on an empty deck.
func (e *RoundEngine) Navigate(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.deck) == 0 {
		return
	}

	e.active = ((e.active+delta)%len(e.deck) + len(e.deck)) % len(e.deck)
}

// Reset restores the original full deck, clears the guessed set, and
// zeroes the score.
func (e *RoundEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deck = append([]Album(nil), e.source...)
	e.guessed = make(map[string]bool)
	e.score = 0
	e.active = 0
	e.tracks = nil
}

func (e *RoundEngine) Snapshot() RoundState {
	e.mu.Lock()
	defer e.mu.Unlock()

	guessed := make([]string, 0, len(e.guessed))
	for id := range e.guessed {
		guessed = append(guessed, id)
	}
	sort.Strings(guessed)

	return RoundState{
		Deck:       append([]Album(nil), e.deck...),
		Active:     e.active,
		GuessedIDs: guessed,
		Score:      e.score,
		Complete:   len(e.deck) == 0,
	}
}

// ActiveAlbum returns the album at the active index, or false when the
// deck is empty.
func (e *RoundEngine) ActiveAlbum() (Album, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.deck) == 0 {
		return Album{}, false
	}

	return e.deck[e.active], true
}

// Suggest ranks the remaining deck against partial input.
func (e *RoundEngine) Suggest(input string) []Album {
	e.mu.Lock()
	defer e.mu.Unlock()

	return suggestAlbums(e.deck, input)
}

// RefreshTracks reloads the track listing for the active album through
// the configured loader. A reload started before a later deck or index
// change can never overwrite the newer listing. A loader failure leaves
// the listing empty and is returned for reporting; the round stays
// playable either way.
func (e *RoundEngine) RefreshTracks(ctx context.Context) ([]Track, error) {
	e.mu.Lock()
	if e.loadTracks == nil || len(e.deck) == 0 {
		e.tracks = nil
		e.mu.Unlock()

		return nil, nil
	}
	e.trackSeq++
	seq := e.trackSeq
	albumID := e.deck[e.active].ID
	loader := e.loadTracks
	e.mu.Unlock()

	tracks, err := loader(ctx, albumID)
	if err != nil {
		tracks = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.trackSeq {
		// Superseded by a newer reload.
		return append([]Track(nil), e.tracks...), nil
	}

	e.tracks = tracks
	if err != nil {
		return nil, err
	}

	return append([]Track(nil), tracks...), nil
}

// Tracks returns the most recently loaded track listing.
func (e *RoundEngine) Tracks() []Track {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Track(nil), e.tracks...)
}
