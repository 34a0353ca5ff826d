package games

// A player searches the music catalog for an artist and picks a game mode:
// guess the album from its cover art, or guess the album from its track listing
// The artist's full-length albums form a deck; one album is active at a time
// Free-text guesses are compared to the active album's name under lenient normalization
// (diacritics stripped, edition suffixes like "(Deluxe Edition)" removed, case folded)
// A correct guess removes the album from the deck and scores a point
// The round ends when the deck is empty; the deck can be reset to play again

// Display formats:
// Cover mode: the active album's cover fills the screen, with previous/next navigation
// Track mode: the active album's track listing is shown instead of the cover

// Implementation details:
// - Artist search is debounced server-side; only the most recent query's results are shown
// - Autocomplete offers up to five remaining albums containing the typed text
// - The active album's name never reaches the client until it is guessed
