package main

import (
	"fmt"
	"testing"
)

func testDeck() []Album {
	return []Album{
		{ID: "1", Name: "A Night at the Opera"},
		{ID: "2", Name: "Nevermind (2011 Remaster)"},
		{ID: "3", Name: "News of the World"},
		{ID: "4", Name: "Café Tacvba"},
		{ID: "5", Name: "The Night Café"},
	}
}

func TestSuggestAlbums(t *testing.T) {
	deck := testDeck()

	tests := []struct {
		input   string
		wantIDs []string
	}{
		{"", nil},
		{"   ", nil},
		{"night", []string{"1", "5"}},
		{"cafe", []string{"4", "5"}},
		{"Café", []string{"4", "5"}},
		{"nevermind", []string{"2"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := suggestAlbums(deck, tt.input)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("suggestAlbums(%q) returned %d albums, want %d", tt.input, len(got), len(tt.wantIDs))
			}
			for i, album := range got {
				if album.ID != tt.wantIDs[i] {
					t.Errorf("suggestAlbums(%q)[%d] = %s, want %s", tt.input, i, album.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestSuggestAlbumsCap(t *testing.T) {
	deck := make([]Album, 0, 8)
	for i := 0; i < 8; i++ {
		deck = append(deck, Album{
			ID:   fmt.Sprintf("%d", i),
			Name: fmt.Sprintf("Greatest Hits Vol. %d", i),
		})
	}

	got := suggestAlbums(deck, "greatest")
	if len(got) != maxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", maxSuggestions, len(got))
	}
	// Deck order preserved, truncated to the first matches.
	for i, album := range got {
		if album.ID != fmt.Sprintf("%d", i) {
			t.Errorf("suggestion %d has id %s, want %d", i, album.ID, i)
		}
	}
}
