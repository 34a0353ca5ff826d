package main

import (
	"strings"
)

const maxSuggestions = 5

// suggestAlbums returns, in deck order, up to 5 albums whose normalized
// name contains the normalized input as a substring. Empty input after
// normalization yields no suggestions.
func suggestAlbums(deck []Album, input string) []Album {
	needle := normalizeName(input)
	if needle == "" {
		return nil
	}

	matches := make([]Album, 0, maxSuggestions)
	for _, album := range deck {
		if strings.Contains(normalizeName(album.Name), needle) {
			matches = append(matches, album)
			if len(matches) == maxSuggestions {
				break
			}
		}
	}

	return matches
}
