package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	defaultAPIBase = "https://api.spotify.com/v1"

	searchLimit = 10
	albumLimit  = 50
	trackLimit  = 50

	minQueryLength = 3
)

// Artist as projected for clients; any other provider field is dropped.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image,omitempty"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// Album is the unit of play: the set of albums for one artist forms the
// deck consumed by the round engine.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CoverURL    string `json:"cover,omitempty"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
}

type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DurationMS  int    `json:"duration_ms"`
	TrackNumber int    `json:"track_number"`
}

// Catalog is a thin read-only gateway to the music catalog provider.
// It holds no state beyond the shared token cache; the client secret
// never leaves this process.
type Catalog struct {
	tokens     *TokenCache
	httpClient *http.Client
	apiBase    string
	market     string
}

func newCatalog(cfg *Config) *Catalog {
	return &Catalog{
		tokens:     newTokenCache(cfg.clientID, cfg.clientSecret),
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    defaultAPIBase,
		market:     cfg.market,
	}
}

// Provider response shapes, limited to the fields we project.
type catalogImage struct {
	URL string `json:"url"`
}

type catalogArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []catalogImage `json:"images"`
}

type catalogAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	TotalTracks int            `json:"total_tracks"`
	Images      []catalogImage `json:"images"`
}

type catalogTrack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DurationMS  int    `json:"duration_ms"`
	TrackNumber int    `json:"track_number"`
}

type searchResponse struct {
	Artists *struct {
		Items []catalogArtist `json:"items"`
	} `json:"artists"`
}

type albumsResponse struct {
	Items []catalogAlbum `json:"items"`
}

type tracksResponse struct {
	Items []catalogTrack `json:"items"`
}

// SearchArtists returns up to 10 artists matching query, in the
// provider's relevance order. Queries shorter than 3 characters after
// trimming return an empty list without an upstream call.
func (c *Catalog) SearchArtists(ctx context.Context, query string) ([]Artist, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return []Artist{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(searchLimit))

	var page searchResponse
	if err := c.get(ctx, "/search", params, &page); err != nil {
		return nil, err
	}
	if page.Artists == nil {
		return nil, fmt.Errorf("%w: search response missing artists", ErrMalformedResponse)
	}

	artists := make([]Artist, 0, len(page.Artists.Items))
	for _, item := range page.Artists.Items {
		genres := item.Genres
		if genres == nil {
			genres = []string{}
		}
		artists = append(artists, Artist{
			ID:         item.ID,
			Name:       item.Name,
			ImageURL:   firstImage(item.Images),
			Genres:     genres,
			Popularity: item.Popularity,
		})
	}

	return artists, nil
}

// ListAlbums returns up to 50 full-length albums for an artist, in the
// provider's order. Singles, compilations, and appears-on releases are
// excluded; the listing is scoped to the configured market. An empty
// artist id returns an empty list without an upstream call.
func (c *Catalog) ListAlbums(ctx context.Context, artistID string) ([]Album, error) {
	if artistID == "" {
		return []Album{}, nil
	}

	params := url.Values{}
	params.Set("include_groups", "album")
	params.Set("market", c.market)
	params.Set("limit", strconv.Itoa(albumLimit))

	var page albumsResponse
	if err := c.get(ctx, "/artists/"+url.PathEscape(artistID)+"/albums", params, &page); err != nil {
		return nil, err
	}

	albums := make([]Album, 0, len(page.Items))
	for _, item := range page.Items {
		albums = append(albums, Album{
			ID:          item.ID,
			Name:        item.Name,
			CoverURL:    firstImage(item.Images),
			ReleaseDate: item.ReleaseDate,
			TotalTracks: item.TotalTracks,
		})
	}

	return albums, nil
}

// ListTracks returns the full track listing for an album in album
// order, exactly as returned by the provider. An empty album id returns
// an empty list without an upstream call.
func (c *Catalog) ListTracks(ctx context.Context, albumID string) ([]Track, error) {
	if albumID == "" {
		return []Track{}, nil
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(trackLimit))

	var page tracksResponse
	if err := c.get(ctx, "/albums/"+url.PathEscape(albumID)+"/tracks", params, &page); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(page.Items))
	for _, item := range page.Items {
		tracks = append(tracks, Track{
			ID:          item.ID,
			Name:        item.Name,
			DurationMS:  item.DurationMS,
			TrackNumber: item.TrackNumber,
		})
	}

	return tracks, nil
}

// get issues one authenticated GET against the provider. A rejected
// token is retried exactly once after a forced refresh; every other
// failure surfaces to the caller untouched.
func (c *Catalog) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	retried := false

	for {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		apiURL := c.apiBase + endpoint
		if len(params) > 0 {
			apiURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			if retried {
				return fmt.Errorf("%w: %s from %s", ErrUpstreamAuth, resp.Status, endpoint)
			}
			c.tokens.Invalidate(token)
			retried = true

			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()

			return fmt.Errorf("%w: %s from %s", ErrUpstreamUnavailable, resp.Status, endpoint)
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}

		return nil
	}
}

func firstImage(images []catalogImage) string {
	if len(images) == 0 {
		return ""
	}

	return images[0].URL
}
