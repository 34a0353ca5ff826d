package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func newTestRouter(t *testing.T, c *Catalog) *httprouter.Router {
	t.Helper()

	cfg := &Config{prefix: "", market: "MX"}
	errs := make(chan error, 8)
	mux := httprouter.New()
	registerCatalogAPI(cfg, c, mux, errs)

	return mux
}

func TestServeArtistSearchShortQuery(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		t.Error("short query must not reach the provider")
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/artists?q=ab", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	var artists []Artist
	if err := json.Unmarshal(w.Body.Bytes(), &artists); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(artists) != 0 {
		t.Errorf("artists = %v, want []", artists)
	}
	// An empty list serializes as an array, never null.
	if w.Body.String() == "null" {
		t.Error("body = null, want []")
	}
}

func TestServeArtistSearchResults(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artists":{"items":[
			{"id":"ar1","name":"Supertramp","genres":["progressive rock"],"popularity":68,
			 "images":[{"url":"https://img/1"}]}
		]}}`))
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/artists?q=super", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var artists []Artist
	if err := json.Unmarshal(w.Body.Bytes(), &artists); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(artists) != 1 || artists[0].ID != "ar1" || artists[0].ImageURL != "https://img/1" {
		t.Errorf("artists = %+v", artists)
	}
}

func TestServeArtistSearchUpstreamFailure(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/artists?q=super", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("body = %v, want an error field", body)
	}
}

func TestServeArtistAlbums(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artists/ar1/albums" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":"al1","name":"Breakfast in America","release_date":"1979-03-16",
			 "total_tracks":10,"images":[{"url":"https://img/cover"}]}
		]}`))
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/albums?q=ar1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var albums []Album
	if err := json.Unmarshal(w.Body.Bytes(), &albums); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(albums) != 1 || albums[0].CoverURL != "https://img/cover" || albums[0].TotalTracks != 10 {
		t.Errorf("albums = %+v", albums)
	}
}

func TestServeAlbumTracks(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"id":"t1","name":"The Logical Song","duration_ms":250000,"track_number":2}
		]}`))
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tracks?q=al1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var tracks []Track
	if err := json.Unmarshal(w.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "The Logical Song" || tracks[0].TrackNumber != 2 {
		t.Errorf("tracks = %+v", tracks)
	}
}

func TestServeAlbumTracksMissingParam(t *testing.T) {
	var exchanges atomic.Int64
	c := newTestCatalog(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		t.Error("missing id must not reach the provider")
	})
	mux := newTestRouter(t, c)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tracks", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}
