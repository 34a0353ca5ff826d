package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

// The catalog API mirrors the three read operations of the gateway as
// plain GET routes, each keyed by a single q parameter: a search term,
// an artist id, or an album id. Short or missing parameters produce an
// empty array rather than an error.

func writeJSON(cfg *Config, w http.ResponseWriter, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)

	return w.Write(data)
}

func serveAPIError(cfg *Config, w http.ResponseWriter, r *http.Request, apiErr error, errs chan<- error) {
	logf(cfg, "ERROR: Catalog request from %s failed: %v", realIP(r), apiErr)

	data, err := json.Marshal(map[string]string{"error": apiErr.Error()})
	if err != nil {
		errs <- err

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(http.StatusInternalServerError)

	if _, err := w.Write(data); err != nil {
		errs <- err
	}
}

func serveArtistSearch(cfg *Config, catalog *Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		query := r.URL.Query().Get("q")

		artists, err := catalog.SearchArtists(ctx, query)
		if err != nil {
			serveAPIError(cfg, w, r, err, errs)

			return
		}

		written, err := writeJSON(cfg, w, artists)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Artist search %q (%s) to %s in %s",
			query,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveArtistAlbums(cfg *Config, catalog *Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		artistID := r.URL.Query().Get("q")

		albums, err := catalog.ListAlbums(ctx, artistID)
		if err != nil {
			serveAPIError(cfg, w, r, err, errs)

			return
		}

		written, err := writeJSON(cfg, w, albums)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Albums for %q (%s) to %s in %s",
			artistID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveAlbumTracks(cfg *Config, catalog *Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		albumID := r.URL.Query().Get("q")

		tracks, err := catalog.ListTracks(ctx, albumID)
		if err != nil {
			serveAPIError(cfg, w, r, err, errs)

			return
		}

		written, err := writeJSON(cfg, w, tracks)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Tracks for %q (%s) to %s in %s",
			albumID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func registerCatalogAPI(cfg *Config, catalog *Catalog, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/api/artists", serveArtistSearch(cfg, catalog, errs))
	mux.GET(cfg.prefix+"/api/albums", serveArtistAlbums(cfg, catalog, errs))
	mux.GET(cfg.prefix+"/api/tracks", serveAlbumTracks(cfg, catalog, errs))
}
