// Album Guesser
//
// A player searches for an artist, picks a mode, and is served rounds
// drawn from that artist's albums until every one is guessed.
//
// Features:
// - WebSockets per game ID: /guess/:gameid and /guess/:gameid/ws
// - Two modes: guess the album from its cover, or from its track listing
// - Keystroke search is debounced server-side; stale results are dropped
// - Free-text guesses are matched under lenient normalization
// - Autocomplete suggests up to five remaining albums per input
// - The hidden answer never leaves the server until guessed
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	modeCovers = "covers"
	modeSongs  = "songs"
)

// Messages coming from clients
type clientMessage struct {
	Type      string `json:"type"`                // "search", "start", "guess", "suggest", "navigate", "reset", "new_artist"
	Query     string `json:"query,omitempty"`     // search
	ArtistID  string `json:"artist_id,omitempty"` // start
	Mode      string `json:"mode,omitempty"`      // start: "covers" or "songs"
	Text      string `json:"text,omitempty"`      // guess / suggest
	Direction string `json:"direction,omitempty"` // navigate: "previous" or "next"
}

// Messages sent to clients
type artistResultsMessage struct {
	Type    string   `json:"type"` // "artist_results"
	Query   string   `json:"query"`
	Artists []Artist `json:"artists"`
}

// roundStateMessage carries everything a client may see: counts, score,
// and the active cover in covers mode. Album names stay server-side.
type roundStateMessage struct {
	Type      string `json:"type"` // "round_state"
	Started   bool   `json:"started"`
	Mode      string `json:"mode,omitempty"`
	Remaining int    `json:"remaining"`
	Score     int    `json:"score"`
	Complete  bool   `json:"complete"`
	Cover     string `json:"cover,omitempty"`
}

type suggestionsMessage struct {
	Type        string   `json:"type"` // "suggestions"
	Suggestions []string `json:"suggestions"`
}

type trackListMessage struct {
	Type   string  `json:"type"` // "track_list"
	Tracks []Track `json:"tracks"`
}

type guessResultMessage struct {
	Type    string `json:"type"` // "guess_result"
	Correct bool   `json:"correct"`
	Album   *Album `json:"album,omitempty"` // revealed only on a correct guess
}

type errorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type gameClient struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type gameAction struct {
	client *gameClient
	msg    clientMessage
}

// GameHub is one game session: it owns a search session, and once an
// artist is chosen, a round engine. All round transitions happen on the
// run loop, so no guess or navigation interleaves mid-mutation.
type GameHub struct {
	id      string
	catalog *Catalog

	clients map[*gameClient]bool

	register chan *gameClient
	unreg    chan *gameClient
	actions  chan gameAction

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	search *SearchSession
	engine *RoundEngine
	mode   string
}

func newGameHub(gameID string, catalog *Catalog) *GameHub {
	now := time.Now()
	h := &GameHub{
		id:         gameID,
		catalog:    catalog,
		clients:    make(map[*gameClient]bool),
		register:   make(chan *gameClient),
		unreg:      make(chan *gameClient),
		actions:    make(chan gameAction),
		createdAt:  now,
		lastActive: now,
	}

	h.search = newSearchSession(catalog,
		func(query string, artists []Artist) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.broadcastLocked(artistResultsMessage{
				Type:    "artist_results",
				Query:   query,
				Artists: artists,
			})
		},
		func(query string, err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.broadcastLocked(errorMessage{
				Type:    "error",
				Message: "Artist search failed. Please try again.",
			})
		},
	)

	return h
}

func (h *GameHub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			state := h.stateMessageLocked()
			h.mu.Unlock()

			c.send <- state

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case a := <-h.actions:
			h.handleAction(cfg, a)
		}
	}
}

func (h *GameHub) handleAction(cfg *Config, a gameAction) {
	msg := a.msg

	h.mu.Lock()
	h.lastActive = time.Now()
	engine := h.engine
	mode := h.mode
	h.mu.Unlock()

	switch msg.Type {
	case "search":
		h.search.QueryChanged(msg.Query)

	case "start":
		if msg.ArtistID == "" {
			return
		}
		requested := msg.Mode
		if requested != modeSongs {
			requested = modeCovers
		}
		go h.startRound(cfg, msg.ArtistID, requested)

	case "guess":
		if engine == nil {
			return
		}
		album, correct := engine.SubmitGuess(msg.Text)

		result := guessResultMessage{Type: "guess_result", Correct: correct}
		if correct {
			result.Album = &album
			logf(cfg, "GAMES: Album %q guessed in %s", album.Name, h.id)
		}

		h.mu.Lock()
		h.broadcastLocked(result)
		if correct {
			h.broadcastLocked(h.stateMessageLocked())
		}
		h.mu.Unlock()

		if correct && mode == modeSongs {
			go h.refreshTracks(cfg)
		}

	case "suggest":
		if engine == nil {
			return
		}
		names := make([]string, 0, maxSuggestions)
		for _, album := range engine.Suggest(msg.Text) {
			names = append(names, album.Name)
		}

		select {
		case a.client.send <- suggestionsMessage{
			Type:        "suggestions",
			Suggestions: names,
		}:
		default:
		}

	case "navigate":
		// Cover mode only; the track listing gives no reason to flip
		// through the deck.
		if engine == nil || mode != modeCovers {
			return
		}
		delta := 1
		if msg.Direction == "previous" {
			delta = -1
		}
		engine.Navigate(delta)

		h.mu.Lock()
		h.broadcastLocked(h.stateMessageLocked())
		h.mu.Unlock()

	case "reset":
		if engine == nil {
			return
		}
		engine.Reset()

		h.mu.Lock()
		h.broadcastLocked(h.stateMessageLocked())
		h.mu.Unlock()

		if mode == modeSongs {
			go h.refreshTracks(cfg)
		}

	case "new_artist":
		h.mu.Lock()
		h.engine = nil
		h.mode = ""
		h.broadcastLocked(h.stateMessageLocked())
		h.mu.Unlock()
	}
}

// startRound fetches the artist's albums and swaps in a fresh engine.
func (h *GameHub) startRound(cfg *Config, artistID, mode string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	albums, err := h.catalog.ListAlbums(ctx, artistID)
	if err != nil {
		logf(cfg, "ERROR: Album listing for %q failed in %s: %v", artistID, h.id, err)

		h.mu.Lock()
		h.broadcastLocked(errorMessage{
			Type:    "error",
			Message: "Could not load albums for that artist.",
		})
		h.mu.Unlock()

		return
	}

	var loader TrackLoader
	if mode == modeSongs {
		loader = h.catalog.ListTracks
	}

	h.mu.Lock()
	h.engine = newRoundEngine(albums, loader)
	h.mode = mode
	h.lastActive = time.Now()
	h.broadcastLocked(h.stateMessageLocked())
	h.mu.Unlock()

	logf(cfg, "GAMES: Started %s round with %d albums in %s", mode, len(albums), h.id)

	if mode == modeSongs {
		h.refreshTracks(cfg)
	}
}

// refreshTracks reloads the active album's track listing and broadcasts
// it. A failed load empties the listing; the round stays playable.
func (h *GameHub) refreshTracks(cfg *Config) {
	h.mu.RLock()
	engine := h.engine
	h.mu.RUnlock()
	if engine == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tracks, err := engine.RefreshTracks(ctx)
	if err != nil {
		logf(cfg, "ERROR: Track listing failed in %s: %v", h.id, err)
	}
	if tracks == nil {
		tracks = []Track{}
	}

	h.mu.Lock()
	h.broadcastLocked(trackListMessage{
		Type:   "track_list",
		Tracks: tracks,
	})
	h.mu.Unlock()
}

// stateMessageLocked assumes h.mu is held.
func (h *GameHub) stateMessageLocked() roundStateMessage {
	if h.engine == nil {
		return roundStateMessage{Type: "round_state"}
	}

	state := h.engine.Snapshot()
	msg := roundStateMessage{
		Type:      "round_state",
		Started:   true,
		Mode:      h.mode,
		Remaining: len(state.Deck),
		Score:     state.Score,
		Complete:  state.Complete,
	}
	if h.mode == modeCovers && !state.Complete {
		msg.Cover = state.Deck[state.Active].CoverURL
	}

	return msg
}

// broadcastLocked assumes h.mu is held.
func (h *GameHub) broadcastLocked(msg any) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *GameHub) closeAll() {
	h.search.Close()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "albumguesser_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each
// /guess/:gameid is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*GameHub
	catalog     *Catalog
	idleTimeout time.Duration
}

func newGameManager(catalog *Catalog, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*GameHub),
		catalog:     catalog,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *GameHub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newGameHub(gameID, gm.catalog)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &gameClient{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *gameClient) readPump(h *GameHub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "search", "start", "guess", "suggest", "navigate", "reset", "new_artist":
			h.actions <- gameAction{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *gameClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed guesser/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerGuessGame sets up routes so that:
//   - $path            → redirects to new random game (8-char ID)
//   - $path/:gameid    → HTML client
//   - $path/:gameid/ws → WebSocket for that game
//   - $path/:gameid/qr → PNG QR code for that game URL
func registerGuessGame(cfg *Config, catalog *Catalog, path string, mux *httprouter.Router) {
	gm := newGameManager(catalog, cfg.sessionTimeout)

	// Root path → redirect to new random game
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
