package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"split-game/internal/db"
	"split-game/internal/models"
	"split-game/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait / 2
	maxMessageSize = 512
	sendBuffer     = 32
)

// EventSnapshot is the first message a watcher receives.
const EventSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only stream
	},
}

// WSMessage is the payload of every update pushed to watchers.
type WSMessage struct {
	Type       string                          `json:"type"`
	Round      *models.Round                   `json:"round,omitempty"`
	Completion *services.RoundCompletionResult `json:"completion,omitempty"`
}

// WebSocketHandler streams round updates to everyone watching a round.
type WebSocketHandler struct {
	store db.Store
	hub   *Hub
}

var _ services.RoundBroadcaster = (*WebSocketHandler)(nil)

func NewWebSocketHandler(store db.Store) *WebSocketHandler {
	hub := NewHub()
	go hub.Run()
	return &WebSocketHandler{store: store, hub: hub}
}

// Hub fans messages out to the watchers of each round. All map changes
// happen on the Run goroutine; mu only guards reads from ClientCount.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{}

	join    chan *watcher
	leave   chan *watcher
	publish chan envelope
	done    chan struct{}
}

type envelope struct {
	sessionID string
	msg       frame
}

// frame is an encoded message tagged with the move count of the round it
// carries, so updates older than a watcher's snapshot can be skipped.
type frame struct {
	moveCount int
	data      []byte
}

type watcher struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	out       chan frame
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[*watcher]struct{}),
		join:     make(chan *watcher),
		leave:    make(chan *watcher),
		publish:  make(chan envelope, 64),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case w := <-h.join:
			h.add(w)
		case w := <-h.leave:
			h.drop(w)
		case env := <-h.publish:
			h.deliver(env)
		}
	}
}

func (h *Hub) add(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[w.sessionID]
	if set == nil {
		set = make(map[*watcher]struct{})
		h.watchers[w.sessionID] = set
	}
	set[w] = struct{}{}
	log.Debug().Str("round", w.sessionID).Int("watchers", len(set)).Msg("Watcher joined")
}

func (h *Hub) drop(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(w)
}

func (h *Hub) dropLocked(w *watcher) {
	set, ok := h.watchers[w.sessionID]
	if !ok {
		return
	}
	if _, ok := set[w]; !ok {
		return
	}
	delete(set, w)
	close(w.out)
	if len(set) == 0 {
		delete(h.watchers, w.sessionID)
	}
	log.Debug().Str("round", w.sessionID).Msg("Watcher left")
}

// deliver queues data for every watcher of the round. A watcher whose buffer
// is full is disconnected rather than allowed to stall the hub.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers[env.sessionID] {
		select {
		case w.out <- env.msg:
		default:
			log.Warn().Str("round", env.sessionID).Msg("Watcher too slow, disconnecting")
			h.dropLocked(w)
		}
	}
}

// Stop ends the Run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// ClientCount returns how many connections watch a round.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

// Publish sends data, describing the round after moveCount moves, to every
// watcher of sessionID.
func (h *Hub) Publish(sessionID string, moveCount int, data []byte) {
	select {
	case h.publish <- envelope{sessionID: sessionID, msg: frame{moveCount: moveCount, data: data}}:
	case <-h.done:
	}
}

// leave unsubscribes w. It is safe to call more than once.
func (w *watcher) leave() {
	select {
	case w.hub.leave <- w:
	case <-w.hub.done:
	}
}

// readLoop only exists to process pongs and notice the peer going away.
func (w *watcher) readLoop() {
	defer func() {
		w.leave()
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("round", w.sessionID).Msg("Watcher connection closed")
			}
			return
		}
	}
}

// writeLoop sends the snapshot, then every queued update that is not older
// than it.
func (w *watcher) writeLoop(snapshot frame) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		w.conn.Close()
	}()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, snapshot.data); err != nil {
		return
	}

	for {
		select {
		case f, ok := <-w.out:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if f.moveCount < snapshot.moveCount {
				continue
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				return
			}
		case <-ping.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades the request and subscribes it to the round named
// by {sessionId}. The watcher joins the hub before the round is read, so an
// update stored while the snapshot is loaded is still delivered after it.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	wt := &watcher{
		hub:       h.hub,
		sessionID: sessionID,
		out:       make(chan frame, sendBuffer),
	}
	// The send completes once Run has taken wt, and Run adds it before
	// handling any later publish.
	select {
	case h.hub.join <- wt:
	case <-h.hub.done:
		respondWithError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	round, err := h.store.GetRound(ctx, sessionID)
	cancel()
	if err != nil {
		wt.leave()
		if errors.Is(err, db.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Round not found")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	data, err := json.Marshal(WSMessage{Type: EventSnapshot, Round: round})
	if err != nil {
		wt.leave()
		respondWithError(w, http.StatusInternalServerError, "Failed to encode round")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		wt.leave()
		log.Warn().Err(err).Str("round", sessionID).Msg("WebSocket upgrade failed")
		return
	}
	wt.conn = conn

	go wt.writeLoop(frame{moveCount: round.MoveCount, data: data})
	go wt.readLoop()
}

// BroadcastRound sends a round update to everyone watching the round.
func (h *WebSocketHandler) BroadcastRound(event string, round *models.Round, completion *services.RoundCompletionResult) {
	data, err := json.Marshal(WSMessage{Type: event, Round: round, Completion: completion})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal round update")
		return
	}
	h.hub.Publish(round.SessionID, round.MoveCount, data)
}

// GetHub returns the hub for use by other handlers
func (h *WebSocketHandler) GetHub() *Hub {
	return h.hub
}
