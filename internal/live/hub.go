// internal/live/hub.go
//
// Per-session fan-out of game snapshots to websocket subscribers.
// A session's Notify callback calls Publish after every state change; each
// subscriber has a small buffered channel and is skipped when it falls
// behind, so publishing never blocks a game. Snapshots older than the last
// one delivered for a session are dropped.

package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/internal/game"
)

const (
	subscriberBuffer = 16
	pingInterval     = 30 * time.Second
	writeWait        = 10 * time.Second
)

// Subscriber is a single live connection for one session.
type Subscriber struct {
	C         <-chan game.Snapshot
	ch        chan game.Snapshot
	sessionID string
}

// Hub tracks subscribers grouped by session id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
	last map[string]uint64 // newest version delivered, per session

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		subs: make(map[string]map[*Subscriber]struct{}),
		last: make(map[string]uint64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Subscribe registers a subscriber for a session.
func (h *Hub) Subscribe(sessionID string) *Subscriber {
	ch := make(chan game.Snapshot, subscriberBuffer)
	sub := &Subscriber{C: ch, ch: ch, sessionID: sessionID}
	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.sessionID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.sessionID)
		delete(h.last, sub.sessionID)
	}
}

// Publish delivers a snapshot to every subscriber of its session.
func (h *Hub) Publish(snap game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[snap.SessionID]
	if len(set) == 0 {
		return
	}
	if snap.Version < h.last[snap.SessionID] {
		log.Debug().Str("session", snap.SessionID).Uint64("version", snap.Version).Msg("stale snapshot dropped")
		return
	}
	h.last[snap.SessionID] = snap.Version
	for sub := range set {
		select {
		case sub.ch <- snap:
		default:
			log.Debug().Str("session", snap.SessionID).Msg("live subscriber behind, dropped snapshot")
		}
	}
}

// Close drops every subscriber of a session, ending their connections.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		close(sub.ch)
	}
	delete(h.subs, sessionID)
	delete(h.last, sessionID)
}

// Count returns the number of subscribers of a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// ServeWS upgrades the request and streams the session's snapshots as JSON
// text frames, starting with initial. It returns when the client goes away
// or the session is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial game.Snapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", initial.SessionID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	sub := h.Subscribe(initial.SessionID)
	defer h.Unsubscribe(sub)

	// Reader: only needed to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(snap game.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(snap)
	}
	if err := write(initial); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(snap); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
