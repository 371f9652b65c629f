package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/crossword-battle/internal/game"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	h := NewHub(nil)
	s1 := h.Subscribe("g1")
	s2 := h.Subscribe("g1")
	s3 := h.Subscribe("g2")

	if h.Count("g1") != 2 || h.Count("g2") != 1 {
		t.Fatalf("counts = %d, %d", h.Count("g1"), h.Count("g2"))
	}
	h.Unsubscribe(s1)
	h.Unsubscribe(s1) // no panic
	if h.Count("g1") != 1 {
		t.Fatalf("g1 count = %d, want 1", h.Count("g1"))
	}
	h.Unsubscribe(s2)
	h.Unsubscribe(s3)
	if h.Count("g1") != 0 || h.Count("g2") != 0 {
		t.Fatal("expected no subscribers left")
	}
}

func TestPublishRoutesBySession(t *testing.T) {
	h := NewHub(nil)
	a := h.Subscribe("g1")
	b := h.Subscribe("g2")
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(game.Snapshot{SessionID: "g1", PlayerScore: 7})

	select {
	case snap := <-a.C:
		if snap.PlayerScore != 7 {
			t.Fatalf("score = %d, want 7", snap.PlayerScore)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("g1 subscriber did not receive the snapshot")
	}
	select {
	case <-b.C:
		t.Fatal("g2 subscriber received a g1 snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDropsOlderVersions(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("g1")
	defer h.Unsubscribe(sub)

	h.Publish(game.Snapshot{SessionID: "g1", Version: 3, Turn: game.TurnPlayer})
	h.Publish(game.Snapshot{SessionID: "g1", Version: 2, Turn: game.TurnAI})

	if snap := <-sub.C; snap.Version != 3 {
		t.Fatalf("version = %d, want 3", snap.Version)
	}
	select {
	case snap := <-sub.C:
		t.Fatalf("stale snapshot delivered: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishSkipsSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("g1")
	defer h.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := range subscriberBuffer * 3 {
			h.Publish(game.Snapshot{SessionID: "g1", AIScore: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(sub.C) != subscriberBuffer {
		t.Fatalf("buffered %d, want %d", len(sub.C), subscriberBuffer)
	}
}

func TestCloseEndsSubscribers(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("g1")
	h.Close("g1")
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel")
	}
	h.Unsubscribe(sub) // already gone; no panic
}

func TestServeWS(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, game.Snapshot{SessionID: "g1", Turn: game.TurnPlayer})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first game.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.SessionID != "g1" || first.Turn != game.TurnPlayer {
		t.Fatalf("initial = %+v", first)
	}

	// The subscription is registered before the initial frame is written.
	h.Publish(game.Snapshot{SessionID: "g1", Turn: game.TurnAI, PlayerScore: 10})
	var next game.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Turn != game.TurnAI || next.PlayerScore != 10 {
		t.Fatalf("update = %+v", next)
	}

	h.Close("g1")
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("err = %v, want normal closure", err)
	}
}
