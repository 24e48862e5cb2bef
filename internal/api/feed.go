package api

import (
	"encoding/json"
	"net/http"
	"sync"
)

// ─── Live Credit Feed ───────────────────────────────────────────────────────
// The Mini App's balance counter ticks in real time: every confirmed credit
// is pushed to connected clients over Server-Sent Events.

// CreditFeed broadcasts credit events to SSE subscribers.
type CreditFeed struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewCreditFeed creates a credit broadcast hub.
func NewCreditFeed() *CreditFeed {
	return &CreditFeed{
		clients: make(map[chan []byte]struct{}),
	}
}

// CreditEvent is one confirmed credit pushed to the feed.
type CreditEvent struct {
	Type         string `json:"type"` // "credit"
	Slot         string `json:"slot"`
	NormalPoints int64  `json:"normal_points"`
	GoldPoints   int64  `json:"gold_points"`
	Timestamp    int64  `json:"timestamp"`
}

// Broadcast sends an event to all connected clients. Slow clients drop the
// message rather than block the session.
func (f *CreditFeed) Broadcast(event CreditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- data:
		default:
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (f *CreditFeed) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	f.mu.Lock()
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		delete(f.clients, ch)
		f.mu.Unlock()
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (f *CreditFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// HandleSSE serves the live credit feed via Server-Sent Events.
// GET /api/credits/live
func (f *CreditFeed) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := f.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
