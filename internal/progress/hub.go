// Package progress streams per-field progress of bulk translations to
// websocket clients. Delivery is best effort: slow clients lose events
// rather than slowing the translation down.
package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is one progress notification for a job.
type Event struct {
	Type       string    `json:"type"` // field | done
	JobID      string    `json:"job_id"`
	FieldKey   string    `json:"field_key,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	Done       int       `json:"done"`
	Total      int       `json:"total"`
	Translated int       `json:"translated"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types.
const (
	EventField = "field"
	EventDone  = "done"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub fans events out to the subscribers of each job.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}

	// PingPeriod overrides the heartbeat interval (tests).
	PingPeriod time.Duration
	Upgrader   websocket.Upgrader
}

// NewHub returns an empty hub accepting any origin.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Subscribe registers interest in jobID. The returned cancel func must be
// called once; it closes the channel.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, sendBuffer)
	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[jobID], ch)
			if len(h.subs[jobID]) == 0 {
				delete(h.subs, jobID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.JobID without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			log.Debug().Str("job_id", ev.JobID).Msg("progress subscriber is slow, dropping event")
		}
	}
}

// Subscribers returns the number of listeners on jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}

// Serve upgrades the request and streams jobID's events as JSON text
// frames, with ping heartbeats, until the client leaves or a done event is
// sent. Snapshot, when non-nil, is called after subscribing and its event is
// written first, so late subscribers see the current state.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, jobID string, snapshot func() *Event) error {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	events, cancel := h.Subscribe(jobID)
	defer cancel()
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	period := h.PingPeriod
	if period <= 0 {
		period = pingPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	write := func(ev Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev)
	}
	if snapshot != nil {
		if ev := snapshot(); ev != nil {
			if err := write(*ev); err != nil {
				return nil
			}
			if ev.Type == EventDone {
				return closeNormally(conn)
			}
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := write(ev); err != nil {
				return nil
			}
			if ev.Type == EventDone {
				return closeNormally(conn)
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}

func closeNormally(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return nil
}
