package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/model"
)

// streamBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this loses entries rather than blocking ingest.
const streamBuffer = 16

// streamHub fans accepted log entries out to WebSocket subscribers.
type streamHub struct {
	mu     sync.Mutex
	subs   map[string]chan model.LogEntry
	closed bool
	logger logging.Logger
}

func newStreamHub(logger logging.Logger) *streamHub {
	return &streamHub{
		subs:   make(map[string]chan model.LogEntry),
		logger: logger,
	}
}

// subscribe registers a new subscriber and returns its id and entry channel.
// The channel is closed on unsubscribe or hub shutdown.
func (h *streamHub) subscribe() (string, <-chan model.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan model.LogEntry, streamBuffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *streamHub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// broadcast delivers an entry to every subscriber without blocking; slow
// subscribers drop entries.
func (h *streamHub) broadcast(entry model.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- entry:
		default:
			if h.logger != nil {
				h.logger.Debug("dropping log entry for slow stream subscriber",
					logging.Field{Key: "subscriber", Value: id})
			}
		}
	}
}

func (h *streamHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
