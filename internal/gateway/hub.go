package gateway

import (
	"sync"

	"github.com/slidecraft/deck-orchestrator/internal/deck"
)

// ProgressHub fans content-generation progress events out to per-session
// subscribers. Publish never blocks the router: a subscriber that falls
// behind has events dropped rather than stalling slide generation.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan deck.ProgressEvent]struct{}
}

// NewProgressHub creates a new progress hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan deck.ProgressEvent]struct{}),
	}
}

// Publish delivers an event to every subscriber of its session.
func (h *ProgressHub) Publish(event deck.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.SessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a subscriber for one session's events. The returned
// cancel func must be called to release the subscription.
func (h *ProgressHub) Subscribe(sessionID string) (<-chan deck.ProgressEvent, func()) {
	ch := make(chan deck.ProgressEvent, 64)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan deck.ProgressEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		close(ch)
	}
	return ch, cancel
}
