// Package progress carries pipeline progress to whoever is watching.
//
// Progress is best effort: events published while nobody is attached, or
// while the attached observer is not keeping up, are dropped.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/iconidentify/ytmux/internal/domain"
)

// DefaultKey is the shared topic used when a download names no progress key.
const DefaultKey = ""

// Publisher accepts progress events for a topic.
type Publisher interface {
	Publish(key string, event domain.ProgressEvent)
}

// Hub routes progress events to at most one observer per topic.
type Hub struct {
	mu         sync.Mutex
	observers  map[string]*observer
	bufferSize int

	published atomic.Uint64
	dropped   atomic.Uint64
}

type observer struct {
	ch chan domain.ProgressEvent
}

// NewHub creates a hub whose observers buffer up to bufferSize events.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		observers:  make(map[string]*observer),
		bufferSize: bufferSize,
	}
}

// Attach makes the caller the observer of key, replacing (and closing the
// channel of) any previous observer. The returned detach func is idempotent
// and only detaches this observer.
func (h *Hub) Attach(key string) (<-chan domain.ProgressEvent, func()) {
	obs := &observer{ch: make(chan domain.ProgressEvent, h.bufferSize)}

	h.mu.Lock()
	if prev, ok := h.observers[key]; ok {
		close(prev.ch)
	}
	h.observers[key] = obs
	h.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if cur, ok := h.observers[key]; ok && cur == obs {
				delete(h.observers, key)
				close(obs.ch)
			}
		})
	}
	return obs.ch, detach
}

// Publish hands event to the observer of key without blocking.
func (h *Hub) Publish(key string, event domain.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	obs, ok := h.observers[key]
	if !ok {
		h.dropped.Add(1)
		return
	}
	select {
	case obs.ch <- event:
		h.published.Add(1)
	default:
		h.dropped.Add(1)
	}
}

// Stats describes hub activity since creation.
type Stats struct {
	Observers int    `json:"observers"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	n := len(h.observers)
	h.mu.Unlock()
	return Stats{
		Observers: n,
		Published: h.published.Load(),
		Dropped:   h.dropped.Load(),
	}
}
