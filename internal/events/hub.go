// Package events is the in-process fanout bus for registry, evolution and
// marketplace activity. Subscribers are dashboard push channels; the hub never
// blocks a publisher on a slow consumer.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	TypeBountyCreated   = "bounty_created"
	TypeBountyClaimed   = "bounty_claimed"
	TypeBountySubmitted = "bounty_submitted"
	TypeBountyResolved  = "bounty_resolved"
	TypeGeneAdmitted    = "gene_admitted"
	TypeCycleCompleted  = "cycle_completed"
	TypeOrderPlaced     = "order_placed"
)

type Event struct {
	Type      string         `json:"type"`
	EntityID  string         `json:"entity_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type subscriber struct {
	id int
	ch chan Event
}

type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber

	dropped uint64

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger}
}

// Subscribe returns a receive channel and a cancel function. The channel is
// closed on cancel; buf controls how far a slow reader may lag before events
// are dropped for it.
func (h *Hub) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 32
	}
	ch := make(chan Event, buf)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, ch: ch})
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		for i, sub := range h.subs {
			if sub.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			// Drop instead of blocking the publisher.
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *Hub) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return atomic.LoadUint64(&h.dropped)
}
