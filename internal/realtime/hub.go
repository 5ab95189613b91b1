package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// EventType is the kind of row change.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event is one row change pushed to subscribers.
type Event struct {
	Table string         `json:"table"`
	Type  EventType      `json:"eventType"`
	New   map[string]any `json:"new"`
	At    time.Time      `json:"commit_timestamp"`
}

// NewEvent converts row into its JSON field map.
func NewEvent(table string, typ EventType, row any) (Event, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return Event{}, fmt.Errorf("encode row: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Event{}, fmt.Errorf("decode row: %w", err)
	}
	return Event{Table: table, Type: typ, New: fields, At: time.Now().UTC()}, nil
}

// Publisher delivers change events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emit builds an event for row and publishes it. A nil publisher is a no-op.
func Emit(ctx context.Context, p Publisher, table string, typ EventType, row any) error {
	if p == nil {
		return nil
	}
	evt, err := NewEvent(table, typ, row)
	if err != nil {
		return err
	}
	return p.Publish(ctx, evt)
}

var ErrBadFilter = errors.New("filter must look like column=eq.value")

// Filter restricts a subscription to rows whose column equals a value.
// The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". An empty string yields the zero Filter.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" || !strings.HasPrefix(rest, "eq.") {
		return Filter{}, ErrBadFilter
	}
	return Filter{Column: col, Value: strings.TrimPrefix(rest, "eq.")}, nil
}

// Match reports whether row passes the filter.
func (f Filter) Match(row map[string]any) bool {
	if f.Column == "" {
		return true
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// Subscription receives events for one table and filter.
type Subscription struct {
	Events <-chan Event

	ch     chan Event
	table  string
	filter Filter
	hub    *Hub
	id     uint64
	once   sync.Once
}

// Close detaches the subscription from the hub and closes Events.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub fans events out to in-process subscribers. Delivery never blocks the
// publisher; a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	dropped atomic.Uint64
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer}
}

// Subscribe registers interest in changes of table matching f.
func (h *Hub) Subscribe(table string, f Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan Event, h.buffer)
	sub := &Subscription{Events: ch, ch: ch, table: table, filter: f, hub: h, id: h.nextID}
	h.subs[sub.id] = sub
	return sub
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers evt to every matching subscriber.
func (h *Hub) Publish(_ context.Context, evt Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.table != evt.Table || !sub.filter.Match(evt.New) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber lagged.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
