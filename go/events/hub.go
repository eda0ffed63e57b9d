// Package events fans indexed transaction events out to websocket
// subscribers. The hub is invoked synchronously from the download
// stage, so a slow subscriber must never block: writes carry a
// deadline and a failed subscriber is dropped.
package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/asjadnft/sui-indexer/go/sui"
)

// Handler consumes the effects and events of one transaction.
type Handler interface {
	ProcessEvents(ctx context.Context, effects *sui.TransactionEffects, events []sui.Event) error
}

// Maximum time we'll wait for a write we initiate to complete.
// We don't use websocket's ping-pong mechanism, instead relying on TCP keep-alive.
const wsWriteTimeout = 10 * time.Second

// Filter selects the events a subscriber receives. Zero-valued fields
// match everything.
type Filter struct {
	EventType string
	Sender    string
}

func (f Filter) matches(e *sui.Event) bool {
	if f.EventType != "" && f.EventType != e.Type {
		return false
	}
	if f.Sender != "" && !sui.AddressEq(f.Sender, e.Sender) {
		return false
	}
	return true
}

type subscriber struct {
	conn   *websocket.Conn
	filter Filter

	// Guards writes: ProcessEvents and the close path may race.
	mu sync.Mutex
}

// Hub is a websocket event fan-out implementing Handler.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

var _ Handler = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// ProcessEvents publishes each event to every matching subscriber.
// It never returns an error for subscriber failures; those only drop
// the subscriber.
func (h *Hub) ProcessEvents(ctx context.Context, effects *sui.TransactionEffects, events []sui.Event) error {
	if len(events) == 0 {
		return nil
	}
	h.mu.Lock()
	var subscribers = make([]*subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subscribers = append(subscribers, s)
	}
	h.mu.Unlock()

	for i := range events {
		var event = &events[i]
		for _, s := range subscribers {
			if !s.filter.matches(event) {
				continue
			}
			if err := s.write(event); err != nil {
				log.WithFields(log.Fields{
					"transaction": effects.TransactionDigest,
					"error":       err,
				}).Warn("dropping event subscriber")
				h.drop(s)
			}
		}
	}
	return nil
}

func (s *subscriber) write(event *sui.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(event)
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	var _, ok = h.subscribers[s]
	delete(h.subscribers, s)
	h.mu.Unlock()

	if ok {
		_ = s.conn.Close()
	}
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a websocket subscription. The
// filter comes from the eventType and sender query parameters.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var conn, err = upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("error", err).Warn("failed to upgrade event subscription to websocket")
		return
	}
	var s = &subscriber{
		conn: conn,
		filter: Filter{
			EventType: r.URL.Query().Get("eventType"),
			Sender:    r.URL.Query().Get("sender"),
		},
	}
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	// Reads are discarded; a read error is the only disconnect signal.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(s)
				return
			}
		}
	}()
}
