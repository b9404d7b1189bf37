package trading

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventTradeCreated        EventType = "trade_created"
	EventTradeCounterOffered EventType = "trade_counter_offered"
	EventTradeSettled        EventType = "trade_settled"
	EventTradeCancelled      EventType = "trade_cancelled"
)

// Event is a cue, not a source of truth. Clients react by refetching their
// active trade list; the payload carries only routing data.
type Event struct {
	Type        EventType `json:"type"`
	TradeID     string    `json:"trade_id"`
	GroupID     string    `json:"group_id"`
	InitiatorID string    `json:"initiator_id"`
	ReceiverID  string    `json:"receiver_id"`
	At          time.Time `json:"at"`
}

const subscriptionBuffer = 16

// Subscription is one live session's event feed. Close it when the
// connection goes away.
type Subscription struct {
	C <-chan Event

	bus      *Bus
	memberID string
	ch       chan Event
	once     sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.ch)
	})
}

// Bus fans trade lifecycle events out to the participants' live sessions.
// Publication never blocks the committing path: when a subscriber's buffer is
// full the oldest pending cue is dropped in favor of the newest.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*Subscription]struct{})}
}

func (b *Bus) Subscribe(memberID string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, bus: b, memberID: memberID}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[memberID] == nil {
		b.subs[memberID] = make(map[*Subscription]struct{})
	}
	b.subs[memberID][sub] = struct{}{}
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.memberID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.memberID)
		}
	}
}

// Publish delivers ev to every live subscription of both participants.
// Called only after the transaction that changed state has committed.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, memberID := range [2]string{ev.InitiatorID, ev.ReceiverID} {
		for sub := range b.subs[memberID] {
			b.send(sub, ev)
			delivered++
		}
	}

	slog.Debug("trade event published",
		slog.String("type", "trade"),
		slog.String("event", string(ev.Type)),
		slog.String("trade_id", ev.TradeID),
		slog.Int("subscriptions", delivered))
}

func (b *Bus) send(sub *Subscription, ev Event) {
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		// Buffer full: evict the oldest cue so the newest always lands.
		select {
		case <-sub.ch:
		default:
		}
	}
}
