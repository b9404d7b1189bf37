package trading

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(tradeID string) Event {
	return Event{
		Type:        EventTradeCreated,
		TradeID:     tradeID,
		GroupID:     "group-1",
		InitiatorID: "alice",
		ReceiverID:  "bob",
	}
}

func TestBus_DeliversToBothParticipants(t *testing.T) {
	bus := NewBus()
	alice := bus.Subscribe("alice")
	defer alice.Close()
	bob := bus.Subscribe("bob")
	defer bob.Close()
	carol := bus.Subscribe("carol")
	defer carol.Close()

	bus.Publish(testEvent("trade-1"))

	assert.Equal(t, "trade-1", (<-alice.C).TradeID)
	assert.Equal(t, "trade-1", (<-bob.C).TradeID)

	select {
	case ev := <-carol.C:
		t.Fatalf("bystander received event for trade %s", ev.TradeID)
	default:
	}
}

func TestBus_MultipleSessionsPerMember(t *testing.T) {
	bus := NewBus()
	phone := bus.Subscribe("bob")
	defer phone.Close()
	laptop := bus.Subscribe("bob")
	defer laptop.Close()

	bus.Publish(testEvent("trade-1"))

	assert.Equal(t, "trade-1", (<-phone.C).TradeID)
	assert.Equal(t, "trade-1", (<-laptop.C).TradeID)
}

func TestBus_StampsPublicationTime(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("bob")
	defer sub.Close()

	bus.Publish(testEvent("trade-1"))
	require.False(t, (<-sub.C).At.IsZero())
}

func TestBus_SlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("bob")
	defer sub.Close()

	// Nobody drains; publishing far past the buffer must not block and the
	// newest cues must survive.
	total := subscriptionBuffer * 3
	for i := 0; i < total; i++ {
		bus.Publish(testEvent(fmt.Sprintf("trade-%d", i)))
	}

	received := 0
	last := ""
drain:
	for {
		select {
		case ev := <-sub.C:
			received++
			last = ev.TradeID
		default:
			break drain
		}
	}

	assert.Equal(t, subscriptionBuffer, received)
	assert.Equal(t, fmt.Sprintf("trade-%d", total-1), last)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("bob")
	sub.Close()
	sub.Close()

	// Publishing after close must not panic on the closed channel.
	bus.Publish(testEvent("trade-1"))

	_, open := <-sub.C
	assert.False(t, open)
}
