package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TradeStatus string

const (
	TradePending        TradeStatus = "pending"
	TradeCounterOffered TradeStatus = "counter_offered"
)

// Trade is one negotiation thread between two members of a group. Resources
// named in the offered fields were debited from the initiator's account when
// the row was inserted; the counter fields were debited from the receiver's
// account when the counter-offer was recorded. Accepted and cancelled trades
// are deleted, not retained.
type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID          string      `bun:"id,pk" json:"id"`
	GroupID     string      `bun:"group_id,notnull" json:"group_id"`
	InitiatorID string      `bun:"initiator_id,notnull" json:"initiator_id"`
	ReceiverID  string      `bun:"receiver_id,notnull" json:"receiver_id"`
	Status      TradeStatus `bun:"status,notnull" json:"status"`

	OfferedItemRef string    `bun:"offered_item_ref" json:"offered_item_ref,omitempty"`
	OfferedItemQty int64     `bun:"offered_item_qty" json:"offered_item_qty,omitempty"`
	OfferedCoins   CoinPurse `bun:"offered_coins,type:jsonb" json:"offered_coins"`

	CounterItemRef string    `bun:"counter_item_ref" json:"counter_item_ref,omitempty"`
	CounterItemQty int64     `bun:"counter_item_qty" json:"counter_item_qty,omitempty"`
	CounterCoins   CoinPurse `bun:"counter_coins,type:jsonb" json:"counter_coins"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// OfferedParcel returns the initiator's escrowed bundle.
func (t *Trade) OfferedParcel() Parcel {
	return Parcel{ItemRef: t.OfferedItemRef, ItemQty: t.OfferedItemQty, Coins: t.OfferedCoins}
}

// CounterParcel returns the receiver's escrowed bundle. The second return is
// false while the trade is still pending.
func (t *Trade) CounterParcel() (Parcel, bool) {
	if t.Status != TradeCounterOffered {
		return Parcel{}, false
	}
	return Parcel{ItemRef: t.CounterItemRef, ItemQty: t.CounterItemQty, Coins: t.CounterCoins}, true
}

func (t *Trade) SetCounterParcel(p Parcel) {
	t.CounterItemRef = p.ItemRef
	t.CounterItemQty = p.ItemQty
	t.CounterCoins = p.Coins
	t.Status = TradeCounterOffered
}
