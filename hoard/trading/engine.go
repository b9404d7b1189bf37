package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoardapp/hoard/hoard/database/models"
)

// Store is the durable side of the negotiation engine. Every mutating method
// is one atomic unit of work: escrow debits, credits, the status claim and
// the row insert/delete it belongs to all commit together or not at all.
// Implementations report conflicts through the trading error taxonomy.
type Store interface {
	// CreateTrade debits the offered parcel from the initiator's account and
	// inserts the trade row as pending.
	CreateTrade(ctx context.Context, trade *models.Trade) error

	// CounterTrade debits the parcel from the receiver's account and moves
	// the trade from pending to counter_offered. Fails with
	// ErrInvalidStateTransition when the trade is not pending.
	CounterTrade(ctx context.Context, tradeID string, parcel models.Parcel) (*models.Trade, error)

	// SettleTrade credits the offered parcel to the receiver, the counter
	// parcel (if any) to the initiator, and deletes the trade row. Exactly
	// one concurrent SettleTrade/CancelTrade pair wins; the loser observes
	// ErrTradeNotFound with no partial effect.
	SettleTrade(ctx context.Context, tradeID string) (*models.Trade, error)

	// CancelTrade returns both escrowed parcels to the accounts they came
	// from and deletes the trade row.
	CancelTrade(ctx context.Context, tradeID string) (*models.Trade, error)

	GetTrade(ctx context.Context, tradeID string) (*models.Trade, error)
	ActiveTrades(ctx context.Context, groupID, memberID string) ([]*models.Trade, error)
	IncomingTrades(ctx context.Context, memberID string) ([]*models.Trade, error)
	CounterOffers(ctx context.Context, memberID string) ([]*models.Trade, error)
}

// Directory answers the membership questions the engine needs but does not
// own: account resolution and trade eligibility (the DM role never trades).
type Directory interface {
	ResolveAccountID(ctx context.Context, groupID, memberID string) (string, error)
	IsTradeEligible(ctx context.Context, groupID, memberID string) (bool, error)
}

const txMaxRetries = 3

// retryConflicts reruns op while it reports a serialization conflict, up to
// the retry budget. Rerunning re-reads the trade row, so the loser of an
// accept/cancel race lands on ErrTradeNotFound instead of the transient
// conflict.
func retryConflicts(tradeID string, op func() (*models.Trade, error)) (*models.Trade, error) {
	for attempt := 0; ; attempt++ {
		trade, err := op()
		if err == nil || !errors.Is(err, ErrSerialization) || attempt >= txMaxRetries {
			return trade, err
		}
		slog.Warn("Transaction conflict, retrying",
			slog.String("type", "trade"),
			slog.String("trade_id", tradeID),
			slog.Int("attempt", attempt+1))
	}
}

// Engine drives the trade lifecycle: pending -> counter_offered -> gone, with
// accept and cancel valid from both live states. All precondition checks run
// before any mutation; events go out only after the store has committed.
type Engine struct {
	store Store
	dir   Directory
	bus   *Bus
	newID func() string
}

func NewEngine(store Store, dir Directory, bus *Bus, newID func() string) *Engine {
	if store == nil {
		panic("trading: store cannot be nil")
	}
	if dir == nil {
		panic("trading: directory cannot be nil")
	}
	if bus == nil {
		bus = NewBus()
	}
	return &Engine{store: store, dir: dir, bus: bus, newID: newID}
}

func (e *Engine) Bus() *Bus {
	return e.bus
}

// CreateOffer escrows the parcel out of the initiator's account and opens a
// pending trade toward the receiver.
func (e *Engine) CreateOffer(ctx context.Context, groupID, initiatorID, receiverID string, parcel models.Parcel) (*models.Trade, error) {
	if initiatorID == receiverID {
		return nil, ErrSelfTrade
	}
	if err := validateParcel(parcel); err != nil {
		return nil, err
	}
	for _, memberID := range [2]string{initiatorID, receiverID} {
		if err := e.checkEligible(ctx, groupID, memberID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	trade := &models.Trade{
		ID:             e.newID(),
		GroupID:        groupID,
		InitiatorID:    initiatorID,
		ReceiverID:     receiverID,
		Status:         models.TradePending,
		OfferedItemRef: parcel.ItemRef,
		OfferedItemQty: parcel.ItemQty,
		OfferedCoins:   parcel.Coins,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to create trade offer: %w", err)
	}

	e.publish(EventTradeCreated, trade)
	slog.Info("Trade offer created",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID),
		slog.String("group_id", groupID),
		slog.String("initiator_id", initiatorID),
		slog.String("receiver_id", receiverID))
	return trade, nil
}

// CounterOffer escrows the receiver's parcel against a pending trade. The
// initiator's original parcel stays held.
func (e *Engine) CounterOffer(ctx context.Context, tradeID string, parcel models.Parcel) (*models.Trade, error) {
	if err := validateParcel(parcel); err != nil {
		return nil, err
	}

	trade, err := retryConflicts(tradeID, func() (*models.Trade, error) {
		return e.store.CounterTrade(ctx, tradeID, parcel)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record counter-offer: %w", err)
	}

	e.publish(EventTradeCounterOffered, trade)
	slog.Info("Counter-offer recorded",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID),
		slog.String("receiver_id", trade.ReceiverID))
	return trade, nil
}

// Accept settles the trade: the offered parcel moves to the receiver and any
// counter parcel moves to the initiator, then the record is gone. Valid from
// pending and counter_offered. A duplicate accept finds no row and fails with
// ErrTradeNotFound without crediting anything twice.
func (e *Engine) Accept(ctx context.Context, tradeID string) error {
	trade, err := retryConflicts(tradeID, func() (*models.Trade, error) {
		return e.store.SettleTrade(ctx, tradeID)
	})
	if err != nil {
		return fmt.Errorf("failed to settle trade: %w", err)
	}

	e.publish(EventTradeSettled, trade)
	slog.Info("Trade settled",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID),
		slog.String("initiator_id", trade.InitiatorID),
		slog.String("receiver_id", trade.ReceiverID))
	return nil
}

// Cancel returns every escrowed parcel to the side that put it up and deletes
// the trade. Used for both explicit cancellation and decline.
func (e *Engine) Cancel(ctx context.Context, tradeID string) error {
	trade, err := retryConflicts(tradeID, func() (*models.Trade, error) {
		return e.store.CancelTrade(ctx, tradeID)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel trade: %w", err)
	}

	e.publish(EventTradeCancelled, trade)
	slog.Info("Trade cancelled",
		slog.String("type", "trade"),
		slog.String("trade_id", trade.ID))
	return nil
}

func (e *Engine) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	return e.store.GetTrade(ctx, tradeID)
}

// ActiveTrades lists every live trade in the group that the member is a party
// to, newest first.
func (e *Engine) ActiveTrades(ctx context.Context, groupID, memberID string) ([]*models.Trade, error) {
	return e.store.ActiveTrades(ctx, groupID, memberID)
}

// IncomingTrades lists pending trades where the member is the receiver.
func (e *Engine) IncomingTrades(ctx context.Context, memberID string) ([]*models.Trade, error) {
	return e.store.IncomingTrades(ctx, memberID)
}

// CounterOffers lists counter-offered trades where the member is the
// initiator and a response is expected.
func (e *Engine) CounterOffers(ctx context.Context, memberID string) ([]*models.Trade, error) {
	return e.store.CounterOffers(ctx, memberID)
}

func (e *Engine) checkEligible(ctx context.Context, groupID, memberID string) error {
	ok, err := e.dir.IsTradeEligible(ctx, groupID, memberID)
	if err != nil {
		return fmt.Errorf("failed to check trade eligibility: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s in group %s", ErrNotEligible, memberID, groupID)
	}
	return nil
}

func (e *Engine) publish(typ EventType, trade *models.Trade) {
	e.bus.Publish(Event{
		Type:        typ,
		TradeID:     trade.ID,
		GroupID:     trade.GroupID,
		InitiatorID: trade.InitiatorID,
		ReceiverID:  trade.ReceiverID,
	})
}

func validateParcel(p models.Parcel) error {
	if p.IsEmpty() {
		return ErrEmptyParcel
	}
	if p.Coins.Negative() {
		return fmt.Errorf("%w: negative coin amount", ErrInvalidParcel)
	}
	if p.HasItem() && p.ItemQty <= 0 {
		return fmt.Errorf("%w: item quantity must be positive", ErrInvalidParcel)
	}
	if !p.HasItem() && p.ItemQty != 0 {
		return fmt.Errorf("%w: quantity without an item", ErrInvalidParcel)
	}
	return nil
}
