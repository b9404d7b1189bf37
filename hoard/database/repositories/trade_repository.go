package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/trading"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// TradeRepository is the durable implementation of trading.Store. Each
// mutating method is one serializable transaction: the trade row is claimed
// with SELECT ... FOR UPDATE, the ledger moves run against the same
// transaction, and the status change or row deletion commits with them.
type TradeRepository interface {
	trading.Store
	DB() *bun.DB
}

type tradeRepository struct {
	db        *bun.DB
	inventory InventoryRepository
}

func NewTradeRepository(db *bun.DB, inventory InventoryRepository) TradeRepository {
	return &tradeRepository{db: db, inventory: inventory}
}

func (r *tradeRepository) DB() *bun.DB {
	return r.db
}

func (r *tradeRepository) CreateTrade(ctx context.Context, trade *models.Trade) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	initiatorAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.InitiatorID)
	if err != nil {
		return err
	}
	// Receiver must hold an account too, even though nothing is debited from
	// it yet; settlement later must have somewhere to credit.
	if _, err := r.accountID(ctx, tx, trade.GroupID, trade.ReceiverID); err != nil {
		return err
	}

	if err := r.inventory.DebitParcel(ctx, tx, initiatorAccount, trade.OfferedParcel()); err != nil {
		return translateTxError(err)
	}

	if _, err := tx.NewInsert().Model(trade).Exec(ctx); err != nil {
		return translateTxError(fmt.Errorf("failed to insert trade: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return translateTxError(fmt.Errorf("failed to commit trade creation: %w", err))
	}
	return nil
}

func (r *tradeRepository) CounterTrade(ctx context.Context, tradeID string, parcel models.Parcel) (*models.Trade, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	trade, err := r.lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != models.TradePending {
		return nil, fmt.Errorf("%w: counter-offer on %s trade", trading.ErrInvalidStateTransition, trade.Status)
	}

	receiverAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := r.inventory.DebitParcel(ctx, tx, receiverAccount, parcel); err != nil {
		return nil, translateTxError(err)
	}

	trade.SetCounterParcel(parcel)
	trade.UpdatedAt = time.Now()

	_, err = tx.NewUpdate().
		Model(trade).
		Column("status", "counter_item_ref", "counter_item_qty", "counter_coins", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, translateTxError(fmt.Errorf("failed to record counter-offer: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, translateTxError(fmt.Errorf("failed to commit counter-offer: %w", err))
	}
	return trade, nil
}

// SettleTrade performs the credit-only settlement. The FOR UPDATE claim on
// the trade row is what makes a concurrent accept/cancel pair resolve to
// exactly one winner: the loser re-reads after commit, finds no row, and
// reports ErrTradeNotFound. Because escrow already debited the source side,
// the credits here run exactly once per parcel.
func (r *tradeRepository) SettleTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	trade, err := r.lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}

	receiverAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := r.inventory.CreditParcel(ctx, tx, receiverAccount, trade.OfferedParcel()); err != nil {
		return nil, translateTxError(err)
	}

	if counter, ok := trade.CounterParcel(); ok {
		initiatorAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.InitiatorID)
		if err != nil {
			return nil, err
		}
		if err := r.inventory.CreditParcel(ctx, tx, initiatorAccount, counter); err != nil {
			return nil, translateTxError(err)
		}
	}

	if err := r.deleteTrade(ctx, tx, tradeID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, translateTxError(fmt.Errorf("failed to commit settlement: %w", err))
	}

	slog.Info("Trade settled in storage",
		slog.String("type", "db"),
		slog.String("trade_id", tradeID))
	return trade, nil
}

func (r *tradeRepository) CancelTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	trade, err := r.lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}

	initiatorAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.InitiatorID)
	if err != nil {
		return nil, err
	}
	if err := r.inventory.CreditParcel(ctx, tx, initiatorAccount, trade.OfferedParcel()); err != nil {
		return nil, translateTxError(err)
	}

	if counter, ok := trade.CounterParcel(); ok {
		receiverAccount, err := r.accountID(ctx, tx, trade.GroupID, trade.ReceiverID)
		if err != nil {
			return nil, err
		}
		if err := r.inventory.CreditParcel(ctx, tx, receiverAccount, counter); err != nil {
			return nil, translateTxError(err)
		}
	}

	if err := r.deleteTrade(ctx, tx, tradeID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, translateTxError(fmt.Errorf("failed to commit cancellation: %w", err))
	}
	return trade, nil
}

func (r *tradeRepository) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.db.NewSelect().
		Model(trade).
		Where("id = ?", tradeID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, trading.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) ActiveTrades(ctx context.Context, groupID, memberID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("group_id = ?", groupID).
		Where("(initiator_id = ? OR receiver_id = ?)", memberID, memberID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active trades: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) IncomingTrades(ctx context.Context, memberID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("receiver_id = ? AND status = ?", memberID, models.TradePending).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get incoming trades: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) CounterOffers(ctx context.Context, memberID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("initiator_id = ? AND status = ?", memberID, models.TradeCounterOffered).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter-offers: %w", err)
	}
	return trades, nil
}

func (r *tradeRepository) lockTrade(ctx context.Context, tx bun.Tx, tradeID string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := tx.NewSelect().
		Model(trade).
		Where("id = ?", tradeID).
		For("UPDATE").
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, trading.ErrTradeNotFound
	}
	if err != nil {
		return nil, translateTxError(fmt.Errorf("failed to lock trade: %w", err))
	}
	return trade, nil
}

func (r *tradeRepository) deleteTrade(ctx context.Context, tx bun.Tx, tradeID string) error {
	res, err := tx.NewDelete().
		Model((*models.Trade)(nil)).
		Where("id = ?", tradeID).
		Exec(ctx)
	if err != nil {
		return translateTxError(fmt.Errorf("failed to delete trade: %w", err))
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Row was locked a moment ago; losing it mid-transaction means the
		// claim was violated.
		return trading.ErrTradeNotFound
	}
	return nil
}

func (r *tradeRepository) accountID(ctx context.Context, tx bun.Tx, groupID, memberID string) (string, error) {
	account := new(models.Account)
	err := tx.NewSelect().
		Model(account).
		Column("id").
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: member %s in group %s", trading.ErrAccountNotFound, memberID, groupID)
	}
	if err != nil {
		return "", translateTxError(fmt.Errorf("failed to resolve account: %w", err))
	}
	return account.ID, nil
}

// translateTxError surfaces serialization conflicts as the retryable
// sentinel and passes everything else through.
func translateTxError(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "40001" {
		return fmt.Errorf("%w: %v", trading.ErrSerialization, err)
	}
	return err
}
