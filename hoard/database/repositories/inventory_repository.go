package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/trading"
	"github.com/uptrace/bun"
)

// InventoryRepository is the ledger for item stacks and coin counters. The
// parcel primitives take a bun.IDB so the trade repository can run them
// inside its own transaction; every debit is a conditional update that either
// applies in full or touches nothing.
type InventoryRepository interface {
	GetAccountItems(ctx context.Context, accountID string) ([]*models.AccountItem, error)
	GetAccountCurrency(ctx context.Context, accountID string) (*models.AccountCurrency, error)

	// DM administration. Each call is its own atomic unit.
	GrantItem(ctx context.Context, accountID, itemRef string, quantity int64) error
	RemoveItem(ctx context.Context, accountID, itemRef string, quantity int64) error
	AdjustCurrency(ctx context.Context, accountID string, delta models.CoinPurse) error

	// Escrow/settlement primitives, composed into the caller's transaction.
	DebitParcel(ctx context.Context, db bun.IDB, accountID string, parcel models.Parcel) error
	CreditParcel(ctx context.Context, db bun.IDB, accountID string, parcel models.Parcel) error
}

type inventoryRepository struct {
	db *bun.DB
}

func NewInventoryRepository(db *bun.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetAccountItems(ctx context.Context, accountID string) ([]*models.AccountItem, error) {
	var items []*models.AccountItem
	err := r.db.NewSelect().
		Model(&items).
		Where("account_id = ?", accountID).
		Where("quantity > 0").
		Relation("Item").
		Order("item_ref ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account items: %w", err)
	}
	return items, nil
}

func (r *inventoryRepository) GetAccountCurrency(ctx context.Context, accountID string) (*models.AccountCurrency, error) {
	currency := new(models.AccountCurrency)
	err := r.db.NewSelect().
		Model(currency).
		Where("account_id = ?", accountID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		// Account exists but never held coins; report an empty purse.
		return &models.AccountCurrency{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account currency: %w", err)
	}
	return currency, nil
}

func (r *inventoryRepository) GrantItem(ctx context.Context, accountID, itemRef string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: grant quantity must be positive", trading.ErrInvalidParcel)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return r.creditItem(ctx, tx, accountID, itemRef, quantity)
	})
}

func (r *inventoryRepository) RemoveItem(ctx context.Context, accountID, itemRef string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: remove quantity must be positive", trading.ErrInvalidParcel)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return r.debitItem(ctx, tx, accountID, itemRef, quantity)
	})
}

// AdjustCurrency applies a signed delta to the four counters as one guarded
// update. A delta that would push any counter negative fails whole.
func (r *inventoryRepository) AdjustCurrency(ctx context.Context, accountID string, delta models.CoinPurse) error {
	if delta.IsZero() {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.ensureCurrencyRow(ctx, tx, accountID); err != nil {
			return err
		}
		res, err := tx.NewUpdate().
			Model((*models.AccountCurrency)(nil)).
			Set("copper = copper + ?", delta.Copper).
			Set("silver = silver + ?", delta.Silver).
			Set("gold = gold + ?", delta.Gold).
			Set("platinum = platinum + ?", delta.Platinum).
			Set("updated_at = ?", time.Now()).
			Where("account_id = ?", accountID).
			Where("copper + ? >= 0 AND silver + ? >= 0 AND gold + ? >= 0 AND platinum + ? >= 0",
				delta.Copper, delta.Silver, delta.Gold, delta.Platinum).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to adjust currency: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: currency adjustment for account %s", trading.ErrInsufficientResource, accountID)
		}
		return nil
	})
}

// DebitParcel subtracts every resource the parcel names from the account.
// The item stack and all four coin counters are guarded; a single shortfall
// fails the whole debit with no partial effect (the caller's transaction
// rolls back).
func (r *inventoryRepository) DebitParcel(ctx context.Context, db bun.IDB, accountID string, parcel models.Parcel) error {
	if parcel.HasItem() {
		if err := r.debitItem(ctx, db, accountID, parcel.ItemRef, parcel.ItemQty); err != nil {
			return err
		}
	}
	if !parcel.Coins.IsZero() {
		if err := r.debitCoins(ctx, db, accountID, parcel.Coins); err != nil {
			return err
		}
	}
	return nil
}

// CreditParcel adds every resource the parcel names. Credits are unchecked:
// amounts are bounded by the prior escrow debit that produced the parcel.
func (r *inventoryRepository) CreditParcel(ctx context.Context, db bun.IDB, accountID string, parcel models.Parcel) error {
	if parcel.HasItem() {
		if err := r.creditItem(ctx, db, accountID, parcel.ItemRef, parcel.ItemQty); err != nil {
			return err
		}
	}
	if !parcel.Coins.IsZero() {
		if err := r.creditCoins(ctx, db, accountID, parcel.Coins); err != nil {
			return err
		}
	}
	return nil
}

func (r *inventoryRepository) debitItem(ctx context.Context, db bun.IDB, accountID, itemRef string, quantity int64) error {
	res, err := db.NewUpdate().
		Model((*models.AccountItem)(nil)).
		Set("quantity = quantity - ?", quantity).
		Set("updated_at = ?", time.Now()).
		Where("account_id = ? AND item_ref = ? AND quantity >= ?", accountID, itemRef, quantity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit item %s: %w", itemRef, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: item %s x%d in account %s", trading.ErrInsufficientResource, itemRef, quantity, accountID)
	}

	// Drop emptied stacks so the account holds at most one row per item and
	// listings stay clean.
	_, err = db.NewDelete().
		Model((*models.AccountItem)(nil)).
		Where("account_id = ? AND item_ref = ? AND quantity = 0", accountID, itemRef).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune empty stack: %w", err)
	}
	return nil
}

// creditItem is a single upsert so two concurrent settlements creating the
// same missing stack merge instead of colliding on the primary key.
func (r *inventoryRepository) creditItem(ctx context.Context, db bun.IDB, accountID, itemRef string, quantity int64) error {
	_, err := db.NewInsert().
		Model(&models.AccountItem{
			AccountID: accountID,
			ItemRef:   itemRef,
			Quantity:  quantity,
			UpdatedAt: time.Now(),
		}).
		On("CONFLICT (account_id, item_ref) DO UPDATE").
		Set("quantity = ai.quantity + EXCLUDED.quantity").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit item %s: %w", itemRef, err)
	}
	return nil
}

func (r *inventoryRepository) debitCoins(ctx context.Context, db bun.IDB, accountID string, coins models.CoinPurse) error {
	res, err := db.NewUpdate().
		Model((*models.AccountCurrency)(nil)).
		Set("copper = copper - ?", coins.Copper).
		Set("silver = silver - ?", coins.Silver).
		Set("gold = gold - ?", coins.Gold).
		Set("platinum = platinum - ?", coins.Platinum).
		Set("updated_at = ?", time.Now()).
		Where("account_id = ?", accountID).
		Where("copper >= ? AND silver >= ? AND gold >= ? AND platinum >= ?",
			coins.Copper, coins.Silver, coins.Gold, coins.Platinum).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit coins: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: coins in account %s", trading.ErrInsufficientResource, accountID)
	}
	return nil
}

func (r *inventoryRepository) creditCoins(ctx context.Context, db bun.IDB, accountID string, coins models.CoinPurse) error {
	_, err := db.NewInsert().
		Model(&models.AccountCurrency{
			AccountID: accountID,
			Copper:    coins.Copper,
			Silver:    coins.Silver,
			Gold:      coins.Gold,
			Platinum:  coins.Platinum,
			UpdatedAt: time.Now(),
		}).
		On("CONFLICT (account_id) DO UPDATE").
		Set("copper = ac.copper + EXCLUDED.copper").
		Set("silver = ac.silver + EXCLUDED.silver").
		Set("gold = ac.gold + EXCLUDED.gold").
		Set("platinum = ac.platinum + EXCLUDED.platinum").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit coins: %w", err)
	}
	return nil
}

func (r *inventoryRepository) ensureCurrencyRow(ctx context.Context, db bun.IDB, accountID string) error {
	_, err := db.NewInsert().
		Model(&models.AccountCurrency{AccountID: accountID, UpdatedAt: time.Now()}).
		On("CONFLICT (account_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure currency row: %w", err)
	}
	return nil
}
