package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Account is the per-(group, member) holder of item stacks and currency.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID        string    `bun:"id,pk" json:"id"`
	GroupID   string    `bun:"group_id,notnull" json:"group_id"`
	MemberID  string    `bun:"member_id,notnull" json:"member_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// AccountItem is one item stack. At most one row per (account, item).
type AccountItem struct {
	bun.BaseModel `bun:"table:account_items,alias:ai"`

	AccountID string    `bun:"account_id,pk" json:"account_id"`
	ItemRef   string    `bun:"item_ref,pk" json:"item_ref"`
	Quantity  int64     `bun:"quantity,notnull" json:"quantity"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Item *Item `bun:"rel:has-one,join:item_ref=ref" json:"item,omitempty"`
}

// AccountCurrency holds the four denomination counters for one account.
// Counters never go negative; the debit path guards every subtraction.
type AccountCurrency struct {
	bun.BaseModel `bun:"table:account_currency,alias:ac"`

	AccountID string    `bun:"account_id,pk" json:"account_id"`
	Copper    int64     `bun:"copper,notnull,default:0" json:"copper"`
	Silver    int64     `bun:"silver,notnull,default:0" json:"silver"`
	Gold      int64     `bun:"gold,notnull,default:0" json:"gold"`
	Platinum  int64     `bun:"platinum,notnull,default:0" json:"platinum"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (c *AccountCurrency) Purse() CoinPurse {
	return CoinPurse{Copper: c.Copper, Silver: c.Silver, Gold: c.Gold, Platinum: c.Platinum}
}

// CoinPurse is a bundle of the four denominations. There is no conversion or
// borrowing between denominations anywhere in the system.
type CoinPurse struct {
	Copper   int64 `json:"copper"`
	Silver   int64 `json:"silver"`
	Gold     int64 `json:"gold"`
	Platinum int64 `json:"platinum"`
}

func (p CoinPurse) IsZero() bool {
	return p.Copper == 0 && p.Silver == 0 && p.Gold == 0 && p.Platinum == 0
}

func (p CoinPurse) Negative() bool {
	return p.Copper < 0 || p.Silver < 0 || p.Gold < 0 || p.Platinum < 0
}

// Covers reports whether every counter in p is at least the matching counter
// in other.
func (p CoinPurse) Covers(other CoinPurse) bool {
	return p.Copper >= other.Copper && p.Silver >= other.Silver &&
		p.Gold >= other.Gold && p.Platinum >= other.Platinum
}

func (p CoinPurse) Add(other CoinPurse) CoinPurse {
	return CoinPurse{
		Copper:   p.Copper + other.Copper,
		Silver:   p.Silver + other.Silver,
		Gold:     p.Gold + other.Gold,
		Platinum: p.Platinum + other.Platinum,
	}
}

func (p CoinPurse) Sub(other CoinPurse) CoinPurse {
	return CoinPurse{
		Copper:   p.Copper - other.Copper,
		Silver:   p.Silver - other.Silver,
		Gold:     p.Gold - other.Gold,
		Platinum: p.Platinum - other.Platinum,
	}
}

// Parcel is the bundle one side of a trade escrows: an item stack slice, a
// coin bundle, or both. A parcel with no item and a zero purse is invalid.
type Parcel struct {
	ItemRef string    `json:"item_ref,omitempty"`
	ItemQty int64     `json:"item_qty,omitempty"`
	Coins   CoinPurse `json:"coins"`
}

func (p Parcel) HasItem() bool {
	return p.ItemRef != ""
}

func (p Parcel) IsEmpty() bool {
	return !p.HasItem() && p.Coins.IsZero()
}
