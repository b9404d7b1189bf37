package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is a catalog entry. GroupID is empty for the shared base catalog and
// set for custom items a DM created for one group.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	Ref         string    `bun:"ref,pk" json:"ref"`
	GroupID     string    `bun:"group_id" json:"group_id,omitempty"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Category    string    `bun:"category,notnull" json:"category"`
	Weight      float64   `bun:"weight,notnull,default:0" json:"weight"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

const (
	ItemCategoryWeapon     = "weapon"
	ItemCategoryArmor      = "armor"
	ItemCategoryGear       = "adventuring gear"
	ItemCategoryConsumable = "consumable"
	ItemCategoryTreasure   = "treasure"
)
