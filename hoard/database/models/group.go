package models

import (
	"time"

	"github.com/uptrace/bun"
)

type GroupRole string

const (
	RolePlayer GroupRole = "player"
	RoleDM     GroupRole = "dm"
)

// GroupMember records membership and role. Role drives trade eligibility:
// the DM administers inventories but never trades.
type GroupMember struct {
	bun.BaseModel `bun:"table:group_members,alias:gm"`

	GroupID  string    `bun:"group_id,pk" json:"group_id"`
	MemberID string    `bun:"member_id,pk" json:"member_id"`
	Role     GroupRole `bun:"role,notnull,default:'player'" json:"role"`
	JoinedAt time.Time `bun:"joined_at,notnull,default:current_timestamp" json:"joined_at"`
}
