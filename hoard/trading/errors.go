package trading

import "errors"

var (
	// ErrInsufficientResource means an escrow debit would push an item stack
	// or coin counter below zero. Nothing was mutated.
	ErrInsufficientResource = errors.New("insufficient resource")

	// ErrSelfTrade means initiator and receiver are the same member.
	ErrSelfTrade = errors.New("cannot trade with yourself")

	// ErrTradeNotFound covers both a bad id and a trade that already reached
	// its terminal state (settled or cancelled trades are deleted).
	ErrTradeNotFound = errors.New("trade not found")

	// ErrInvalidStateTransition means the trade exists but is not in a status
	// the requested operation is valid from.
	ErrInvalidStateTransition = errors.New("invalid trade state transition")

	// ErrAccountNotFound means no account exists for the (group, member) pair.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmptyParcel means an offer or counter-offer names neither an item
	// stack nor any coins.
	ErrEmptyParcel = errors.New("parcel must contain an item or coins")

	// ErrInvalidParcel means a negative quantity or an item ref without a
	// positive quantity.
	ErrInvalidParcel = errors.New("invalid parcel")

	// ErrNotEligible means the member may not trade in this group (DM role,
	// or not a member at all).
	ErrNotEligible = errors.New("member is not eligible to trade")

	// ErrSerialization marks a transient transaction conflict. The engine
	// retries these silently before surfacing anything to the caller.
	ErrSerialization = errors.New("transaction serialization conflict")
)
