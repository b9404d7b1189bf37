package api

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hoardapp/hoard/hoard/trading"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{trading.ErrTradeNotFound, fiber.StatusNotFound},
		{trading.ErrAccountNotFound, fiber.StatusNotFound},
		{trading.ErrSelfTrade, fiber.StatusBadRequest},
		{trading.ErrEmptyParcel, fiber.StatusBadRequest},
		{trading.ErrInvalidParcel, fiber.StatusBadRequest},
		{trading.ErrNotEligible, fiber.StatusForbidden},
		{trading.ErrInsufficientResource, fiber.StatusConflict},
		{trading.ErrInvalidStateTransition, fiber.StatusConflict},
		{trading.ErrSerialization, fiber.StatusConflict},
		{fmt.Errorf("database exploded"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestStatusForError_Wrapped(t *testing.T) {
	err := fmt.Errorf("failed to settle trade: %w", trading.ErrTradeNotFound)
	assert.Equal(t, fiber.StatusNotFound, statusForError(err))

	err = fmt.Errorf("failed to create trade offer: %w",
		fmt.Errorf("%w: member x in group y", trading.ErrNotEligible))
	assert.Equal(t, fiber.StatusForbidden, statusForError(err))
}
