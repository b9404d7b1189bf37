package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hoardapp/hoard/hoard/logger"
	"github.com/hoardapp/hoard/hoard/trading"
)

// loggingMiddleware logs every request in the structured format the rest of
// the app uses. Level escalates with the status code.
func loggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			if e := new(fiber.Error); errors.As(err, &e) {
				status = e.Code
			} else {
				status = statusForError(err)
			}
		}

		logger.LogRequest(c.Method(), c.Path(), status, duration, err)
		if memberID := c.Get(memberHeader); memberID != "" {
			slog.Debug("Request member context",
				slog.String("type", "http"),
				slog.String("member_id", memberID),
				slog.String("path", c.Path()))
		}
		return err
	}
}

// errorHandler translates the trading error taxonomy into HTTP statuses. The
// body keeps the sentinel text so clients can show it directly.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	if e := new(fiber.Error); errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else if code = statusForError(err); code != fiber.StatusInternalServerError {
		message = err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, trading.ErrTradeNotFound),
		errors.Is(err, trading.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, trading.ErrSelfTrade),
		errors.Is(err, trading.ErrEmptyParcel),
		errors.Is(err, trading.ErrInvalidParcel):
		return fiber.StatusBadRequest
	case errors.Is(err, trading.ErrNotEligible):
		return fiber.StatusForbidden
	case errors.Is(err, trading.ErrInsufficientResource),
		errors.Is(err, trading.ErrInvalidStateTransition),
		errors.Is(err, trading.ErrSerialization):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
