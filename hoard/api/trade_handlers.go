package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hoardapp/hoard/hoard"
	"github.com/hoardapp/hoard/hoard/database/models"
)

type createTradeRequest struct {
	GroupID     string        `json:"group_id"`
	InitiatorID string        `json:"initiator_id"`
	ReceiverID  string        `json:"receiver_id"`
	Parcel      models.Parcel `json:"parcel"`
}

type counterTradeRequest struct {
	Parcel models.Parcel `json:"parcel"`
}

func tradesCreate(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTradeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
		if req.GroupID == "" || req.InitiatorID == "" || req.ReceiverID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "group_id, initiator_id and receiver_id are required")
		}

		trade, err := app.Engine.CreateOffer(c.Context(), req.GroupID, req.InitiatorID, req.ReceiverID, req.Parcel)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"trade":   trade,
		})
	}
}

func tradesCounter(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req counterTradeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}

		trade, err := app.Engine.CounterOffer(c.Context(), c.Params("id"), req.Parcel)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"trade":   trade,
		})
	}
}

func tradesAccept(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := app.Engine.Accept(c.Context(), c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func tradesCancel(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := app.Engine.Cancel(c.Context(), c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func tradesForGroup(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberID := c.Query("member")
		if memberID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "member query parameter is required")
		}

		trades, err := app.Engine.ActiveTrades(c.Context(), c.Params("groupID"), memberID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"trades":  trades,
		})
	}
}

func tradesIncoming(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trades, err := app.Engine.IncomingTrades(c.Context(), c.Params("memberID"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"trades":  trades,
		})
	}
}

func tradesCounters(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trades, err := app.Engine.CounterOffers(c.Context(), c.Params("memberID"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"trades":  trades,
		})
	}
}
