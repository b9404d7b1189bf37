package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hoardapp/hoard/hoard"
)

func itemsSearch(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := app.Catalog.Search(c.Context(), c.Query("group_id"), c.Query("q"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"items":   items,
		})
	}
}

func itemsDetail(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := app.Catalog.Resolve(c.Context(), c.Params("ref"))
		if err != nil {
			return err
		}
		if item == nil {
			return fiber.NewError(fiber.StatusNotFound, "no such item in the catalog")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"item":    item,
		})
	}
}

type createItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Weight      float64 `json:"weight"`
}

func itemsCreateCustom(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		if err := requireDM(c, app, groupID); err != nil {
			return err
		}

		var req createItemRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}

		item, err := app.Catalog.CreateCustomItem(c.Context(), groupID, req.Name, req.Description, req.Category, req.Weight)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"item":    item,
		})
	}
}
