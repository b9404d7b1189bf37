package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hoardapp/hoard/hoard"
	"github.com/hoardapp/hoard/hoard/database/models"
)

// requireDM resolves the acting member from the request header and checks
// they hold the DM role in the group.
func requireDM(c *fiber.Ctx, app *hoard.App, groupID string) error {
	actingID := c.Get(memberHeader)
	if actingID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+memberHeader+" header")
	}
	role, err := app.AccountRepository.MemberRole(c.Context(), groupID, actingID)
	if err != nil {
		return err
	}
	if role != models.RoleDM {
		return fiber.NewError(fiber.StatusForbidden, "requires the DM role in this group")
	}
	return nil
}

func groupInventory(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		overview, err := app.Overview.Build(c.Context(), c.Params("groupID"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"overview": overview,
		})
	}
}

func memberInventory(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		inv, err := app.Overview.BuildMember(c.Context(), c.Params("groupID"), c.Params("memberID"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"inventory": inv,
		})
	}
}

type upsertMemberRequest struct {
	Role models.GroupRole `json:"role"`
}

// memberUpsert adds a member to a group or changes their role. The first
// member bootstraps the group without a role check; after that only the DM
// may change membership.
func memberUpsert(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		memberID := c.Params("memberID")

		var req upsertMemberRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
		if req.Role != models.RolePlayer && req.Role != models.RoleDM {
			return fiber.NewError(fiber.StatusBadRequest, "role must be player or dm")
		}

		count, err := app.AccountRepository.CountMembers(c.Context(), groupID)
		if err != nil {
			return err
		}
		if count > 0 {
			if err := requireDM(c, app, groupID); err != nil {
				return err
			}
		}

		member := &models.GroupMember{GroupID: groupID, MemberID: memberID, Role: req.Role}
		if err := app.AccountRepository.UpsertMember(c.Context(), member); err != nil {
			return err
		}
		// Players get their account up front so trades and grants have a
		// ledger row to land on.
		if req.Role == models.RolePlayer {
			if _, err := app.AccountRepository.GetOrCreate(c.Context(), groupID, memberID); err != nil {
				return err
			}
		}
		return c.JSON(fiber.Map{
			"success": true,
			"member":  member,
		})
	}
}

type grantItemRequest struct {
	ItemRef  string `json:"item_ref"`
	Quantity int64  `json:"quantity"`
}

func itemsGrant(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		if err := requireDM(c, app, groupID); err != nil {
			return err
		}

		var req grantItemRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
		if req.ItemRef == "" || req.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "item_ref and a positive quantity are required")
		}

		item, err := app.Catalog.Resolve(c.Context(), req.ItemRef)
		if err != nil {
			return err
		}
		if item == nil {
			return fiber.NewError(fiber.StatusNotFound, "no such item in the catalog")
		}

		account, err := app.AccountRepository.GetOrCreate(c.Context(), groupID, c.Params("memberID"))
		if err != nil {
			return err
		}
		if err := app.InventoryRepository.GrantItem(c.Context(), account.ID, req.ItemRef, req.Quantity); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func itemsRemove(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		if err := requireDM(c, app, groupID); err != nil {
			return err
		}

		quantity := int64(c.QueryInt("quantity", 0))
		if quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "a positive quantity query parameter is required")
		}

		accountID, err := app.AccountRepository.ResolveAccountID(c.Context(), groupID, c.Params("memberID"))
		if err != nil {
			return err
		}
		if err := app.InventoryRepository.RemoveItem(c.Context(), accountID, c.Params("ref"), quantity); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

type adjustCurrencyRequest struct {
	Delta models.CoinPurse `json:"delta"`
}

func currencyAdjust(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		if err := requireDM(c, app, groupID); err != nil {
			return err
		}

		var req adjustCurrencyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
		if req.Delta.IsZero() {
			return fiber.NewError(fiber.StatusBadRequest, "delta cannot be all zeroes")
		}

		account, err := app.AccountRepository.GetOrCreate(c.Context(), groupID, c.Params("memberID"))
		if err != nil {
			return err
		}
		if err := app.InventoryRepository.AdjustCurrency(c.Context(), account.ID, req.Delta); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func snapshotExport(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groupID := c.Params("groupID")
		if err := requireDM(c, app, groupID); err != nil {
			return err
		}
		if app.Snapshots == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "snapshot storage is not configured")
		}

		key, err := app.Snapshots.Export(c.Context(), groupID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"key":     key,
		})
	}
}
