package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hoardapp/hoard/hoard"
)

// memberHeader carries the acting member's id. There is no session layer;
// identity comes from the companion client and role checks happen per group.
const memberHeader = "X-Member-ID"

// New builds the fiber app: global middleware, the error handler that
// translates the trading error taxonomy, and every route.
func New(app *hoard.App) *fiber.App {
	f := fiber.New(fiber.Config{
		AppName:      "Hoard API",
		ServerHeader: "Hoard",
		ReadTimeout:  time.Duration(app.Cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.Cfg.Server.WriteTimeout) * time.Second,
		ErrorHandler: errorHandler,
	})

	f.Use(recover.New())
	f.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	f.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(app.Cfg.Server.CORSOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + memberHeader,
	}))
	f.Use(loggingMiddleware())

	setupRoutes(f, app)
	return f
}

func setupRoutes(f *fiber.App, app *hoard.App) {
	f.Get("/health", healthCheck(app))

	api := f.Group("/api")

	trades := api.Group("/trades")
	trades.Post("/", tradesCreate(app))
	trades.Post("/:id/counter", tradesCounter(app))
	trades.Post("/:id/accept", tradesAccept(app))
	trades.Post("/:id/cancel", tradesCancel(app))

	members := api.Group("/members/:memberID")
	members.Get("/trades/incoming", tradesIncoming(app))
	members.Get("/trades/counters", tradesCounters(app))
	members.Get("/events", memberEvents(app))

	groups := api.Group("/groups/:groupID")
	groups.Get("/trades", tradesForGroup(app))
	groups.Get("/inventory", groupInventory(app))
	groups.Get("/members/:memberID/inventory", memberInventory(app))
	groups.Put("/members/:memberID", memberUpsert(app))
	groups.Post("/members/:memberID/items", itemsGrant(app))
	groups.Delete("/members/:memberID/items/:ref", itemsRemove(app))
	groups.Patch("/members/:memberID/currency", currencyAdjust(app))
	groups.Post("/items", itemsCreateCustom(app))
	groups.Post("/snapshot", snapshotExport(app))

	api.Get("/items", itemsSearch(app))
	api.Get("/items/:ref", itemsDetail(app))
}

func healthCheck(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := app.DB.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  "database unreachable",
			})
		}

		var openTrades int64
		rows, err := app.DB.QueryWithLog(c.Context(), "SELECT count(*) FROM trades")
		if err == nil {
			defer rows.Close()
			if rows.Next() {
				_ = rows.Scan(&openTrades)
			}
		}

		return c.JSON(fiber.Map{
			"status":      "ok",
			"version":     app.Version,
			"commit":      app.Commit,
			"open_trades": openTrades,
		})
	}
}
