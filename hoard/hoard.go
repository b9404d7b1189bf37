package hoard

import (
	"github.com/hoardapp/hoard/hoard/database"
	"github.com/hoardapp/hoard/hoard/database/repositories"
	"github.com/hoardapp/hoard/hoard/services"
	"github.com/hoardapp/hoard/hoard/trading"
)

func New(cfg Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// App carries the wired application: the database, the repositories over it,
// the trade engine, and the supporting services the API serves from.
type App struct {
	Cfg     Config
	Version string
	Commit  string

	DB                  *database.DB
	AccountRepository   repositories.AccountRepository
	InventoryRepository repositories.InventoryRepository
	ItemRepository      repositories.ItemRepository
	TradeRepository     repositories.TradeRepository

	Engine    *trading.Engine
	Bus       *trading.Bus
	Catalog   *services.Catalog
	Overview  *services.Overview
	Snapshots *services.Snapshots
}
