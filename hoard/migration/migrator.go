package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/database/repositories"
)

// Migrator imports the hosted platform's Mongo dump into Postgres. It runs
// through the repositories so the same invariants apply as to live writes:
// one stack row per (account, item), guarded currency counters.
type Migrator struct {
	items     repositories.ItemRepository
	accounts  repositories.AccountRepository
	inventory repositories.InventoryRepository

	dataDir      string
	itemsPath    string
	membersPath  string
	holdingsPath string

	stats Stats
}

// Stats tracks per-collection outcomes for the final report.
type Stats struct {
	StartTime      time.Time
	ItemsImported  int
	ItemsSkipped   int
	MembersCreated int
	HoldingsLoaded int
	HoldingsBroken int
}

func NewMigrator(items repositories.ItemRepository, accounts repositories.AccountRepository, inventory repositories.InventoryRepository, dataDir string) *Migrator {
	return &Migrator{
		items:        items,
		accounts:     accounts,
		inventory:    inventory,
		dataDir:      dataDir,
		itemsPath:    filepath.Join(dataDir, "items.bson"),
		membersPath:  filepath.Join(dataDir, "members.bson"),
		holdingsPath: filepath.Join(dataDir, "holdings.bson"),
	}
}

// Run imports in dependency order: catalog items first, then members (which
// creates accounts and seeds their purses), then item holdings.
func (m *Migrator) Run(ctx context.Context) error {
	m.stats.StartTime = time.Now()
	slog.Info("Starting legacy import", slog.String("data_dir", m.dataDir))

	if err := m.migrateItems(ctx); err != nil {
		return fmt.Errorf("item import failed: %w", err)
	}
	if err := m.migrateMembers(ctx); err != nil {
		return fmt.Errorf("member import failed: %w", err)
	}
	if err := m.migrateHoldings(ctx); err != nil {
		return fmt.Errorf("holding import failed: %w", err)
	}

	slog.Info("Legacy import complete",
		slog.Int("items", m.stats.ItemsImported),
		slog.Int("items_skipped", m.stats.ItemsSkipped),
		slog.Int("members", m.stats.MembersCreated),
		slog.Int("holdings", m.stats.HoldingsLoaded),
		slog.Int("holdings_broken", m.stats.HoldingsBroken),
		slog.Duration("took", time.Since(m.stats.StartTime)))
	return nil
}

func (m *Migrator) migrateItems(ctx context.Context) error {
	var legacy []LegacyItem
	if err := readBSONFile(m.itemsPath, func(doc []byte) error {
		var li LegacyItem
		if err := bson.Unmarshal(doc, &li); err != nil {
			return err
		}
		legacy = append(legacy, li)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded legacy items", slog.Int("count", len(legacy)))

	items := make([]*models.Item, 0, len(legacy))
	now := time.Now()
	for _, li := range legacy {
		item := convertItem(li, now)
		if item == nil {
			m.stats.ItemsSkipped++
			continue
		}
		items = append(items, item)
	}

	inserted, err := m.items.BulkCreate(ctx, items)
	if err != nil {
		return err
	}
	m.stats.ItemsImported = inserted
	m.stats.ItemsSkipped += len(items) - inserted
	return nil
}

func (m *Migrator) migrateMembers(ctx context.Context) error {
	var legacy []LegacyMember
	if err := readBSONFile(m.membersPath, func(doc []byte) error {
		var lm LegacyMember
		if err := bson.Unmarshal(doc, &lm); err != nil {
			return err
		}
		legacy = append(legacy, lm)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded legacy members", slog.Int("count", len(legacy)))

	for _, lm := range legacy {
		if lm.CampaignID == "" || lm.UserID == "" {
			continue
		}

		member := &models.GroupMember{
			GroupID:  lm.CampaignID,
			MemberID: lm.UserID,
			Role:     convertRole(lm.Role),
		}
		if err := m.accounts.UpsertMember(ctx, member); err != nil {
			return err
		}

		account, err := m.accounts.GetOrCreate(ctx, lm.CampaignID, lm.UserID)
		if err != nil {
			return err
		}
		purse := models.CoinPurse{
			Copper:   lm.Coins.Copper,
			Silver:   lm.Coins.Silver,
			Gold:     lm.Coins.Gold,
			Platinum: lm.Coins.Platinum,
		}
		if !purse.IsZero() {
			if err := m.inventory.AdjustCurrency(ctx, account.ID, purse); err != nil {
				return err
			}
		}
		m.stats.MembersCreated++
	}
	return nil
}

func (m *Migrator) migrateHoldings(ctx context.Context) error {
	var legacy []LegacyHolding
	if err := readBSONFile(m.holdingsPath, func(doc []byte) error {
		var lh LegacyHolding
		if err := bson.Unmarshal(doc, &lh); err != nil {
			return err
		}
		legacy = append(legacy, lh)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded legacy holdings", slog.Int("count", len(legacy)))

	for _, lh := range legacy {
		if lh.CampaignID == "" || lh.UserID == "" || lh.ItemSlug == "" || lh.Quantity <= 0 {
			m.stats.HoldingsBroken++
			continue
		}

		// Holdings referencing items missing from the dump are dropped, not
		// fabricated.
		item, err := m.items.GetByRef(ctx, lh.ItemSlug)
		if err != nil {
			return err
		}
		if item == nil {
			m.stats.HoldingsBroken++
			slog.Warn("Holding references unknown item, skipping",
				slog.String("item_slug", lh.ItemSlug),
				slog.String("user_id", lh.UserID))
			continue
		}

		account, err := m.accounts.GetOrCreate(ctx, lh.CampaignID, lh.UserID)
		if err != nil {
			return err
		}
		if err := m.inventory.GrantItem(ctx, account.ID, lh.ItemSlug, lh.Quantity); err != nil {
			return err
		}
		m.stats.HoldingsLoaded++
	}
	return nil
}

func convertItem(li LegacyItem, now time.Time) *models.Item {
	ref := strings.TrimSpace(li.Slug)
	if ref == "" || strings.TrimSpace(li.Name) == "" {
		return nil
	}
	category := li.Category
	if category == "" {
		category = models.ItemCategoryGear
	}
	return &models.Item{
		Ref:         ref,
		GroupID:     li.CampaignID,
		Name:        li.Name,
		Description: li.Description,
		Category:    category,
		Weight:      li.Weight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func convertRole(role string) models.GroupRole {
	if strings.EqualFold(role, "dm") || strings.EqualFold(role, "gm") {
		return models.RoleDM
	}
	return models.RolePlayer
}

// readBSONFile walks a mongodump .bson file: a stream of documents, each
// prefixed with its little-endian int32 total length.
func readBSONFile(path string, each func(doc []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open BSON file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		lengthBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, lengthBytes); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return fmt.Errorf("invalid document length: %d", length)
		}

		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return fmt.Errorf("failed to read document bytes: %w", err)
		}

		if err := each(append(lengthBytes, docBytes...)); err != nil {
			return err
		}
	}
}
