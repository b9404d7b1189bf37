package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/uptrace/bun"
)

// ItemRepository is the catalog backing store. Items with an empty group id
// form the shared base catalog; group-scoped rows are DM-created customs.
type ItemRepository interface {
	GetByRef(ctx context.Context, ref string) (*models.Item, error)
	ListForGroup(ctx context.Context, groupID string) ([]*models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	BulkCreate(ctx context.Context, items []*models.Item) (int, error)
}

type itemRepository struct {
	db *bun.DB
}

func NewItemRepository(db *bun.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetByRef(ctx context.Context, ref string) (*models.Item, error) {
	item := new(models.Item)
	err := r.db.NewSelect().
		Model(item).
		Where("ref = ?", ref).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *itemRepository) ListForGroup(ctx context.Context, groupID string) ([]*models.Item, error) {
	var items []*models.Item
	err := r.db.NewSelect().
		Model(&items).
		Where("group_id = '' OR group_id = ?", groupID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	_, err := r.db.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *itemRepository) BulkCreate(ctx context.Context, items []*models.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res, err := r.db.NewInsert().
		Model(&items).
		On("CONFLICT (ref) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk create items: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}
