package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/database/repositories"
	"github.com/sahilm/fuzzy"
)

const defaultCatalogCacheSize = 2048

// itemSearchSource implements fuzzy.Source over a catalog listing.
type itemSearchSource []*models.Item

func (s itemSearchSource) Len() int {
	return len(s)
}

func (s itemSearchSource) String(i int) string {
	return s[i].Name
}

// Catalog resolves item references to display metadata and answers name
// searches. Resolution is read-heavy (every trade and inventory listing hits
// it), so resolved items sit in an LRU cache.
type Catalog struct {
	repo  repositories.ItemRepository
	cache *lru.Cache
}

func NewCatalog(repo repositories.ItemRepository) *Catalog {
	cache, _ := lru.New(defaultCatalogCacheSize)
	return &Catalog{repo: repo, cache: cache}
}

// Resolve returns the catalog entry for ref, or nil when no such item
// exists.
func (c *Catalog) Resolve(ctx context.Context, ref string) (*models.Item, error) {
	if cached, ok := c.cache.Get(ref); ok {
		return cached.(*models.Item), nil
	}

	item, err := c.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	c.cache.Add(ref, item)
	return item, nil
}

// Search fuzzy-matches item names visible to the group (base catalog plus the
// group's custom items), best matches first. An empty query returns the full
// listing.
func (c *Catalog) Search(ctx context.Context, groupID, query string) ([]*models.Item, error) {
	items, err := c.repo.ListForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return items, nil
	}

	matches := fuzzy.FindFrom(query, itemSearchSource(items))
	results := make([]*models.Item, 0, len(matches))
	for _, m := range matches {
		results = append(results, items[m.Index])
	}
	return results, nil
}

// CreateCustomItem adds a group-scoped catalog entry. The ref is generated;
// custom items are visible only inside their group.
func (c *Catalog) CreateCustomItem(ctx context.Context, groupID, name, description, category string, weight float64) (*models.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}
	if weight < 0 {
		return nil, fmt.Errorf("item weight cannot be negative")
	}
	if category == "" {
		category = models.ItemCategoryGear
	}

	now := time.Now()
	item := &models.Item{
		Ref:         uuid.NewString(),
		GroupID:     groupID,
		Name:        name,
		Description: description,
		Category:    category,
		Weight:      weight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	c.cache.Add(item.Ref, item)
	return item, nil
}
