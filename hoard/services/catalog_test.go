package services

import (
	"context"
	"testing"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItemRepo struct {
	items      map[string]*models.Item
	getCalls   int
	lastCreate *models.Item
}

func newFakeItemRepo(items ...*models.Item) *fakeItemRepo {
	repo := &fakeItemRepo{items: make(map[string]*models.Item)}
	for _, item := range items {
		repo.items[item.Ref] = item
	}
	return repo
}

func (r *fakeItemRepo) GetByRef(_ context.Context, ref string) (*models.Item, error) {
	r.getCalls++
	return r.items[ref], nil
}

func (r *fakeItemRepo) ListForGroup(_ context.Context, groupID string) ([]*models.Item, error) {
	var items []*models.Item
	for _, item := range r.items {
		if item.GroupID == "" || item.GroupID == groupID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *fakeItemRepo) Create(_ context.Context, item *models.Item) error {
	r.items[item.Ref] = item
	r.lastCreate = item
	return nil
}

func (r *fakeItemRepo) BulkCreate(_ context.Context, items []*models.Item) (int, error) {
	inserted := 0
	for _, item := range items {
		if _, exists := r.items[item.Ref]; !exists {
			r.items[item.Ref] = item
			inserted++
		}
	}
	return inserted, nil
}

func TestCatalog_ResolveCaches(t *testing.T) {
	repo := newFakeItemRepo(&models.Item{Ref: "longsword", Name: "Longsword"})
	catalog := NewCatalog(repo)

	item, err := catalog.Resolve(context.Background(), "longsword")
	require.NoError(t, err)
	require.NotNil(t, item)

	_, err = catalog.Resolve(context.Background(), "longsword")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)
}

func TestCatalog_ResolveMissingIsNotCached(t *testing.T) {
	repo := newFakeItemRepo()
	catalog := NewCatalog(repo)

	item, err := catalog.Resolve(context.Background(), "vorpal-blade")
	require.NoError(t, err)
	assert.Nil(t, item)

	// A later create must be visible; misses never enter the cache.
	require.NoError(t, repo.Create(context.Background(), &models.Item{Ref: "vorpal-blade", Name: "Vorpal Blade"}))
	item, err = catalog.Resolve(context.Background(), "vorpal-blade")
	require.NoError(t, err)
	assert.NotNil(t, item)
}

func TestCatalog_SearchRanksByMatchQuality(t *testing.T) {
	repo := newFakeItemRepo(
		&models.Item{Ref: "healing-potion", Name: "Potion of Healing"},
		&models.Item{Ref: "greater-healing", Name: "Potion of Greater Healing"},
		&models.Item{Ref: "longsword", Name: "Longsword"},
	)
	catalog := NewCatalog(repo)

	results, err := catalog.Search(context.Background(), "group-1", "potion heal")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, item := range results {
		assert.Contains(t, item.Name, "Potion")
	}

	// Empty query returns the whole listing.
	results, err = catalog.Search(context.Background(), "group-1", "  ")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestCatalog_SearchScopesCustomItems(t *testing.T) {
	repo := newFakeItemRepo(
		&models.Item{Ref: "longsword", Name: "Longsword"},
		&models.Item{Ref: "custom-1", GroupID: "group-1", Name: "Sword of the Campaign"},
	)
	catalog := NewCatalog(repo)

	results, err := catalog.Search(context.Background(), "group-2", "sword")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "longsword", results[0].Ref)
}

func TestCatalog_CreateCustomItem(t *testing.T) {
	repo := newFakeItemRepo()
	catalog := NewCatalog(repo)

	item, err := catalog.CreateCustomItem(context.Background(), "group-1", "Bag of Holding", "Bigger inside", "", 15)
	require.NoError(t, err)
	assert.NotEmpty(t, item.Ref)
	assert.Equal(t, "group-1", item.GroupID)
	assert.Equal(t, models.ItemCategoryGear, item.Category)

	// Created items resolve from cache without another repository hit.
	resolved, err := catalog.Resolve(context.Background(), item.Ref)
	require.NoError(t, err)
	assert.Equal(t, item, resolved)
	assert.Zero(t, repo.getCalls)
}

func TestCatalog_CreateCustomItemValidation(t *testing.T) {
	catalog := NewCatalog(newFakeItemRepo())

	_, err := catalog.CreateCustomItem(context.Background(), "group-1", "  ", "", "", 1)
	require.Error(t, err)

	_, err = catalog.CreateCustomItem(context.Background(), "group-1", "Anvil", "", "", -2)
	require.Error(t, err)
}
