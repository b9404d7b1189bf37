package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/database/repositories"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxConcurrentInventoryFetches = 4

// MemberInventory is one member's full holdings inside a group.
type MemberInventory struct {
	Account       *models.Account       `json:"account"`
	Items         []*models.AccountItem `json:"items"`
	Currency      models.CoinPurse      `json:"currency"`
	CarriedWeight float64               `json:"carried_weight"`
}

// GroupOverview aggregates every member's inventory plus party-wide totals.
type GroupOverview struct {
	GroupID    string             `json:"group_id"`
	Members    []*MemberInventory `json:"members"`
	PartyCoins models.CoinPurse   `json:"party_coins"`
}

// Overview builds the whole-group inventory view the dashboard shows.
// Per-member fetches run concurrently under a small semaphore so a large
// party does not hammer the pool.
type Overview struct {
	accounts  repositories.AccountRepository
	inventory repositories.InventoryRepository
}

func NewOverview(accounts repositories.AccountRepository, inventory repositories.InventoryRepository) *Overview {
	return &Overview{accounts: accounts, inventory: inventory}
}

func (o *Overview) Build(ctx context.Context, groupID string) (*GroupOverview, error) {
	accounts, err := o.accounts.GroupAccounts(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group accounts: %w", err)
	}

	members := make([]*MemberInventory, len(accounts))
	sem := semaphore.NewWeighted(maxConcurrentInventoryFetches)
	g, gctx := errgroup.WithContext(ctx)

	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			inv, err := o.memberInventory(gctx, account)
			if err != nil {
				return err
			}
			members[i] = inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview := &GroupOverview{GroupID: groupID, Members: members}
	for _, m := range members {
		overview.PartyCoins = overview.PartyCoins.Add(m.Currency)
	}
	sort.Slice(overview.Members, func(i, j int) bool {
		return overview.Members[i].Account.MemberID < overview.Members[j].Account.MemberID
	})
	return overview, nil
}

// BuildMember returns a single member's inventory inside a group.
func (o *Overview) BuildMember(ctx context.Context, groupID, memberID string) (*MemberInventory, error) {
	accountID, err := o.accounts.ResolveAccountID(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	return o.memberInventory(ctx, &models.Account{ID: accountID, GroupID: groupID, MemberID: memberID})
}

func (o *Overview) memberInventory(ctx context.Context, account *models.Account) (*MemberInventory, error) {
	items, err := o.inventory.GetAccountItems(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for account %s: %w", account.ID, err)
	}
	currency, err := o.inventory.GetAccountCurrency(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get currency for account %s: %w", account.ID, err)
	}

	var weight float64
	for _, stack := range items {
		if stack.Item != nil {
			weight += stack.Item.Weight * float64(stack.Quantity)
		}
	}

	return &MemberInventory{
		Account:       account,
		Items:         items,
		Currency:      currency.Purse(),
		CarriedWeight: weight,
	}, nil
}
