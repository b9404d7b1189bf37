package trading

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hoardapp/hoard/hoard/database/models"
)

// memStore is an in-memory Store and Directory with the same semantics as
// the Postgres repositories: every mutator is all-or-nothing under one lock,
// debits fail without partial effect, terminal states delete the row.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	accounts map[string]*memAccount            // account id -> holdings
	ids      map[string]string                 // groupID/memberID -> account id
	roles    map[string]models.GroupRole       // groupID/memberID -> role
	trades   map[string]*models.Trade
}

type memAccount struct {
	items map[string]int64
	coins models.CoinPurse
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*memAccount),
		ids:      make(map[string]string),
		roles:    make(map[string]models.GroupRole),
		trades:   make(map[string]*models.Trade),
	}
}

func memberKey(groupID, memberID string) string {
	return groupID + "/" + memberID
}

func (s *memStore) addMember(groupID, memberID string, role models.GroupRole) *memAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("acct-%d", s.nextID)
	account := &memAccount{items: make(map[string]int64)}
	s.accounts[id] = account
	s.ids[memberKey(groupID, memberID)] = id
	s.roles[memberKey(groupID, memberID)] = role
	return account
}

func (s *memStore) account(groupID, memberID string) *memAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[s.ids[memberKey(groupID, memberID)]]
}

// totalResources sums every item quantity and coin counter across accounts
// and in-flight escrow. Settlement and cancellation must keep it constant.
func (s *memStore) totalResources() (map[string]int64, models.CoinPurse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[string]int64)
	var coins models.CoinPurse
	for _, account := range s.accounts {
		for ref, qty := range account.items {
			items[ref] += qty
		}
		coins = coins.Add(account.coins)
	}
	for _, trade := range s.trades {
		for _, parcel := range escrowedParcels(trade) {
			if parcel.HasItem() {
				items[parcel.ItemRef] += parcel.ItemQty
			}
			coins = coins.Add(parcel.Coins)
		}
	}
	return items, coins
}

func escrowedParcels(trade *models.Trade) []models.Parcel {
	parcels := []models.Parcel{trade.OfferedParcel()}
	if counter, ok := trade.CounterParcel(); ok {
		parcels = append(parcels, counter)
	}
	return parcels
}

func (s *memStore) debit(account *memAccount, parcel models.Parcel) error {
	if parcel.HasItem() && account.items[parcel.ItemRef] < parcel.ItemQty {
		return ErrInsufficientResource
	}
	if !account.coins.Covers(parcel.Coins) {
		return ErrInsufficientResource
	}
	if parcel.HasItem() {
		account.items[parcel.ItemRef] -= parcel.ItemQty
		if account.items[parcel.ItemRef] == 0 {
			delete(account.items, parcel.ItemRef)
		}
	}
	account.coins = account.coins.Sub(parcel.Coins)
	return nil
}

func (s *memStore) credit(account *memAccount, parcel models.Parcel) {
	if parcel.HasItem() {
		account.items[parcel.ItemRef] += parcel.ItemQty
	}
	account.coins = account.coins.Add(parcel.Coins)
}

func (s *memStore) partyAccount(groupID, memberID string) (*memAccount, error) {
	account := s.accounts[s.ids[memberKey(groupID, memberID)]]
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *memStore) CreateTrade(_ context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.partyAccount(trade.GroupID, trade.InitiatorID)
	if err != nil {
		return err
	}
	if err := s.debit(account, trade.OfferedParcel()); err != nil {
		return err
	}
	clone := *trade
	s.trades[trade.ID] = &clone
	return nil
}

func (s *memStore) CounterTrade(_ context.Context, tradeID string, parcel models.Parcel) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	if trade.Status != models.TradePending {
		return nil, ErrInvalidStateTransition
	}
	account, err := s.partyAccount(trade.GroupID, trade.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := s.debit(account, parcel); err != nil {
		return nil, err
	}
	trade.SetCounterParcel(parcel)
	clone := *trade
	return &clone, nil
}

func (s *memStore) SettleTrade(_ context.Context, tradeID string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	receiver, err := s.partyAccount(trade.GroupID, trade.ReceiverID)
	if err != nil {
		return nil, err
	}
	initiator, err := s.partyAccount(trade.GroupID, trade.InitiatorID)
	if err != nil {
		return nil, err
	}

	s.credit(receiver, trade.OfferedParcel())
	if counter, ok := trade.CounterParcel(); ok {
		s.credit(initiator, counter)
	}
	delete(s.trades, tradeID)
	return trade, nil
}

func (s *memStore) CancelTrade(_ context.Context, tradeID string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	initiator, err := s.partyAccount(trade.GroupID, trade.InitiatorID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.partyAccount(trade.GroupID, trade.ReceiverID)
	if err != nil {
		return nil, err
	}

	s.credit(initiator, trade.OfferedParcel())
	if counter, ok := trade.CounterParcel(); ok {
		s.credit(receiver, counter)
	}
	delete(s.trades, tradeID)
	return trade, nil
}

func (s *memStore) GetTrade(_ context.Context, tradeID string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, ErrTradeNotFound
	}
	clone := *trade
	return &clone, nil
}

func (s *memStore) ActiveTrades(_ context.Context, groupID, memberID string) ([]*models.Trade, error) {
	return s.collect(func(t *models.Trade) bool {
		return t.GroupID == groupID && (t.InitiatorID == memberID || t.ReceiverID == memberID)
	}), nil
}

func (s *memStore) IncomingTrades(_ context.Context, memberID string) ([]*models.Trade, error) {
	return s.collect(func(t *models.Trade) bool {
		return t.ReceiverID == memberID && t.Status == models.TradePending
	}), nil
}

func (s *memStore) CounterOffers(_ context.Context, memberID string) ([]*models.Trade, error) {
	return s.collect(func(t *models.Trade) bool {
		return t.InitiatorID == memberID && t.Status == models.TradeCounterOffered
	}), nil
}

func (s *memStore) collect(match func(*models.Trade) bool) []*models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []*models.Trade
	for _, trade := range s.trades {
		if match(trade) {
			clone := *trade
			trades = append(trades, &clone)
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades
}

func (s *memStore) ResolveAccountID(_ context.Context, groupID, memberID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids[memberKey(groupID, memberID)]
	if !ok {
		return "", ErrAccountNotFound
	}
	return id, nil
}

func (s *memStore) IsTradeEligible(_ context.Context, groupID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles[memberKey(groupID, memberID)] == models.RolePlayer, nil
}
