package repository

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// MemoryStore keeps the whole betting state in memory. Every mutation made
// inside a session is journaled so the session can be undone exactly.
// MemoryStore is not safe for concurrent use; the chain node serialises access.
type MemoryStore struct {
	games   map[uuid.UUID]*models.Game
	pending map[int64]*models.PendingBet
	matched map[int64]*models.MatchedBet

	pendingByGame map[uuid.UUID]map[int64]struct{}
	matchedByGame map[uuid.UUID]map[int64]struct{}
	pendingByUUID map[uuid.UUID]int64

	accounts  map[string]betting.Asset
	usedUUIDs map[uuid.UUID]struct{}
	property  models.BettingProperty
	stats     models.BettingStats

	nextGameID       int64
	nextPendingBetID int64
	nextMatchedBetID int64

	sessions [][]func()
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:         make(map[uuid.UUID]*models.Game),
		pending:       make(map[int64]*models.PendingBet),
		matched:       make(map[int64]*models.MatchedBet),
		pendingByGame: make(map[uuid.UUID]map[int64]struct{}),
		matchedByGame: make(map[uuid.UUID]map[int64]struct{}),
		pendingByUUID: make(map[uuid.UUID]int64),
		accounts:      make(map[string]betting.Asset),
		usedUUIDs:     make(map[uuid.UUID]struct{}),
	}
}

var _ VersionedStore = (*MemoryStore)(nil)

// StartSession opens a nested undo session
func (s *MemoryStore) StartSession() {
	s.sessions = append(s.sessions, nil)
}

// Commit closes the innermost session. Its journal moves to the enclosing
// session, so an outer Undo still reverts the committed changes.
func (s *MemoryStore) Commit() error {
	n := len(s.sessions)
	if n == 0 {
		return models.ErrNoStoreSession
	}
	top := s.sessions[n-1]
	s.sessions = s.sessions[:n-1]
	if n > 1 {
		s.sessions[n-2] = append(s.sessions[n-2], top...)
	}
	return nil
}

// Undo reverts every change of the innermost session and closes it
func (s *MemoryStore) Undo() error {
	n := len(s.sessions)
	if n == 0 {
		return models.ErrNoStoreSession
	}
	top := s.sessions[n-1]
	s.sessions = s.sessions[:n-1]
	for i := len(top) - 1; i >= 0; i-- {
		top[i]()
	}
	return nil
}

func (s *MemoryStore) record(undo func()) {
	if n := len(s.sessions); n > 0 {
		s.sessions[n-1] = append(s.sessions[n-1], undo)
	}
}

// Games

func (s *MemoryStore) CreateGame(game *models.Game) error {
	if _, exists := s.games[game.UUID]; exists {
		return fmt.Errorf("%w: game %s", models.ErrUUIDAlreadyUsed, game.UUID)
	}

	prevID := s.nextGameID
	s.nextGameID++
	game.ID = s.nextGameID
	s.games[game.UUID] = game.Clone()

	id := game.UUID
	s.record(func() {
		delete(s.games, id)
		s.nextGameID = prevID
	})
	return nil
}

func (s *MemoryStore) UpdateGame(game *models.Game) error {
	old, ok := s.games[game.UUID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrGameNotFound, game.UUID)
	}
	s.games[game.UUID] = game.Clone()
	s.record(func() { s.games[old.UUID] = old })
	return nil
}

func (s *MemoryStore) RemoveGame(gameUUID uuid.UUID) error {
	old, ok := s.games[gameUUID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrGameNotFound, gameUUID)
	}
	delete(s.games, gameUUID)
	s.record(func() { s.games[gameUUID] = old })
	return nil
}

func (s *MemoryStore) GetGame(gameUUID uuid.UUID) (*models.Game, error) {
	game, ok := s.games[gameUUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameUUID)
	}
	return game.Clone(), nil
}

func (s *MemoryStore) ListGames() []*models.Game {
	games := make([]*models.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g.Clone())
	}
	slices.SortFunc(games, func(a, b *models.Game) int { return cmp.Compare(a.ID, b.ID) })
	return games
}

// Pending bets

func (s *MemoryStore) CreatePendingBet(bet *models.PendingBet) error {
	if _, exists := s.pendingByUUID[bet.Data.UUID]; exists {
		return fmt.Errorf("%w: pending bet %s", models.ErrUUIDAlreadyUsed, bet.Data.UUID)
	}

	prevID := s.nextPendingBetID
	s.nextPendingBetID++
	bet.ID = s.nextPendingBetID
	s.putPending(clonePending(bet))

	id := bet.ID
	s.record(func() {
		s.deletePending(id)
		s.nextPendingBetID = prevID
	})
	return nil
}

func (s *MemoryStore) UpdatePendingBet(bet *models.PendingBet) error {
	old, ok := s.pending[bet.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrPendingBetNotFound, bet.ID)
	}
	s.deletePending(old.ID)
	s.putPending(clonePending(bet))
	s.record(func() {
		s.deletePending(old.ID)
		s.putPending(old)
	})
	return nil
}

func (s *MemoryStore) RemovePendingBet(id int64) error {
	old, ok := s.pending[id]
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrPendingBetNotFound, id)
	}
	s.deletePending(id)
	s.record(func() { s.putPending(old) })
	return nil
}

func (s *MemoryStore) GetPendingBetByUUID(betUUID uuid.UUID) (*models.PendingBet, error) {
	id, ok := s.pendingByUUID[betUUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrPendingBetNotFound, betUUID)
	}
	return clonePending(s.pending[id]), nil
}

func (s *MemoryStore) ListPendingBets(gameUUID uuid.UUID) []*models.PendingBet {
	return s.filterPending(gameUUID, func(*models.PendingBet) bool { return true })
}

func (s *MemoryStore) ListPendingBetsByMarket(gameUUID uuid.UUID, market betting.Market) []*models.PendingBet {
	return s.filterPending(gameUUID, func(b *models.PendingBet) bool { return b.Market == market })
}

func (s *MemoryStore) ListPendingBetsByKind(gameUUID uuid.UUID, kind models.PendingBetKind) []*models.PendingBet {
	return s.filterPending(gameUUID, func(b *models.PendingBet) bool { return b.Data.Kind == kind })
}

func (s *MemoryStore) ListPendingBetsCreatedFrom(gameUUID uuid.UUID, from time.Time) []*models.PendingBet {
	return s.filterPending(gameUUID, func(b *models.PendingBet) bool { return !b.Data.Created.Before(from) })
}

func (s *MemoryStore) ListPendingBetsByBetter(better string) []*models.PendingBet {
	var out []*models.PendingBet
	for _, id := range slices.Sorted(maps.Keys(s.pending)) {
		if b := s.pending[id]; b.Data.Better == better {
			out = append(out, clonePending(b))
		}
	}
	return out
}

func (s *MemoryStore) filterPending(gameUUID uuid.UUID, keep func(*models.PendingBet) bool) []*models.PendingBet {
	var out []*models.PendingBet
	for _, id := range slices.Sorted(maps.Keys(s.pendingByGame[gameUUID])) {
		if b := s.pending[id]; keep(b) {
			out = append(out, clonePending(b))
		}
	}
	return out
}

func (s *MemoryStore) putPending(bet *models.PendingBet) {
	s.pending[bet.ID] = bet
	s.pendingByUUID[bet.Data.UUID] = bet.ID
	index, ok := s.pendingByGame[bet.GameUUID]
	if !ok {
		index = make(map[int64]struct{})
		s.pendingByGame[bet.GameUUID] = index
	}
	index[bet.ID] = struct{}{}
}

func (s *MemoryStore) deletePending(id int64) {
	bet, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	delete(s.pendingByUUID, bet.Data.UUID)
	if index := s.pendingByGame[bet.GameUUID]; index != nil {
		delete(index, id)
		if len(index) == 0 {
			delete(s.pendingByGame, bet.GameUUID)
		}
	}
}

func clonePending(bet *models.PendingBet) *models.PendingBet {
	c := *bet
	return &c
}

// Matched bets

func (s *MemoryStore) CreateMatchedBet(bet *models.MatchedBet) error {
	prevID := s.nextMatchedBetID
	s.nextMatchedBetID++
	bet.ID = s.nextMatchedBetID
	s.putMatched(cloneMatched(bet))

	id := bet.ID
	s.record(func() {
		s.deleteMatched(id)
		s.nextMatchedBetID = prevID
	})
	return nil
}

func (s *MemoryStore) RemoveMatchedBet(id int64) error {
	old, ok := s.matched[id]
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrMatchedBetNotFound, id)
	}
	s.deleteMatched(id)
	s.record(func() { s.putMatched(old) })
	return nil
}

func (s *MemoryStore) ListMatchedBets(gameUUID uuid.UUID) []*models.MatchedBet {
	return s.filterMatched(gameUUID, func(*models.MatchedBet) bool { return true })
}

func (s *MemoryStore) ListMatchedBetsByMarket(gameUUID uuid.UUID, market betting.Market) []*models.MatchedBet {
	return s.filterMatched(gameUUID, func(b *models.MatchedBet) bool { return b.Market == market })
}

func (s *MemoryStore) ListMatchedBetsCreatedFrom(gameUUID uuid.UUID, from time.Time) []*models.MatchedBet {
	return s.filterMatched(gameUUID, func(b *models.MatchedBet) bool { return !b.Created.Before(from) })
}

func (s *MemoryStore) ListMatchedBetsByBetUUID(gameUUID uuid.UUID, betUUID uuid.UUID) []*models.MatchedBet {
	return s.filterMatched(gameUUID, func(b *models.MatchedBet) bool {
		return b.Bet1.UUID == betUUID || b.Bet2.UUID == betUUID
	})
}

func (s *MemoryStore) filterMatched(gameUUID uuid.UUID, keep func(*models.MatchedBet) bool) []*models.MatchedBet {
	var out []*models.MatchedBet
	for _, id := range slices.Sorted(maps.Keys(s.matchedByGame[gameUUID])) {
		if b := s.matched[id]; keep(b) {
			out = append(out, cloneMatched(b))
		}
	}
	return out
}

func (s *MemoryStore) putMatched(bet *models.MatchedBet) {
	s.matched[bet.ID] = bet
	index, ok := s.matchedByGame[bet.GameUUID]
	if !ok {
		index = make(map[int64]struct{})
		s.matchedByGame[bet.GameUUID] = index
	}
	index[bet.ID] = struct{}{}
}

func (s *MemoryStore) deleteMatched(id int64) {
	bet, ok := s.matched[id]
	if !ok {
		return
	}
	delete(s.matched, id)
	if index := s.matchedByGame[bet.GameUUID]; index != nil {
		delete(index, id)
		if len(index) == 0 {
			delete(s.matchedByGame, bet.GameUUID)
		}
	}
}

func cloneMatched(bet *models.MatchedBet) *models.MatchedBet {
	c := *bet
	return &c
}

// Properties

func (s *MemoryStore) BettingProperty() models.BettingProperty {
	return s.property
}

func (s *MemoryStore) SetBettingProperty(property models.BettingProperty) {
	old := s.property
	s.property = property
	s.record(func() { s.property = old })
}

func (s *MemoryStore) BettingStats() models.BettingStats {
	return s.stats
}

func (s *MemoryStore) SetBettingStats(stats models.BettingStats) {
	old := s.stats
	s.stats = stats
	s.record(func() { s.stats = old })
}

// Accounts

func (s *MemoryStore) Balance(account string) betting.Asset {
	return s.accounts[account]
}

func (s *MemoryStore) Credit(account string, amount betting.Asset) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit %d to %s", betting.ErrInvalidStake, amount, account)
	}
	balance := s.accounts[account]
	if balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: %s", models.ErrBalanceOverflow, account)
	}
	s.setBalance(account, balance+amount)
	return nil
}

func (s *MemoryStore) Debit(account string, amount betting.Asset) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit %d from %s", betting.ErrInvalidStake, amount, account)
	}
	balance := s.accounts[account]
	if balance < amount {
		return fmt.Errorf("%w: %s has %s, needs %s", models.ErrInsufficientFunds, account, balance, amount)
	}
	s.setBalance(account, balance-amount)
	return nil
}

func (s *MemoryStore) setBalance(account string, balance betting.Asset) {
	old, existed := s.accounts[account]
	s.accounts[account] = balance
	s.record(func() {
		if existed {
			s.accounts[account] = old
		} else {
			delete(s.accounts, account)
		}
	})
}

// UUID history

func (s *MemoryStore) IsUUIDUsed(id uuid.UUID) bool {
	_, used := s.usedUUIDs[id]
	return used
}

func (s *MemoryStore) MarkUUIDUsed(id uuid.UUID) {
	if _, used := s.usedUUIDs[id]; used {
		return
	}
	s.usedUUIDs[id] = struct{}{}
	s.record(func() { delete(s.usedUUIDs, id) })
}

// StoreState is the serialisable form of the whole store. Export sorts every
// collection, so equal states always encode to equal bytes.
type StoreState struct {
	Games            []*models.Game         `json:"games"`
	PendingBets      []*models.PendingBet   `json:"pending_bets"`
	MatchedBets      []*models.MatchedBet   `json:"matched_bets"`
	Accounts         []AccountBalance       `json:"accounts"`
	UsedUUIDs        []uuid.UUID            `json:"used_uuids"`
	Property         models.BettingProperty `json:"property"`
	Stats            models.BettingStats    `json:"stats"`
	NextGameID       int64                  `json:"next_game_id"`
	NextPendingBetID int64                  `json:"next_pending_bet_id"`
	NextMatchedBetID int64                  `json:"next_matched_bet_id"`
}

// AccountBalance is one ledger entry of a StoreState
type AccountBalance struct {
	Account string        `json:"account"`
	Balance betting.Asset `json:"balance"`
}

// Export copies the current state
func (s *MemoryStore) Export() *StoreState {
	state := &StoreState{
		Games:            s.ListGames(),
		Property:         s.property,
		Stats:            s.stats,
		NextGameID:       s.nextGameID,
		NextPendingBetID: s.nextPendingBetID,
		NextMatchedBetID: s.nextMatchedBetID,
	}
	for _, id := range slices.Sorted(maps.Keys(s.pending)) {
		state.PendingBets = append(state.PendingBets, clonePending(s.pending[id]))
	}
	for _, id := range slices.Sorted(maps.Keys(s.matched)) {
		state.MatchedBets = append(state.MatchedBets, cloneMatched(s.matched[id]))
	}
	for _, account := range slices.Sorted(maps.Keys(s.accounts)) {
		state.Accounts = append(state.Accounts, AccountBalance{Account: account, Balance: s.accounts[account]})
	}
	state.UsedUUIDs = slices.SortedFunc(maps.Keys(s.usedUUIDs), func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return state
}

// Load replaces the whole state. Collections may come in any order.
func (s *MemoryStore) Load(state *StoreState) error {
	if len(s.sessions) > 0 {
		return fmt.Errorf("load with %d open sessions", len(s.sessions))
	}

	fresh := NewMemoryStore()
	for _, g := range state.Games {
		if _, dup := fresh.games[g.UUID]; dup {
			return fmt.Errorf("%w: game %s", models.ErrUUIDAlreadyUsed, g.UUID)
		}
		fresh.games[g.UUID] = g.Clone()
	}
	for _, b := range state.PendingBets {
		if _, dup := fresh.pendingByUUID[b.Data.UUID]; dup {
			return fmt.Errorf("%w: pending bet %s", models.ErrUUIDAlreadyUsed, b.Data.UUID)
		}
		fresh.putPending(clonePending(b))
	}
	for _, b := range state.MatchedBets {
		fresh.putMatched(cloneMatched(b))
	}
	for _, a := range state.Accounts {
		fresh.accounts[a.Account] = a.Balance
	}
	for _, id := range state.UsedUUIDs {
		fresh.usedUUIDs[id] = struct{}{}
	}
	fresh.property = state.Property
	fresh.stats = state.Stats
	fresh.nextGameID = state.NextGameID
	fresh.nextPendingBetID = state.NextPendingBetID
	fresh.nextMatchedBetID = state.NextMatchedBetID

	*s = *fresh
	return nil
}
