package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cypherlabdev/betting-node/internal/chain"
	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

// StateReader gives consistent read access to the chain state
type StateReader interface {
	View(fn func(store repository.Store, head chain.BlockHead))
}

// APIHandler serves the read-only betting API
type APIHandler struct {
	node   StateReader
	logger zerolog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(node StateReader, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		node:   node,
		logger: logger.With().Str("component", "api_handler").Logger(),
	}
}

// Register mounts the API routes under /api/v1
func (h *APIHandler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/head", h.handleGetHead).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.handleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/games", h.handleListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{game_uuid}", h.handleGetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{game_uuid}/pending_bets", h.handleListPendingBets).Methods(http.MethodGet)
	api.HandleFunc("/games/{game_uuid}/matched_bets", h.handleListMatchedBets).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}", h.handleGetAccount).Methods(http.MethodGet)
}

type statsResponse struct {
	Head              chain.BlockHead `json:"head"`
	Moderator         string          `json:"moderator"`
	ResolveDelay      string          `json:"resolve_delay"`
	MinBetStake       decimal.Decimal `json:"min_bet_stake"`
	PendingBetsVolume decimal.Decimal `json:"pending_bets_volume"`
	MatchedBetsVolume decimal.Decimal `json:"matched_bets_volume"`
	Symbol            string          `json:"symbol"`
}

type accountResponse struct {
	Account     string               `json:"account"`
	Balance     decimal.Decimal      `json:"balance"`
	Symbol      string               `json:"symbol"`
	PendingBets []*models.PendingBet `json:"pending_bets"`
}

func (h *APIHandler) handleGetHead(w http.ResponseWriter, r *http.Request) {
	var head chain.BlockHead
	h.node.View(func(_ repository.Store, current chain.BlockHead) {
		head = current
	})
	writeJSON(w, http.StatusOK, head)
}

func (h *APIHandler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	h.node.View(func(store repository.Store, head chain.BlockHead) {
		property := store.BettingProperty()
		stats := store.BettingStats()
		resp = statsResponse{
			Head:              head,
			Moderator:         property.Moderator,
			ResolveDelay:      property.ResolveDelay.String(),
			MinBetStake:       property.MinBetStake.Decimal(),
			PendingBetsVolume: stats.PendingBetsVolume.Decimal(),
			MatchedBetsVolume: stats.MatchedBetsVolume.Decimal(),
			Symbol:            betting.AssetSymbol,
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleListGames(w http.ResponseWriter, r *http.Request) {
	status := models.GameStatus(r.URL.Query().Get("status"))

	games := []*models.Game{}
	h.node.View(func(store repository.Store, _ chain.BlockHead) {
		for _, game := range store.ListGames() {
			if status == "" || game.Status == status {
				games = append(games, game)
			}
		}
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"games": games,
	})
}

func (h *APIHandler) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameUUID, ok := gameUUIDParam(w, r)
	if !ok {
		return
	}

	var game *models.Game
	var err error
	h.node.View(func(store repository.Store, _ chain.BlockHead) {
		game, err = store.GetGame(gameUUID)
	})
	if err != nil {
		h.logger.Debug().Err(err).Str("game_uuid", gameUUID.String()).Msg("game lookup failed")
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, game)
}

func (h *APIHandler) handleListPendingBets(w http.ResponseWriter, r *http.Request) {
	gameUUID, ok := gameUUIDParam(w, r)
	if !ok {
		return
	}

	var market *betting.Market
	if raw := r.URL.Query().Get("market"); raw != "" {
		parsed, err := betting.ParseMarket(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		market = &parsed
	}

	bets := []*models.PendingBet{}
	h.node.View(func(store repository.Store, _ chain.BlockHead) {
		if market != nil {
			bets = append(bets, store.ListPendingBetsByMarket(gameUUID, *market)...)
			return
		}
		bets = append(bets, store.ListPendingBets(gameUUID)...)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"game_uuid":    gameUUID,
		"count":        len(bets),
		"pending_bets": bets,
	})
}

func (h *APIHandler) handleListMatchedBets(w http.ResponseWriter, r *http.Request) {
	gameUUID, ok := gameUUIDParam(w, r)
	if !ok {
		return
	}

	var from time.Time
	if raw := r.URL.Query().Get("created_from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid created_from")
			return
		}
		from = parsed
	}

	bets := []*models.MatchedBet{}
	h.node.View(func(store repository.Store, _ chain.BlockHead) {
		bets = append(bets, store.ListMatchedBetsCreatedFrom(gameUUID, from)...)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"game_uuid":    gameUUID,
		"count":        len(bets),
		"matched_bets": bets,
	})
}

func (h *APIHandler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	resp := accountResponse{Account: account, Symbol: betting.AssetSymbol, PendingBets: []*models.PendingBet{}}
	h.node.View(func(store repository.Store, _ chain.BlockHead) {
		resp.Balance = store.Balance(account).Decimal()
		resp.PendingBets = append(resp.PendingBets, store.ListPendingBetsByBetter(account)...)
	})

	writeJSON(w, http.StatusOK, resp)
}

func gameUUIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	gameUUID, err := uuid.Parse(mux.Vars(r)["game_uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game_uuid")
		return uuid.Nil, false
	}
	return gameUUID, true
}
