// Package server exposes the engine's instructions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"skillstreak/address"
	"skillstreak/infrastructure/observability"
	"skillstreak/models"
	"skillstreak/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Staking  service.StakingService
	Markets  service.MarketService
	Accounts service.AccountService
}

// Server routes HTTP requests to engine instructions
type Server struct {
	services Services
	metrics  *observability.MetricsProvider
	validate *validator.Validate
	router   *mux.Router
}

// New builds the router. metrics may be nil.
func New(services Services, metrics *observability.MetricsProvider) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		services: services,
		metrics:  metrics,
		validate: v,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name("health")

	v1 := r.PathPrefix("/v1").Subrouter()

	users := v1.PathPrefix("/users/{owner}").Subrouter()
	users.HandleFunc("", s.handleGetUser).Methods(http.MethodGet).Name("getUser")
	users.HandleFunc("/initialize", s.handleInitializeUser).Methods(http.MethodPost).Name("initializeUser")
	users.HandleFunc("/stake", s.handleStake).Methods(http.MethodPost).Name("stake")
	users.HandleFunc("/tasks", s.handleRecordTask).Methods(http.MethodPost).Name("recordTask")
	users.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost).Name("withdraw")
	users.HandleFunc("/early-withdraw", s.handleEarlyWithdraw).Methods(http.MethodPost).Name("earlyWithdraw")
	users.HandleFunc("/fund", s.handleFund).Methods(http.MethodPost).Name("fund")

	v1.HandleFunc("/markets", s.handleOpenMarket).Methods(http.MethodPost).Name("openMarket")
	v1.HandleFunc("/markets", s.handleListMarkets).Methods(http.MethodGet).Name("listMarkets")
	markets := v1.PathPrefix("/markets/{market}").Subrouter()
	markets.HandleFunc("", s.handleGetMarket).Methods(http.MethodGet).Name("getMarket")
	markets.HandleFunc("/bets", s.handlePlaceBet).Methods(http.MethodPost).Name("placeBet")
	markets.HandleFunc("/bets/{bettor}", s.handleGetBet).Methods(http.MethodGet).Name("getBet")
	markets.HandleFunc("/close", s.handleCloseMarket).Methods(http.MethodPost).Name("closeMarket")
	markets.HandleFunc("/settle", s.handleSettleMarket).Methods(http.MethodPost).Name("settleMarket")
	markets.HandleFunc("/claim", s.handleClaimPayout).Methods(http.MethodPost).Name("claimPayout")

	v1.HandleFunc("/accounts/{address}", s.handleFetchAccount).Methods(http.MethodGet).Name("fetchAccount")
	v1.HandleFunc("/accounts/{address}/transfers", s.handleHistory).Methods(http.MethodGet).Name("history")
	v1.HandleFunc("/vault/conservation", s.handleConservation).Methods(http.MethodGet).Name("conservation")
}

// pathAddress parses a base58 address path variable, writing 400 on failure
func pathAddress(w http.ResponseWriter, r *http.Request, name string) (address.Address, bool) {
	a, err := address.Parse(mux.Vars(r)[name])
	if err != nil || a.IsZero() {
		badRequest(w, "invalid "+name+" address")
		return address.Zero, false
	}
	return a, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Staking

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	user, err := s.services.Staking.GetUser(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleInitializeUser(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	var req initializeUserRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	user, err := s.services.Staking.InitializeUser(r.Context(), owner, req.DepositAmount, req.LockInDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	var req stakeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	user, err := s.services.Staking.Stake(r.Context(), owner, req.AdditionalAmount, req.NewLockInDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleRecordTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	user, err := s.services.Staking.RecordTask(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.withdraw(w, r, s.services.Staking.Withdraw)
}

func (s *Server) handleEarlyWithdraw(w http.ResponseWriter, r *http.Request) {
	s.withdraw(w, r, s.services.Staking.EarlyWithdraw)
}

type withdrawFunc func(ctx context.Context, owner address.Address, amount uint64) (*models.WithdrawResult, error)

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request, fn withdrawFunc) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	var req withdrawRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := fn(r.Context(), owner, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	var req fundRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	acct, err := s.services.Accounts.Fund(r.Context(), owner, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// Markets

func (s *Server) handleOpenMarket(w http.ResponseWriter, r *http.Request) {
	var req openMarketRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	market, err := s.services.Markets.OpenMarket(r.Context(), models.OpenMarketParams{
		Creator:                req.Creator,
		SubjectUser:            req.SubjectUser,
		Nonce:                  req.Nonce,
		Description:            req.Description,
		BettingEndsTimestamp:   req.BettingEndsTimestamp,
		TaskDeadlineTimestamp:  req.TaskDeadlineTimestamp,
		PlatformFeeBasisPoints: req.PlatformFeeBasisPoints,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	var status *models.MarketStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := models.ParseMarketStatus(raw)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		status = &st
	}
	markets, err := s.services.Markets.ListMarkets(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if markets == nil {
		markets = []*models.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	m, err := s.services.Markets.GetMarket(r.Context(), market)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	var req placeBetRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	bet, err := s.services.Markets.PlaceBet(r.Context(), req.Bettor, market, req.Amount, *req.PositionIsLong)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

func (s *Server) handleGetBet(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	bettor, ok := pathAddress(w, r, "bettor")
	if !ok {
		return
	}
	bet, err := s.services.Markets.GetBet(r.Context(), market, bettor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

func (s *Server) handleCloseMarket(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	var req signerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m, err := s.services.Markets.CloseMarket(r.Context(), req.Signer, market)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSettleMarket(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	var req signerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.services.Markets.SettleMarket(r.Context(), req.Signer, market)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClaimPayout(w http.ResponseWriter, r *http.Request) {
	market, ok := pathAddress(w, r, "market")
	if !ok {
		return
	}
	var req claimRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	bet, err := s.services.Markets.ClaimPayout(r.Context(), req.Bettor, market)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// Accounts

func (s *Server) handleFetchAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	view, err := s.services.Accounts.FetchAccount(r.Context(), addr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	transfers, err := s.services.Accounts.History(r.Context(), addr, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transfers == nil {
		transfers = []*models.Transfer{}
	}
	writeJSON(w, http.StatusOK, transfers)
}

func (s *Server) handleConservation(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Staking.VerifyVaultConservation(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "conserved"})
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it down gracefully
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
