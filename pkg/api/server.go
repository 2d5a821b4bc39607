// Package api exposes the exchange over REST plus a websocket event stream.
// Mutating requests are authenticated by ECDSA signature: the server recovers
// the signer address from the request signature and uses it as the caller.
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tkoide/exchequer/pkg/crypto"
	"github.com/tkoide/exchequer/pkg/exchange"
)

// Server handles REST API and WebSocket connections
type Server struct {
	x      *exchange.Exchange
	router *mux.Router
	hub    *Hub
	log    *zap.Logger
}

// NewServer creates a new API server. The hub is passed in because it must
// exist before the exchange does: it is registered as the exchange's emitter
// so websocket clients see events as they commit.
func NewServer(x *exchange.Exchange, hub *Hub, log *zap.Logger) *Server {
	s := &Server{
		x:      x,
		router: mux.NewRouter(),
		hub:    hub,
		log:    log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Ledger
	api.HandleFunc("/deposits/native", s.handleDepositNative).Methods("POST")
	api.HandleFunc("/deposits/token", s.handleDepositToken).Methods("POST")
	api.HandleFunc("/withdrawals/native", s.handleWithdrawNative).Methods("POST")
	api.HandleFunc("/withdrawals/token", s.handleWithdrawToken).Methods("POST")
	api.HandleFunc("/balances/{asset}/{owner}", s.handleGetBalance).Methods("GET")

	// Orders
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/fill", s.handleFillOrder).Methods("POST")

	// History and config
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	handler := c.Handler(s.router)

	s.log.Info("api_server_starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, handler)
}

// ==============================
// Ledger handlers
// ==============================

func (s *Server) handleDepositNative(w http.ResponseWriter, r *http.Request) {
	var req DepositNativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	caller, err := recoverCaller(DepositNativeMessage(amount), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.DepositNative(caller, amount); err != nil {
		respondExchangeError(w, err)
		return
	}

	s.respondBalance(w, exchange.NativeAsset, caller)
}

func (s *Server) handleDepositToken(w http.ResponseWriter, r *http.Request) {
	var req DepositTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	asset, amount, ok := parseAssetAmount(w, req.Asset, req.Amount)
	if !ok {
		return
	}

	caller, err := recoverCaller(DepositTokenMessage(asset, amount), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.DepositToken(caller, asset, amount); err != nil {
		respondExchangeError(w, err)
		return
	}

	s.respondBalance(w, asset, caller)
}

func (s *Server) handleWithdrawNative(w http.ResponseWriter, r *http.Request) {
	var req WithdrawNativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	caller, err := recoverCaller(WithdrawNativeMessage(amount), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.WithdrawNative(caller, amount); err != nil {
		respondExchangeError(w, err)
		return
	}

	s.respondBalance(w, exchange.NativeAsset, caller)
}

func (s *Server) handleWithdrawToken(w http.ResponseWriter, r *http.Request) {
	var req WithdrawTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	asset, amount, ok := parseAssetAmount(w, req.Asset, req.Amount)
	if !ok {
		return
	}

	caller, err := recoverCaller(WithdrawTokenMessage(asset, amount), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.WithdrawToken(caller, asset, amount); err != nil {
		respondExchangeError(w, err)
		return
	}

	s.respondBalance(w, asset, caller)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if !common.IsHexAddress(vars["asset"]) || !common.IsHexAddress(vars["owner"]) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	s.respondBalance(w, common.HexToAddress(vars["asset"]), common.HexToAddress(vars["owner"]))
}

// ==============================
// Order handlers
// ==============================

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	tokenGet, amountGet, ok := parseAssetAmount(w, req.TokenGet, req.AmountGet)
	if !ok {
		return
	}
	tokenGive, amountGive, ok := parseAssetAmount(w, req.TokenGive, req.AmountGive)
	if !ok {
		return
	}

	caller, err := recoverCaller(MakeOrderMessage(tokenGet, amountGet, tokenGive, amountGive), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	id, err := s.x.MakeOrder(caller, tokenGet, amountGet, tokenGive, amountGive)
	if err != nil {
		respondExchangeError(w, err)
		return
	}

	respondJSON(w, MakeOrderResponse{ID: id})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.x.Orders()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
		return
	}

	response := make([]OrderInfo, len(orders))
	for i, o := range orders {
		response[i] = orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	o, err := s.x.Order(id)
	if err != nil {
		respondExchangeError(w, err)
		return
	}
	respondJSON(w, orderInfo(o))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req OrderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	caller, err := recoverCaller(CancelOrderMessage(id), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.CancelOrder(caller, id); err != nil {
		respondExchangeError(w, err)
		return
	}

	o, err := s.x.Order(id)
	if err != nil {
		respondExchangeError(w, err)
		return
	}
	respondJSON(w, orderInfo(o))
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req OrderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	caller, err := recoverCaller(FillOrderMessage(id), req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		return
	}

	if err := s.x.FillOrder(caller, id); err != nil {
		respondExchangeError(w, err)
		return
	}

	o, err := s.x.Order(id)
	if err != nil {
		respondExchangeError(w, err)
		return
	}
	respondJSON(w, orderInfo(o))
}

// ==============================
// History and config handlers
// ==============================

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	records, err := s.x.Events()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load events", err.Error())
		return
	}

	response := make([]EventInfo, len(records))
	for i, rec := range records {
		response[i] = EventInfo{Seq: rec.Seq, Kind: rec.Kind, Data: rec.Data}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, ConfigInfo{
		FeeAccount: s.x.FeeAccount().Hex(),
		FeePercent: s.x.FeePercent(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) respondBalance(w http.ResponseWriter, asset, owner common.Address) {
	respondJSON(w, BalanceInfo{
		Asset:   asset.Hex(),
		Owner:   owner.Hex(),
		Balance: s.x.BalanceOf(asset, owner).Dec(),
	})
}

func orderInfo(o *exchange.Order) OrderInfo {
	return OrderInfo{
		ID:         o.ID,
		Owner:      o.Owner.Hex(),
		TokenGet:   o.TokenGet.Hex(),
		AmountGet:  o.AmountGet.Dec(),
		TokenGive:  o.TokenGive.Hex(),
		AmountGive: o.AmountGive.Dec(),
		Timestamp:  o.Timestamp,
		Cancelled:  o.Cancelled,
		Filled:     o.Filled,
	}
}

func parseAmount(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(strings.TrimSpace(s))
}

func parseAssetAmount(w http.ResponseWriter, assetStr, amountStr string) (common.Address, *uint256.Int, bool) {
	if !common.IsHexAddress(assetStr) {
		respondError(w, http.StatusBadRequest, "invalid asset address", assetStr)
		return common.Address{}, nil, false
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return common.Address{}, nil, false
	}
	return common.HexToAddress(assetStr), amount, true
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return 0, false
	}
	return id, true
}

func recoverCaller(message []byte, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, err
	}
	return crypto.RecoverAddress(message, sig)
}

// respondExchangeError maps the exchange failure taxonomy onto HTTP codes.
func respondExchangeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exchange.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order not found", err.Error())
	case errors.Is(err, exchange.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not order owner", err.Error())
	case errors.Is(err, exchange.ErrOrderTerminal):
		respondError(w, http.StatusConflict, "order already terminal", err.Error())
	case errors.Is(err, exchange.ErrInsufficientBalance):
		respondError(w, http.StatusConflict, "insufficient balance", err.Error())
	case errors.Is(err, exchange.ErrInvalidAsset), errors.Is(err, exchange.ErrOverflow):
		respondError(w, http.StatusBadRequest, "rejected", err.Error())
	case errors.Is(err, exchange.ErrTransferFailed):
		respondError(w, http.StatusBadGateway, "external transfer failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Detail: detail})
}
