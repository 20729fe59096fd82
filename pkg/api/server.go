package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/exchange"
	"github.com/uhyunpark/hyperswap/pkg/metrics"
	"github.com/uhyunpark/hyperswap/pkg/order"
)

const maxBodyBytes = 1 << 20

// Server handles REST API and WebSocket connections
type Server struct {
	ex      *exchange.Exchange
	relayer common.Address // caller of every match submitted over HTTP
	metrics *metrics.Collector
	router  *mux.Router
	hub     *Hub // WebSocket hub

	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// NewServer creates a new API server and subscribes its WebSocket hub to
// the exchange's events. collector may be nil.
func NewServer(ex *exchange.Exchange, relayer common.Address, collector *metrics.Collector) *Server {
	s := &Server{
		ex:             ex,
		relayer:        relayer,
		metrics:        collector,
		router:         mux.NewRouter(),
		hub:            NewHub(),
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		Logger:         zap.NewNop().Sugar(),
	}
	ex.AddSink(s.hub)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Settlement
	api.HandleFunc("/match", s.handleMatch).Methods("POST")

	// Orders
	api.HandleFunc("/orders/hash", s.handleOrderHash).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/batch-cancel", s.handleBatchCancel).Methods("POST")

	// Fills
	api.HandleFunc("/fills/{hash}", s.handleGetFill).Methods("GET")
	api.HandleFunc("/fills", s.handleGetFills).Methods("POST")

	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	}

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	s.hub.Logger = s.Logger
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.Logger.Infow("api_listening", "addr", addr, "relayer", s.relayer.Hex())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	left, err := req.Left.toSignedOrder("left")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid left order", err.Error())
		return
	}
	right, err := req.Right.toSignedOrder("right")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid right order", err.Error())
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid value", err.Error())
		return
	}

	res, err := s.ex.Match(r.Context(), exchange.MatchRequest{
		Caller: s.relayer,
		Value:  value,
		Left:   left,
		Right:  right,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, matchResponse(res))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.cancel(w, r, true)
}

func (s *Server) handleBatchCancel(w http.ResponseWriter, r *http.Request) {
	s.cancel(w, r, false)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request, single bool) {
	var req CancelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Validate request
	if len(req.Orders) == 0 {
		respondError(w, http.StatusBadRequest, "missing orders", "")
		return
	}
	if single && len(req.Orders) != 1 {
		respondError(w, http.StatusBadRequest, "expected one order", "use /orders/batch-cancel for several")
		return
	}
	maker, err := parseAddress("maker", req.Maker)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid maker", err.Error())
		return
	}
	sig, err := parseBytes("signature", req.Signature)
	if err != nil || len(sig) == 0 {
		respondError(w, http.StatusBadRequest, "missing signature", "")
		return
	}
	orders := make([]*order.Order, len(req.Orders))
	for i, oj := range req.Orders {
		if orders[i], err = oj.ToOrder(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid order", fmt.Sprintf("orders[%d].%v", i, err))
			return
		}
	}

	hashes, err := s.ex.CancelSigned(r.Context(), maker, orders, sig)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	out := CancelResponse{Status: "cancelled", Hashes: make([]string, len(hashes))}
	for i, h := range hashes {
		out.Hashes[i] = h.Hex()
	}
	respondJSON(w, out)
}

func (s *Server) handleGetFill(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash(mux.Vars(r)["hash"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid hash", err.Error())
		return
	}
	fill, err := s.ex.GetFill(hash)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, FillInfo{Hash: hash.Hex(), Fill: fill.Dec()})
}

func (s *Server) handleGetFills(w http.ResponseWriter, r *http.Request) {
	var req FillsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	hashes := make([]common.Hash, len(req.Hashes))
	for i, h := range req.Hashes {
		var err error
		if hashes[i], err = parseHash(h); err != nil {
			respondError(w, http.StatusBadRequest, "invalid hash", err.Error())
			return
		}
	}
	fills, err := s.ex.GetFills(hashes)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	out := make([]FillInfo, len(fills))
	for i, f := range fills {
		out[i] = FillInfo{Hash: hashes[i].Hex(), Fill: f.Dec()}
	}
	respondJSON(w, out)
}

func (s *Server) handleOrderHash(w http.ResponseWriter, r *http.Request) {
	var req HashRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := req.Order.ToOrder()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}
	hasher := s.ex.Hasher()
	hash := hasher.Hash(o)
	out := HashResponse{Hash: hash.Hex()}
	if req.AllowanceExpiry != 0 {
		out.AllowanceHash = hasher.AllowanceHash(order.MatchAllowance{
			OrderHash:      hash,
			ExpirationTime: req.AllowanceExpiry,
		}).Hex()
	}
	respondJSON(w, out)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	d := s.ex.Hasher().Domain()
	settings := s.ex.Settings()
	respondJSON(w, ConfigInfo{
		Domain: DomainInfo{
			Name:              d.Name,
			Version:           d.Version,
			ChainID:           d.ChainID.String(),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Exchange:           s.ex.Address().Hex(),
		Relayer:            s.relayer.Hex(),
		ProtocolFeeBps:     settings.ProtocolFeeBps,
		FeeReceiver:        settings.FeeReceiver.Hex(),
		AllowanceAuthority: settings.AllowanceAuthority.Hex(),
		WrappedNative:      settings.WrappedNative.Hex(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondEngineError maps an engine error to a status by its category
func respondEngineError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(e.Category))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:    e.Msg,
		Code:     e.Code,
		Category: e.Category.String(),
		Message:  err.Error(),
	})
}

func statusFor(c errs.Category) int {
	switch c {
	case errs.Validation, errs.Compatibility:
		return http.StatusBadRequest
	case errs.Authorization:
		return http.StatusForbidden
	case errs.Arithmetic, errs.Economic:
		return http.StatusUnprocessableEntity
	case errs.Transfer:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
