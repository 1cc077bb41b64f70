// Package httpapi exposes the small read/write surface the dashboard
// consumes: token reads, price history reads, and one manual price
// insert that bypasses the ingestion pipeline.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/observability"
	"memecoin-tracker/internal/storage"
)

const defaultListLimit = 50

// Server serves the dashboard API.
type Server struct {
	tokens  storage.TokenStore
	prices  storage.PriceStore
	history storage.PriceHistoryStore // optional analytics timeseries
	metrics *observability.Metrics    // optional
	logger  *log.Logger
	mux     *http.ServeMux
}

// Options contains configuration for creating a Server.
type Options struct {
	TokenStore   storage.TokenStore
	PriceStore   storage.PriceStore
	HistoryStore storage.PriceHistoryStore // nil disables the history route
	Metrics      *observability.Metrics
	Logger       *log.Logger
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		tokens:  opts.TokenStore,
		prices:  opts.PriceStore,
		history: opts.HistoryStore,
		metrics: opts.Metrics,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/tokens", s.handleListTokens)
	s.mux.HandleFunc("GET /api/tokens/{uri}/prices", s.handleTokenPrices)
	if s.history != nil {
		s.mux.HandleFunc("GET /api/tokens/{uri}/history", s.handleTokenHistory)
	}
	s.mux.HandleFunc("POST /api/prices", s.handleInsertPrice)
	s.mux.Handle("GET /metrics", observability.Handler())
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	tokens, err := s.tokens.GetRecent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("list tokens: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

func (s *Server) handleTokenPrices(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")
	if strings.TrimSpace(uri) == "" {
		s.writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	prices, err := s.prices.GetByTokenURI(r.Context(), uri, limit)
	if err != nil {
		s.logger.Printf("get prices for %s: %v", uri, err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"prices": prices})
}

// handleTokenHistory serves the analytics timeseries for one token.
// Optional start/end query params are RFC3339; the default window is
// everything up to now.
func (s *Server) handleTokenHistory(w http.ResponseWriter, r *http.Request) {
	uri := r.PathValue("uri")
	if strings.TrimSpace(uri) == "" {
		s.writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	start := time.Unix(0, 0).UTC()
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		start = t
	}
	end := time.Now().UTC()
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		end = t
	}
	if end.Before(start) {
		s.writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	points, err := s.history.GetByTokenURI(r.Context(), uri, start, end)
	if err != nil {
		s.logger.Printf("get price history for %s: %v", uri, err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"history": points})
}

// insertPriceRequest is the manual price insert payload. Callers must
// supply tokenId and at least one of priceUsd/priceSol.
type insertPriceRequest struct {
	TokenID  int64    `json:"tokenId"`
	PriceUSD *float64 `json:"priceUsd"`
	PriceSOL *float64 `json:"priceSol"`
	TradeAt  *string  `json:"tradeAt"` // RFC3339, defaults to now
}

func (s *Server) handleInsertPrice(w http.ResponseWriter, r *http.Request) {
	var req insertPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.TokenID == 0 {
		s.writeError(w, http.StatusBadRequest, "tokenId is required")
		return
	}
	if req.PriceUSD == nil && req.PriceSOL == nil {
		s.writeError(w, http.StatusBadRequest, "at least one of priceUsd/priceSol is required")
		return
	}

	token, err := s.tokens.GetByID(r.Context(), req.TokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.logger.Printf("resolve token %d: %v", req.TokenID, err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	tradeAt := time.Now().UTC()
	if req.TradeAt != nil {
		t, err := time.Parse(time.RFC3339, *req.TradeAt)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "tradeAt must be RFC3339")
			return
		}
		tradeAt = t
	}

	price := &domain.Price{
		TokenID:   token.ID,
		TokenURI:  token.URI,
		PriceUSD:  req.PriceUSD,
		PriceSOL:  req.PriceSOL,
		TradeAt:   tradeAt,
		Timestamp: tradeAt,
		IsLatest:  true,
	}
	if err := s.prices.Insert(r.Context(), price); err != nil {
		s.logger.Printf("manual price insert for token %d: %v", req.TokenID, err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.ManualPriceInserts.Inc()
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"price": price})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
