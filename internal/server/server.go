package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/model"
)

// BasketVerifier is the single core operation the server exposes.
type BasketVerifier interface {
	Verify(ctx context.Context, req model.VerifyRequest) model.VerifyResult
}

// Config holds the HTTP surface settings.
type Config struct {
	ListenAddr    string
	RatePerMinute int
}

// Server owns the HTTP listener and routing for basket verification.
type Server struct {
	httpServer *http.Server
	verifier   BasketVerifier
	logger     *zap.Logger
}

func NewServer(cfg Config, verifier BasketVerifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{verifier: verifier, logger: logger}

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(s.requestLogger)
	mux.Use(s.recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if cfg.RatePerMinute > 0 {
		mux.Use(httprate.LimitByIP(cfg.RatePerMinute, 1*time.Minute))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Post("/v1/baskets/verify", s.handleVerify)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type verifyRequestBody struct {
	ChainID      uint64                 `json:"chain_id"`
	DepositToken string                 `json:"deposit_token"`
	Components   []verifyComponentBody  `json:"components"`
}

type verifyComponentBody struct {
	Token  string          `json:"token"`
	Weight decimal.Decimal `json:"weight"`
}

type errorEnvelope struct {
	Status string             `json:"status"`
	Error  *model.VerifyError `json:"error"`
}

type successEnvelope struct {
	Status           string                        `json:"status"`
	ReadyForCreation bool                          `json:"ready_for_creation"`
	FactoryAddress   common.Address                `json:"factory_address"`
	Components       []model.ComponentVerification `json:"components"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, &model.VerifyError{
			Reason:  model.ReasonInvalidInput,
			Message: "malformed request body: " + err.Error(),
		})
		return
	}

	if !common.IsHexAddress(body.DepositToken) {
		s.writeError(w, &model.VerifyError{
			Reason:  model.ReasonInvalidInput,
			Message: "deposit_token is not a valid address",
		})
		return
	}
	req := model.VerifyRequest{
		ChainID:      body.ChainID,
		DepositToken: common.HexToAddress(body.DepositToken),
		Components:   make([]model.BasketComponent, 0, len(body.Components)),
	}
	for _, comp := range body.Components {
		if !common.IsHexAddress(comp.Token) {
			s.writeError(w, &model.VerifyError{
				Reason:  model.ReasonInvalidInput,
				Message: "component token is not a valid address: " + comp.Token,
			})
			return
		}
		req.Components = append(req.Components, model.BasketComponent{
			Token:  common.HexToAddress(comp.Token),
			Weight: comp.Weight,
		})
	}

	result := s.verifier.Verify(r.Context(), req)
	if result.Err != nil {
		s.writeError(w, result.Err)
		return
	}

	s.writeJSON(w, http.StatusOK, successEnvelope{
		Status:           "OK",
		ReadyForCreation: result.ReadyForCreation,
		FactoryAddress:   result.FactoryAddress,
		Components:       result.Components,
	})
}

func (s *Server) writeError(w http.ResponseWriter, verr *model.VerifyError) {
	status := http.StatusInternalServerError
	switch verr.Reason {
	case model.ReasonInvalidInput:
		status = http.StatusBadRequest
	case model.ReasonNoPoolFound, model.ReasonInsufficientLiquidity:
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, errorEnvelope{Status: "ERROR", Error: verr})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panicked", zap.Any("panic", rec))
				s.writeError(w, &model.VerifyError{
					Reason:  model.ReasonInternalError,
					Message: "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
