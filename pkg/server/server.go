package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*
Server exposes the account host over HTTP.

  GET  /healthz                              persistence health
  GET  /metrics                              Prometheus metrics
  GET  /accounts                             list instantiated accounts
  POST /accounts/{address}/instantiate       bind the account to a public key
  POST /accounts/{address}/execute           relay a signed inner transaction
  POST /accounts/{address}/migrate           move the account to the current version
  GET  /accounts/{address}/signer_info       public key and current sequence

Errors are JSON {"error": kind, "message": text}. Relay rejections keep the
engine's kind: decode_error and unsupported_key_type are 400,
signature_verification_failed is 401, invalid_nonce is 409.
*/

const (
	maxRequestBodyBytes = 1 << 20
	limiterIdleTimeout  = 10 * time.Minute
)

type Config struct {
	Port          int
	ChainID       string
	AddressPrefix string
	RateLimit     RateLimitConfig
}

type Server struct {
	config     *Config
	contract   *host.Contract
	store      persistence.IAccountPersistence
	metrics    *metrics.Metrics
	logger     *zap.Logger
	limiter    *rateLimiter
	httpServer *http.Server
	cancel     context.CancelFunc
}

func NewServer(cfg *Config, contract *host.Contract, store persistence.IAccountPersistence, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		contract: contract,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit)
	}

	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/accounts", func(ar chi.Router) {
		ar.Use(s.rateLimit)
		ar.Get("/", s.handleListAccounts)
		ar.Route("/{address}", func(sr chi.Router) {
			sr.Use(s.validateAddress)
			sr.Post("/instantiate", s.handleInstantiate)
			sr.Post("/execute", s.handleExecute)
			sr.Post("/migrate", s.handleMigrate)
			sr.Get("/signer_info", s.handleSignerInfo)
		})
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if s.limiter != nil {
		go s.pruneLimiters(ctx)
	}

	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr, "chain_id", s.config.ChainID)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) pruneLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.prune(limiterIdleTimeout)
		}
	}
}

func (s *Server) validateAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if err := relaycrypto.ValidateAddress(address, s.config.AddressPrefix); err != nil {
			writeJSONError(w, http.StatusBadRequest, KindInvalidAddress, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) env(address string) host.Env {
	return host.Env{
		ChainID:         s.config.ChainID,
		ContractAddress: address,
		BlockTime:       time.Now().UTC(),
	}
}
