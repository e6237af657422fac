package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, KindUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", ChainID: s.config.ChainID})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.contract.Accounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []string{}
	}
	writeJSON(w, http.StatusOK, types.AccountsResponse{Accounts: accounts})
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req types.InstantiateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	address := chi.URLParam(r, "address")
	resp, err := s.instantiate(r, address, &req)
	if s.metrics != nil {
		s.metrics.ObserveInstantiate(outcome(err))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// instantiate rejects binding a key-derived address to a key it was not derived
// from. Malformed keys are left to the contract, which reports them as decode errors.
func (s *Server) instantiate(r *http.Request, address string, req *types.InstantiateRequest) (*host.Response, error) {
	pk := types.PubKey{TypeURL: req.Msg.TypeURL, Key: req.Msg.Key}
	if relaycrypto.ValidatePublicKey(pk) == nil {
		if err := relaycrypto.CheckAddressBinding(address, pk); err != nil {
			return nil, err
		}
	}
	return s.contract.Instantiate(r.Context(), s.env(address), host.MessageInfo{Sender: req.Sender}, &req.Msg)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req types.ExecuteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	address := chi.URLParam(r, "address")
	resp, err := s.contract.Execute(r.Context(), s.env(address), host.MessageInfo{Sender: req.Sender}, &req.Msg)
	if s.metrics != nil {
		ops := 0
		if resp != nil {
			ops = len(resp.Messages)
		}
		s.metrics.ObserveRelay(outcome(err), ops)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req types.MigrateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	address := chi.URLParam(r, "address")
	resp, err := s.contract.Migrate(r.Context(), s.env(address), &req.Msg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSignerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.contract.SignerInfo(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, KindInvalidRequest, fmt.Sprintf("failed to parse request: %v", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Sugar().Errorw("Request failed",
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
	}
	writeJSONError(w, status, kind, err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
