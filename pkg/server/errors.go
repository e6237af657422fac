package server

import (
	"errors"
	"net/http"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
)

// Error kinds returned in ErrorResponse.Error besides the relay engine's own kinds
const (
	KindAccountNotFound    = "account_not_found"
	KindAlreadyInitialized = "already_initialized"
	KindContractMismatch   = "contract_mismatch"
	KindInvalidRequest     = "invalid_request"
	KindInvalidAddress     = "invalid_address"
	KindAddressKeyMismatch = "address_key_mismatch"
	KindConflict           = "conflict"
	KindRateLimited        = "rate_limited"
	KindUnavailable        = "unavailable"
	KindInternal           = "internal"
)

// classify maps an error to its HTTP status and error kind
func classify(err error) (int, string) {
	var relayErr *account.Error
	if errors.As(err, &relayErr) {
		switch relayErr.Kind {
		case account.KindDecode, account.KindUnsupportedKeyType:
			return http.StatusBadRequest, string(relayErr.Kind)
		case account.KindSignatureVerificationFailed:
			return http.StatusUnauthorized, string(relayErr.Kind)
		case account.KindInvalidNonce:
			return http.StatusConflict, string(relayErr.Kind)
		}
	}

	switch {
	case errors.Is(err, relaycrypto.ErrAddressKeyMismatch):
		return http.StatusForbidden, KindAddressKeyMismatch
	case errors.Is(err, host.ErrAccountNotFound):
		return http.StatusNotFound, KindAccountNotFound
	case errors.Is(err, host.ErrAlreadyInitialized):
		return http.StatusConflict, KindAlreadyInitialized
	case errors.Is(err, host.ErrContractMismatch):
		return http.StatusConflict, KindContractMismatch
	case errors.Is(err, host.ErrInvalidRequest):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.Is(err, persistence.ErrConflict):
		return http.StatusConflict, KindConflict
	case errors.Is(err, persistence.ErrClosed):
		return http.StatusServiceUnavailable, KindUnavailable
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// outcome labels a call for metrics
func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeAccepted
	}
	_, kind := classify(err)
	return kind
}
