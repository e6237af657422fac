// Package account implements the meta-transaction relay engine: it verifies a
// pre-signed inner transaction against an account's signer record and returns
// the operations to execute under the account's authority.
//
// The engine is pure. It never persists anything; callers commit the returned
// record together with the relayed operations, or discard both.
package account

import (
	"math"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultAccountNumber is the account number bound into every signing document
// unless configured otherwise. Signers must use the same value.
const DefaultAccountNumber uint64 = 0

var errSequenceExhausted = errors.New("sequence cannot advance past max uint64")

// Config holds protocol constants shared by the engine and off-chain signers
type Config struct {
	// AccountNumber is bound into the signing document. It is not derived from
	// chain state.
	AccountNumber uint64

	// SkipSignatureVerification accepts any envelope whose sequence matches.
	// This reproduces a sequence-only account and is unsafe outside tests.
	SkipSignatureVerification bool
}

// ExecutionContext carries host-provided values for a single call
type ExecutionContext struct {
	ChainID string
}

// RelayResult is the outcome of an accepted relay
type RelayResult struct {
	// Record is the signer record to commit; its sequence is one past the input's
	Record *types.SignerRecord

	// Operations in the order they appear in the transaction body
	Operations []*types.OperationDescriptor

	// Sequence the envelope declared (equal to the pre-call sequence)
	Sequence uint64

	Memo          string
	SignDocDigest [32]byte
}

type Engine struct {
	config *Config
	logger *zap.Logger
}

func NewEngine(cfg *Config, logger *zap.Logger) *Engine {
	if cfg == nil {
		cfg = &Config{AccountNumber: DefaultAccountNumber}
	}
	if cfg.SkipSignatureVerification {
		logger.Sugar().Warnw("Signature verification is DISABLED: any envelope with a matching sequence will be relayed. Do not use in production.")
	}
	return &Engine{config: cfg, logger: logger}
}

// AccountNumber returns the configured account number constant
func (e *Engine) AccountNumber() uint64 {
	return e.config.AccountNumber
}

// Initialize creates the signer record for a new account with sequence 0
func (e *Engine) Initialize(algorithmID string, rawKey []byte) (*types.SignerRecord, error) {
	if !crypto.IsSupportedKeyType(algorithmID) {
		return nil, unsupportedKeyType(algorithmID)
	}
	pk := types.PubKey{TypeURL: algorithmID, Key: append([]byte{}, rawKey...)}
	if err := crypto.ValidatePublicKey(pk); err != nil {
		return nil, decodeError(StagePublicKey, err)
	}
	return &types.SignerRecord{PublicKey: pk, Sequence: 0}, nil
}

// Relay decodes and authenticates an envelope against record. The input
// record is never modified. Steps run in a fixed order and the first failure
// aborts the call: decode, rebuild the signing document, verify the first
// signature, check the first signer's sequence, decode the body.
func (e *Engine) Relay(exec ExecutionContext, record *types.SignerRecord, envelopeBytes []byte) (*RelayResult, error) {
	if record == nil {
		return nil, errors.New("signer record is required")
	}

	env, err := envelope.DecodeTxRaw(envelopeBytes)
	if err != nil {
		return nil, decodeError(StageEnvelope, err)
	}

	doc := envelope.NewSigningDocument(env.BodyBytes, env.AuthInfoBytes, exec.ChainID, e.config.AccountNumber)
	digest := crypto.SignDocDigest(doc)

	if !e.config.SkipSignatureVerification {
		if err := e.verify(record.PublicKey, digest, env.Signatures[0]); err != nil {
			return nil, err
		}
	}

	declared, err := envelope.FirstSignerSequence(env.AuthInfoBytes)
	if err != nil {
		return nil, decodeError(StageAuthInfo, err)
	}
	if declared != record.Sequence {
		return nil, invalidNonce(record.Sequence, declared)
	}
	if record.Sequence == math.MaxUint64 {
		return nil, &Error{Kind: KindInvalidNonce, Expected: record.Sequence, Declared: declared, Err: errSequenceExhausted}
	}

	body, err := envelope.DecodeTxBody(env.BodyBytes)
	if err != nil {
		return nil, decodeError(StageBody, err)
	}

	next := record.Clone()
	next.Sequence++

	e.logger.Sugar().Debugw("Relay accepted",
		"sequence", declared,
		"operations", len(body.Messages),
		"chain_id", exec.ChainID,
	)

	return &RelayResult{
		Record:        next,
		Operations:    body.Messages,
		Sequence:      declared,
		Memo:          body.Memo,
		SignDocDigest: digest,
	}, nil
}

func (e *Engine) verify(pk types.PubKey, digest [32]byte, signature []byte) error {
	if !crypto.IsSupportedKeyType(pk.TypeURL) {
		return unsupportedKeyType(pk.TypeURL)
	}
	if err := crypto.VerifySignature(pk, digest, signature); err != nil {
		if errors.Is(err, crypto.ErrUnsupportedKeyType) {
			return unsupportedKeyType(pk.TypeURL)
		}
		return signatureVerificationFailed(pk.TypeURL, err)
	}
	return nil
}

// QuerySignerInfo returns a copy of the record's public key and sequence
func (e *Engine) QuerySignerInfo(record *types.SignerRecord) types.SignerInfoResponse {
	cp := record.Clone()
	if cp == nil {
		return types.SignerInfoResponse{}
	}
	return types.SignerInfoResponse{PublicKey: cp.PublicKey, Sequence: cp.Sequence}
}
