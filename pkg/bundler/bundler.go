// Package bundler builds signed relay envelopes off-chain. The bytes it
// produces are the ones the account engine decodes and verifies.
package bundler

import (
	"context"
	"encoding/json"
	"fmt"

	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
)

const (
	DefaultChainID  = "simd-testing"
	DefaultDenom    = "cony"
	DefaultGasLimit = 100_000

	// Defaults for the outer transaction a bundler broadcasts on its own account
	DefaultBundleAccountNumber = 47
	DefaultBundleGasLimit      = 150_000
)

// Builder holds the parameters shared by every envelope it builds
type Builder struct {
	ChainID       string
	AccountNumber uint64
	Memo          string
	Fee           []types.Coin
	GasLimit      uint64
	TimeoutHeight uint64
}

func NewBuilder(chainID string, accountNumber uint64) *Builder {
	return &Builder{
		ChainID:       chainID,
		AccountNumber: accountNumber,
		GasLimit:      DefaultGasLimit,
	}
}

// Built is an envelope together with the intermediate values that produced it
type Built struct {
	TxRaw         []byte
	BodyBytes     []byte
	AuthInfoBytes []byte
	SignDocDigest [32]byte
	Signature     []byte
}

// BuildEnvelope signs ops at the given sequence and returns the encoded TxRaw
func (b *Builder) BuildEnvelope(ctx context.Context, s signer.ISigner, sequence uint64, ops []*types.OperationDescriptor) ([]byte, error) {
	built, err := b.Build(ctx, s, sequence, ops)
	if err != nil {
		return nil, err
	}
	return built.TxRaw, nil
}

func (b *Builder) Build(ctx context.Context, s signer.ISigner, sequence uint64, ops []*types.OperationDescriptor) (*Built, error) {
	if s == nil {
		return nil, fmt.Errorf("signer is required")
	}
	pubKey, err := s.PublicKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get signer public key")
	}

	bodyBytes, err := envelope.EncodeTxBody(&types.TxBody{
		Messages:      ops,
		Memo:          b.Memo,
		TimeoutHeight: b.TimeoutHeight,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tx body")
	}

	authInfoBytes, err := envelope.EncodeAuthInfo(&types.AuthInfo{
		SignerInfos: []*types.SignerInfo{{
			PublicKey: &pubKey,
			Mode:      types.SignModeDirect,
			Sequence:  sequence,
		}},
		Fee: &types.Fee{
			Amount:   b.Fee,
			GasLimit: b.GasLimit,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode auth info")
	}

	doc := envelope.NewSigningDocument(bodyBytes, authInfoBytes, b.ChainID, b.AccountNumber)
	digest := relaycrypto.SignDocDigest(doc)

	sig, err := s.Sign(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign envelope")
	}

	txRaw := envelope.EncodeTxRaw(&types.SignedEnvelope{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		Signatures:    [][]byte{sig},
	})

	return &Built{
		TxRaw:         txRaw,
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		SignDocDigest: digest,
		Signature:     sig,
	}, nil
}

// NewExecuteMsg wraps an encoded envelope into the account's execute message
func NewExecuteMsg(tx []byte) *types.ExecuteMsg {
	return &types.ExecuteMsg{SendTx: &types.SendTxMsg{Tx: append(types.Binary{}, tx...)}}
}

type sendTxJSON struct {
	SendTx struct {
		Tx types.ByteArray `json:"tx"`
	} `json:"send_tx"`
}

// ExecuteMsgJSON returns the execute message for tx as carried in a
// MsgExecuteContract's msg field, with tx as an array of byte values.
// types.ExecuteMsg decodes it unchanged.
func ExecuteMsgJSON(tx []byte) ([]byte, error) {
	var msg sendTxJSON
	msg.SendTx.Tx = append(types.ByteArray{}, tx...)
	return json.Marshal(msg)
}

// ContractCallOperation wraps an account envelope into a MsgExecuteContract
// sent by sender to the account contract
func ContractCallOperation(sender, contract string, tx []byte) (*types.OperationDescriptor, error) {
	msg, err := ExecuteMsgJSON(tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode execute message")
	}
	return MsgExecuteContractOperation(sender, contract, msg, nil), nil
}
