package types

import "bytes"

// Secp256k1PubKeyTypeURL is the algorithm identifier for compressed secp256k1 keys.
const Secp256k1PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"

// SignMode values understood by the envelope codec
type SignMode int32

const (
	SignModeUnspecified SignMode = 0
	SignModeDirect      SignMode = 1
)

// PubKey is a public key tagged with the type URL of its algorithm
type PubKey struct {
	TypeURL string `json:"type_url"`
	Key     Binary `json:"key"`
}

// IsEqual checks if two public keys carry the same algorithm and key bytes
func (p *PubKey) IsEqual(other *PubKey) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.TypeURL == other.TypeURL && bytes.Equal(p.Key, other.Key)
}

// SignerRecord is the persisted authorization state of one account.
// The public key never changes after initialization; Sequence only ever
// advances by one per accepted relay.
type SignerRecord struct {
	PublicKey PubKey `json:"public_key"`
	Sequence  uint64 `json:"sequence"`
}

// Clone returns a deep copy of the record
func (r *SignerRecord) Clone() *SignerRecord {
	if r == nil {
		return nil
	}
	return &SignerRecord{
		PublicKey: PubKey{
			TypeURL: r.PublicKey.TypeURL,
			Key:     cloneBytes(r.PublicKey.Key),
		},
		Sequence: r.Sequence,
	}
}

// ContractInfo records which contract code and version owns an account
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// Clone returns a copy of the contract info
func (c *ContractInfo) Clone() *ContractInfo {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// SignedEnvelope is the outer signed container submitted for relay (a TxRaw)
type SignedEnvelope struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

// SigningDocument is the pre-image an off-chain signer signs (a direct-mode SignDoc)
type SigningDocument struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	ChainID       string
	AccountNumber uint64
}

// OperationDescriptor is an opaque, typed operation carried in a transaction body
type OperationDescriptor struct {
	TypeURL string `json:"type_url"`
	Value   Binary `json:"value"`
}

// TxBody is the decoded transaction body
type TxBody struct {
	Messages      []*OperationDescriptor
	Memo          string
	TimeoutHeight uint64
}

// Coin is a denomination and a decimal amount string
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Fee declares what the transaction is willing to pay
type Fee struct {
	Amount   []Coin `json:"amount"`
	GasLimit uint64 `json:"gas_limit"`
	Payer    string `json:"payer,omitempty"`
	Granter  string `json:"granter,omitempty"`
}

// SignerInfo describes one signer of a transaction
type SignerInfo struct {
	PublicKey *PubKey
	Mode      SignMode
	Sequence  uint64
}

// AuthInfo is the decoded authorization info of a transaction
type AuthInfo struct {
	SignerInfos []*SignerInfo
	Fee         *Fee
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
