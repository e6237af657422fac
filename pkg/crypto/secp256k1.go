package crypto

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	// CompressedPubKeyLength is the size of a compressed secp256k1 public key
	CompressedPubKeyLength = 33

	// SignatureLength is the size of a compact r||s signature
	SignatureLength = 64
)

var (
	ErrUnsupportedKeyType = errors.New("unsupported public key type")
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrInvalidSignature   = errors.New("signature verification failed")
)

// Verifier checks a signature over a 32-byte digest for one key algorithm
type Verifier interface {
	ValidatePublicKey(key []byte) error
	Verify(key []byte, digest [32]byte, signature []byte) error
}

var verifiers = map[string]Verifier{
	types.Secp256k1PubKeyTypeURL: secp256k1Verifier{},
}

// IsSupportedKeyType reports whether a verifier is registered for the algorithm id
func IsSupportedKeyType(typeURL string) bool {
	_, ok := verifiers[typeURL]
	return ok
}

// SupportedKeyTypes returns every registered algorithm id
func SupportedKeyTypes() []string {
	out := make([]string, 0, len(verifiers))
	for k := range verifiers {
		out = append(out, k)
	}
	return out
}

// ValidatePublicKey checks that the key bytes are well formed for their algorithm
func ValidatePublicKey(pk types.PubKey) error {
	v, ok := verifiers[pk.TypeURL]
	if !ok {
		return errors.Wrapf(ErrUnsupportedKeyType, "%q", pk.TypeURL)
	}
	return v.ValidatePublicKey(pk.Key)
}

// VerifySignature dispatches on the key's algorithm id and verifies the signature over digest
func VerifySignature(pk types.PubKey, digest [32]byte, signature []byte) error {
	v, ok := verifiers[pk.TypeURL]
	if !ok {
		return errors.Wrapf(ErrUnsupportedKeyType, "%q", pk.TypeURL)
	}
	return v.Verify(pk.Key, digest, signature)
}

type secp256k1Verifier struct{}

func (secp256k1Verifier) ValidatePublicKey(key []byte) error {
	if len(key) != CompressedPubKeyLength {
		return errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", CompressedPubKeyLength, len(key))
	}
	if _, err := ethcrypto.DecompressPubkey(key); err != nil {
		return errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	return nil
}

// Verify accepts only low-S signatures, matching the canonical form produced by signers.
func (v secp256k1Verifier) Verify(key []byte, digest [32]byte, signature []byte) error {
	if err := v.ValidatePublicKey(key); err != nil {
		return err
	}
	if len(signature) != SignatureLength {
		return errors.Wrapf(ErrInvalidSignature, "signature must be %d bytes, got %d", SignatureLength, len(signature))
	}
	if !ethcrypto.VerifySignature(key, digest[:], signature) {
		return ErrInvalidSignature
	}
	return nil
}
