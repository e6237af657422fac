package privateKeySigner

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// PrivateKeySigner signs with an in-process secp256k1 key
type PrivateKeySigner struct {
	key    *ecdsa.PrivateKey
	pubKey types.PubKey
}

// NewPrivateKeySigner parses a hex private key, with or without the 0x prefix
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	if hexKey == "" {
		return nil, errors.New("private key cannot be empty")
	}
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return NewPrivateKeySignerFromKey(key), nil
}

func NewPrivateKeySignerFromKey(key *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		key: key,
		pubKey: types.PubKey{
			TypeURL: types.Secp256k1PubKeyTypeURL,
			Key:     ethcrypto.CompressPubkey(&key.PublicKey),
		},
	}
}

// GenerateKey creates a signer with a fresh random key
func GenerateKey() (*PrivateKeySigner, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}
	return NewPrivateKeySignerFromKey(key), nil
}

func (s *PrivateKeySigner) PublicKey(_ context.Context) (types.PubKey, error) {
	return types.PubKey{
		TypeURL: s.pubKey.TypeURL,
		Key:     append(types.Binary{}, s.pubKey.Key...),
	}, nil
}

// Sign drops the recovery byte from the recoverable signature; the remaining
// r||s is already in low-S form.
func (s *PrivateKeySigner) Sign(_ context.Context, digest [32]byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign digest")
	}
	return sig[:64], nil
}

// PrivateKeyHex returns the 0x-prefixed private key
func (s *PrivateKeySigner) PrivateKeyHex() string {
	return hexutil.Encode(ethcrypto.FromECDSA(s.key))
}
