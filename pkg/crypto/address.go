package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// DefaultAddressPrefix is the bech32 prefix used when none is configured
const DefaultAddressPrefix = "link"

// PubKeyAddressBytes derives the 20-byte account id: ripemd160(sha256(key))
func PubKeyAddressBytes(key []byte) []byte {
	sha := sha256.Sum256(key)
	hasher := ripemd160.New()
	hasher.Write(sha[:])
	return hasher.Sum(nil)
}

// AccountAddress returns the bech32 address controlled by a public key
func AccountAddress(prefix string, pk types.PubKey) (string, error) {
	if err := ValidatePublicKey(pk); err != nil {
		return "", err
	}
	return EncodeAddress(prefix, PubKeyAddressBytes(pk.Key))
}

// EncodeAddress bech32-encodes raw address bytes
func EncodeAddress(prefix string, addr []byte) (string, error) {
	conv, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("error converting bits: %w", err)
	}
	return bech32.Encode(prefix, conv)
}

// DecodeAddress returns the prefix and raw bytes of a bech32 address
func DecodeAddress(addr string) (string, []byte, error) {
	prefix, decoded, err := bech32.Decode(addr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("error converting bits: %w", err)
	}
	return prefix, conv, nil
}

// ValidateAddress accepts bech32 addresses with a 20-byte (key derived) or
// 32-byte (contract) payload. An empty expectedPrefix accepts any prefix.
func ValidateAddress(addr, expectedPrefix string) error {
	prefix, raw, err := DecodeAddress(addr)
	if err != nil {
		return err
	}
	if expectedPrefix != "" && prefix != expectedPrefix {
		return fmt.Errorf("address prefix %q does not match %q", prefix, expectedPrefix)
	}
	if len(raw) != 20 && len(raw) != 32 {
		return fmt.Errorf("address payload must be 20 or 32 bytes, got %d", len(raw))
	}
	return nil
}

// ErrAddressKeyMismatch is returned when a key-derived address is bound to another key
var ErrAddressKeyMismatch = errors.New("address is not derived from public key")

// CheckAddressBinding requires a 20-byte address to be the one derived from pk.
// 32-byte contract addresses are not derived from a key and are accepted.
func CheckAddressBinding(addr string, pk types.PubKey) error {
	_, raw, err := DecodeAddress(addr)
	if err != nil {
		return err
	}
	if len(raw) != 20 {
		return nil
	}
	if !bytes.Equal(raw, PubKeyAddressBytes(pk.Key)) {
		return fmt.Errorf("%w: %s", ErrAddressKeyMismatch, addr)
	}
	return nil
}
