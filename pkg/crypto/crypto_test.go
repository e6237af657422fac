package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, types.PubKey) {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return priv, types.PubKey{
		TypeURL: types.Secp256k1PubKeyTypeURL,
		Key:     ethcrypto.CompressPubkey(&priv.PublicKey),
	}
}

func sign(t *testing.T, priv *ecdsa.PrivateKey, digest [32]byte) []byte {
	t.Helper()
	sig, err := ethcrypto.Sign(digest[:], priv)
	require.NoError(t, err)
	return sig[:SignatureLength]
}

// TestSignDocDigest tests that the digest is SHA-256 of the encoded sign doc
func TestSignDocDigest(t *testing.T) {
	doc := envelope.NewSigningDocument([]byte{0x01, 0x02}, []byte{0x03}, "c", 5)
	expected := sha256.Sum256([]byte{0x0a, 0x02, 0x01, 0x02, 0x12, 0x01, 0x03, 0x1a, 0x01, 0x63, 0x20, 0x05})
	assert.Equal(t, expected, SignDocDigest(doc))
}

func TestVerifySignature_Valid(t *testing.T) {
	priv, pk := newTestKey(t)
	digest := sha256.Sum256([]byte("payload"))

	require.NoError(t, VerifySignature(pk, digest, sign(t, priv, digest)))
}

func TestVerifySignature_Rejects(t *testing.T) {
	priv, pk := newTestKey(t)
	_, otherPk := newTestKey(t)
	digest := sha256.Sum256([]byte("payload"))
	sig := sign(t, priv, digest)

	t.Run("different digest", func(t *testing.T) {
		err := VerifySignature(pk, sha256.Sum256([]byte("other")), sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("different key", func(t *testing.T) {
		err := VerifySignature(otherPk, digest, sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("flipped bit", func(t *testing.T) {
		bad := append([]byte{}, sig...)
		bad[10] ^= 0x01
		assert.ErrorIs(t, VerifySignature(pk, digest, bad), ErrInvalidSignature)
	})

	t.Run("recoverable 65 byte form", func(t *testing.T) {
		full, err := ethcrypto.Sign(digest[:], priv)
		require.NoError(t, err)
		assert.ErrorIs(t, VerifySignature(pk, digest, full), ErrInvalidSignature)
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature(pk, digest, nil), ErrInvalidSignature)
	})

	t.Run("high-S form", func(t *testing.T) {
		n := ethcrypto.S256().Params().N
		s := new(big.Int).SetBytes(sig[32:])
		highS := new(big.Int).Sub(n, s)
		malleable := make([]byte, SignatureLength)
		copy(malleable, sig[:32])
		highS.FillBytes(malleable[32:])
		assert.ErrorIs(t, VerifySignature(pk, digest, malleable), ErrInvalidSignature)
	})
}

func TestVerifySignature_UnsupportedKeyType(t *testing.T) {
	_, pk := newTestKey(t)
	pk.TypeURL = "/cosmos.crypto.ed25519.PubKey"

	err := VerifySignature(pk, [32]byte{}, make([]byte, SignatureLength))
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestValidatePublicKey(t *testing.T) {
	_, pk := newTestKey(t)
	require.NoError(t, ValidatePublicKey(pk))

	uncompressed := pk
	uncompressed.Key = make([]byte, 65)
	assert.ErrorIs(t, ValidatePublicKey(uncompressed), ErrInvalidPublicKey)

	notOnCurve := types.PubKey{TypeURL: types.Secp256k1PubKeyTypeURL, Key: make([]byte, CompressedPubKeyLength)}
	notOnCurve.Key[0] = 0x05
	assert.ErrorIs(t, ValidatePublicKey(notOnCurve), ErrInvalidPublicKey)

	assert.ErrorIs(t, ValidatePublicKey(types.PubKey{TypeURL: "/unknown", Key: pk.Key}), ErrUnsupportedKeyType)
}

func TestSupportedKeyTypes(t *testing.T) {
	assert.True(t, IsSupportedKeyType(types.Secp256k1PubKeyTypeURL))
	assert.False(t, IsSupportedKeyType(""))
	assert.Equal(t, []string{types.Secp256k1PubKeyTypeURL}, SupportedKeyTypes())
}

func TestAccountAddress(t *testing.T) {
	_, pk := newTestKey(t)

	addr, err := AccountAddress(DefaultAddressPrefix, pk)
	require.NoError(t, err)
	require.NoError(t, ValidateAddress(addr, DefaultAddressPrefix))

	prefix, raw, err := DecodeAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, DefaultAddressPrefix, prefix)
	assert.Equal(t, PubKeyAddressBytes(pk.Key), raw)
	assert.Len(t, raw, 20)

	again, err := AccountAddress(DefaultAddressPrefix, pk)
	require.NoError(t, err)
	assert.Equal(t, addr, again, "address derivation should be deterministic")
}

func TestValidateAddress(t *testing.T) {
	contract, err := EncodeAddress("link", make([]byte, 32))
	require.NoError(t, err)
	require.NoError(t, ValidateAddress(contract, ""))

	short, err := EncodeAddress("link", make([]byte, 8))
	require.NoError(t, err)
	assert.Error(t, ValidateAddress(short, ""))

	assert.Error(t, ValidateAddress(contract, "cosmos"))
	assert.Error(t, ValidateAddress("not-an-address", ""))
}

func TestCheckAddressBinding(t *testing.T) {
	_, pk := newTestKey(t)
	_, other := newTestKey(t)

	addr, err := AccountAddress(DefaultAddressPrefix, pk)
	require.NoError(t, err)
	require.NoError(t, CheckAddressBinding(addr, pk))
	assert.ErrorIs(t, CheckAddressBinding(addr, other), ErrAddressKeyMismatch)

	contract, err := EncodeAddress(DefaultAddressPrefix, make([]byte, 32))
	require.NoError(t, err)
	assert.NoError(t, CheckAddressBinding(contract, pk))

	assert.Error(t, CheckAddressBinding("not-an-address", pk))
}
