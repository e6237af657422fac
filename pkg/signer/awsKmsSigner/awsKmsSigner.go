package awsKmsSigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync"

	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	relaytypes "github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// KMSAPI is the subset of the KMS client used for signing
type KMSAPI interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// AWSKMSSigner signs digests with an ECC_SECG_P256K1 key that never leaves KMS
type AWSKMSSigner struct {
	client KMSAPI
	keyId  string
	logger *zap.Logger

	mu     sync.Mutex
	pubKey *relaytypes.PubKey
}

func NewAWSKMSSigner(awsCfg aws.Config, keyId string, logger *zap.Logger) *AWSKMSSigner {
	return NewAWSKMSSignerWithClient(kms.NewFromConfig(awsCfg), keyId, logger)
}

func NewAWSKMSSignerWithClient(client KMSAPI, keyId string, logger *zap.Logger) *AWSKMSSigner {
	return &AWSKMSSigner{
		client: client,
		keyId:  keyId,
		logger: logger,
	}
}

// PublicKey fetches and caches the compressed public key of the KMS key
func (a *AWSKMSSigner) PublicKey(ctx context.Context) (relaytypes.PubKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pubKey != nil {
		return relaytypes.PubKey{TypeURL: a.pubKey.TypeURL, Key: append(relaytypes.Binary{}, a.pubKey.Key...)}, nil
	}

	out, err := a.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(a.keyId)})
	if err != nil {
		return relaytypes.PubKey{}, errors.Wrapf(err, "failed to get public key for key %s", a.keyId)
	}
	if out.KeySpec != "" && out.KeySpec != types.KeySpecEccSecgP256k1 {
		return relaytypes.PubKey{}, fmt.Errorf("key %s has spec %s, expected %s", a.keyId, out.KeySpec, types.KeySpecEccSecgP256k1)
	}

	ecdsaPub, err := parseECDSAPublicKey(out.PublicKey)
	if err != nil {
		return relaytypes.PubKey{}, errors.Wrapf(err, "failed to parse public key for key %s", a.keyId)
	}

	a.pubKey = &relaytypes.PubKey{
		TypeURL: relaytypes.Secp256k1PubKeyTypeURL,
		Key:     crypto.CompressPubkey(ecdsaPub),
	}
	a.logger.Sugar().Debugw("Loaded KMS public key", "key_id", a.keyId)

	return relaytypes.PubKey{TypeURL: a.pubKey.TypeURL, Key: append(relaytypes.Binary{}, a.pubKey.Key...)}, nil
}

// Sign asks KMS to sign the digest, converts the DER signature to low-S r||s
// and checks it against the key's public key before returning.
func (a *AWSKMSSigner) Sign(ctx context.Context, digest [32]byte) ([]byte, error) {
	pubKey, err := a.PublicKey(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(a.keyId),
		Message:          digest[:],
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign with key %s", a.keyId)
	}

	sig, err := derToCompact(out.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse KMS signature")
	}

	if err := relaycrypto.VerifySignature(pubKey, digest, sig); err != nil {
		return nil, errors.Wrap(err, "KMS signature does not verify against the key's public key")
	}
	return sig, nil
}

// parseECDSAPublicKey parses the DER-encoded public key from KMS
func parseECDSAPublicKey(derBytes []byte) (*ecdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	_, err := asn1.Unmarshal(derBytes, &asn1pubk)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}

	return crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}

// derToCompact converts an ASN.1 ECDSA signature into 64-byte r||s with S
// normalized to the lower half of the curve order.
func derToCompact(der []byte) ([]byte, error) {
	var sigAsn1 asn1EcSig
	rest, err := asn1.Unmarshal(der, &sigAsn1)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after signature")
	}

	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	s := new(big.Int).SetBytes(sigAsn1.S.Bytes)

	curveOrder := crypto.S256().Params().N
	halfOrder := new(big.Int).Rsh(curveOrder, 1)
	if s.Cmp(halfOrder) > 0 {
		s = new(big.Int).Sub(curveOrder, s)
	}

	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, fmt.Errorf("signature component out of range")
	}

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}
