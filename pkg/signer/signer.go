// Package signer produces signatures over signing-document digests for
// building relay envelopes off-chain.
package signer

import (
	"context"
	"fmt"

	relayaws "github.com/Layr-Labs/eigenx-relay-go/internal/aws"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/privateKeySigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"go.uber.org/zap"
)

// ISigner signs 32-byte digests with a secp256k1 key
type ISigner interface {
	// PublicKey returns the signer's compressed public key tagged with its algorithm id
	PublicKey(ctx context.Context) (types.PubKey, error)

	// Sign returns a 64-byte r||s signature in low-S form over digest
	Sign(ctx context.Context, digest [32]byte) ([]byte, error)
}

type SignerConfig struct {
	// PrivateKey is a hex-encoded secp256k1 private key (with or without 0x)
	PrivateKey string `json:"privateKey" yaml:"privateKey"`

	// AWSKMSKeyID selects an ECC_SECG_P256K1 key held in AWS KMS instead
	AWSKMSKeyID string `json:"awsKmsKeyId" yaml:"awsKmsKeyId"`
	AWSRegion   string `json:"awsRegion" yaml:"awsRegion"`
}

// NewSigner builds a signer from config. Exactly one of PrivateKey and
// AWSKMSKeyID must be set.
func NewSigner(ctx context.Context, cfg *SignerConfig, logger *zap.Logger) (ISigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("signer config is required")
	}
	switch {
	case cfg.PrivateKey != "" && cfg.AWSKMSKeyID != "":
		return nil, fmt.Errorf("only one of private key and AWS KMS key id may be set")
	case cfg.PrivateKey != "":
		return privateKeySigner.NewPrivateKeySigner(cfg.PrivateKey)
	case cfg.AWSKMSKeyID != "":
		awsCfg, err := relayaws.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		if err := relayaws.LogCallerIdentity(ctx, awsCfg, logger); err != nil {
			return nil, err
		}
		return awsKmsSigner.NewAWSKMSSigner(awsCfg, cfg.AWSKMSKeyID, logger), nil
	default:
		return nil, fmt.Errorf("a private key or AWS KMS key id is required")
	}
}
