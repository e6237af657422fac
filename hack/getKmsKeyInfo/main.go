package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/Layr-Labs/eigenx-relay-go/internal/aws"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/awsKmsSigner"
)

// Prints the compressed public key and relay account address of a KMS key.
//
//	KEY_ID=... [AWS_REGION=...] [ADDRESS_PREFIX=link] go run ./hack/getKmsKeyInfo
func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	awsCfg, err := aws.LoadAWSConfig(ctx, os.Getenv("AWS_REGION"))
	if err != nil {
		panic(err)
	}

	keyId := os.Getenv("KEY_ID")
	if keyId == "" {
		l.Sugar().Fatal("KEY_ID environment variable is not set")
	}
	prefix := os.Getenv("ADDRESS_PREFIX")
	if prefix == "" {
		prefix = relaycrypto.DefaultAddressPrefix
	}

	s := awsKmsSigner.NewAWSKMSSigner(awsCfg, keyId, l)
	pubKey, err := s.PublicKey(ctx)
	if err != nil {
		l.Sugar().Fatalw("failed to get public key", "error", err)
	}

	address, err := relaycrypto.AccountAddress(prefix, pubKey)
	if err != nil {
		l.Sugar().Fatalw("failed to derive address", "error", err)
	}

	// sign a throwaway digest to confirm the key can produce verifying signatures
	digest := sha256.Sum256([]byte("relay key check"))
	if _, err := s.Sign(ctx, digest); err != nil {
		l.Sugar().Fatalw("key cannot sign", "error", err)
	}

	l.Sugar().Infow("KMS key",
		"keyId", keyId,
		"typeUrl", pubKey.TypeURL,
		"publicKeyHex", hex.EncodeToString(pubKey.Key),
		"address", address,
	)
}
