// Package crypto provides the signing digest, signature verification and
// account address helpers used by the relay engine.
package crypto

import (
	"crypto/sha256"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// SignDocDigest returns SHA-256 over the canonical signing document bytes
func SignDocDigest(doc *types.SigningDocument) [32]byte {
	return sha256.Sum256(envelope.EncodeSignDoc(doc))
}
