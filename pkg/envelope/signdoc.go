package envelope

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// SignDoc field numbers
const (
	signDocBodyBytes     protowire.Number = 1
	signDocAuthInfoBytes protowire.Number = 2
	signDocChainID       protowire.Number = 3
	signDocAccountNumber protowire.Number = 4
)

// NewSigningDocument assembles the document that the envelope's signer signed
func NewSigningDocument(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) *types.SigningDocument {
	return &types.SigningDocument{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainID:       chainID,
		AccountNumber: accountNumber,
	}
}

// EncodeSignDoc returns the canonical bytes of a signing document.
// The output depends only on the document's fields.
func EncodeSignDoc(doc *types.SigningDocument) []byte {
	if doc == nil {
		return nil
	}
	var b []byte
	b = appendBytesField(b, signDocBodyBytes, doc.BodyBytes)
	b = appendBytesField(b, signDocAuthInfoBytes, doc.AuthInfoBytes)
	b = appendStringField(b, signDocChainID, doc.ChainID)
	b = appendVarintField(b, signDocAccountNumber, doc.AccountNumber)
	return b
}
