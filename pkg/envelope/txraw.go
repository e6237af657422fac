package envelope

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// TxRaw field numbers
const (
	txRawBodyBytes     protowire.Number = 1
	txRawAuthInfoBytes protowire.Number = 2
	txRawSignatures    protowire.Number = 3
)

// ErrNoSignatures is returned when an envelope carries an empty signature list
var ErrNoSignatures = errors.New("envelope has no signatures")

// DecodeTxRaw parses TxRaw bytes into a SignedEnvelope.
// The returned envelope does not alias the input buffer.
func DecodeTxRaw(data []byte) (*types.SignedEnvelope, error) {
	if len(data) == 0 {
		return nil, errors.New("envelope is empty")
	}

	fields, err := parseFields(data)
	if err != nil {
		return nil, errors.Wrap(err, "malformed envelope")
	}

	env := &types.SignedEnvelope{}
	for _, f := range fields {
		switch f.num {
		case txRawBodyBytes:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "body_bytes")
			}
			env.BodyBytes = copyBytes(f.bytes)
		case txRawAuthInfoBytes:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "auth_info_bytes")
			}
			env.AuthInfoBytes = copyBytes(f.bytes)
		case txRawSignatures:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "signatures")
			}
			env.Signatures = append(env.Signatures, copyBytes(f.bytes))
		}
	}

	if len(env.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	return env, nil
}

// EncodeTxRaw serializes a SignedEnvelope. Every signature entry is emitted,
// including empty ones, because repeated elements are always encoded.
func EncodeTxRaw(env *types.SignedEnvelope) []byte {
	if env == nil {
		return nil
	}
	var b []byte
	b = appendBytesField(b, txRawBodyBytes, env.BodyBytes)
	b = appendBytesField(b, txRawAuthInfoBytes, env.AuthInfoBytes)
	for _, sig := range env.Signatures {
		b = protowire.AppendTag(b, txRawSignatures, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}
	return b
}
