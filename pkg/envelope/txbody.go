package envelope

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// TxBody field numbers. Extension options (1023, 2047) are ignored.
const (
	txBodyMessages      protowire.Number = 1
	txBodyMemo          protowire.Number = 2
	txBodyTimeoutHeight protowire.Number = 3
)

// DecodeTxBody parses TxBody bytes. Messages keep the order they were encoded in.
func DecodeTxBody(data []byte) (*types.TxBody, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, errors.Wrap(err, "malformed tx body")
	}

	body := &types.TxBody{}
	for _, f := range fields {
		switch f.num {
		case txBodyMessages:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "messages")
			}
			var a anypb.Any
			if err := proto.Unmarshal(f.bytes, &a); err != nil {
				return nil, errors.Wrapf(err, "messages[%d]", len(body.Messages))
			}
			body.Messages = append(body.Messages, &types.OperationDescriptor{
				TypeURL: a.GetTypeUrl(),
				Value:   copyBytes(a.GetValue()),
			})
		case txBodyMemo:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "memo")
			}
			body.Memo = string(f.bytes)
		case txBodyTimeoutHeight:
			if err := f.expect(protowire.VarintType); err != nil {
				return nil, errors.Wrap(err, "timeout_height")
			}
			body.TimeoutHeight = f.varint
		}
	}
	return body, nil
}

// EncodeTxBody serializes a TxBody
func EncodeTxBody(body *types.TxBody) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	var b []byte
	for i, msg := range body.Messages {
		if msg == nil {
			return nil, errors.Errorf("messages[%d] is nil", i)
		}
		anyBytes, err := proto.MarshalOptions{Deterministic: true}.Marshal(&anypb.Any{
			TypeUrl: msg.TypeURL,
			Value:   msg.Value,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "messages[%d]", i)
		}
		b = appendMessageField(b, txBodyMessages, anyBytes)
	}
	b = appendStringField(b, txBodyMemo, body.Memo)
	b = appendVarintField(b, txBodyTimeoutHeight, body.TimeoutHeight)
	return b, nil
}
