package bundler

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	MsgSendTypeURL            = "/cosmos.bank.v1beta1.MsgSend"
	MsgExecuteContractTypeURL = "/cosmwasm.wasm.v1.MsgExecuteContract"
)

// MsgSendOperation encodes a bank send from the account to a recipient
func MsgSendOperation(from, to string, amount []types.Coin) *types.OperationDescriptor {
	var b []byte
	b = appendString(b, 1, from)
	b = appendString(b, 2, to)
	for _, c := range amount {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeCoin(c))
	}
	return &types.OperationDescriptor{TypeURL: MsgSendTypeURL, Value: b}
}

// MsgExecuteContractOperation encodes a call into a contract with a JSON message
func MsgExecuteContractOperation(sender, contract string, msg []byte, funds []types.Coin) *types.OperationDescriptor {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, contract)
	if len(msg) > 0 {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	for _, c := range funds {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeCoin(c))
	}
	return &types.OperationDescriptor{TypeURL: MsgExecuteContractTypeURL, Value: b}
}

func encodeCoin(c types.Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
