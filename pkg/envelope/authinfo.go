package envelope

import (
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// AuthInfo and nested message field numbers
const (
	authInfoSignerInfos protowire.Number = 1
	authInfoFee         protowire.Number = 2

	signerInfoPublicKey protowire.Number = 1
	signerInfoModeInfo  protowire.Number = 2
	signerInfoSequence  protowire.Number = 3

	modeInfoSingle protowire.Number = 1
	singleMode     protowire.Number = 1

	feeAmount   protowire.Number = 1
	feeGasLimit protowire.Number = 2
	feePayer    protowire.Number = 3
	feeGranter  protowire.Number = 4

	coinDenom  protowire.Number = 1
	coinAmount protowire.Number = 2

	pubKeyKey protowire.Number = 1
)

// ErrNoSignerInfos is returned when AuthInfo declares no signers
var ErrNoSignerInfos = errors.New("auth info has no signer infos")

// DecodeAuthInfo parses AuthInfo bytes
func DecodeAuthInfo(data []byte) (*types.AuthInfo, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, errors.Wrap(err, "malformed auth info")
	}

	info := &types.AuthInfo{}
	for _, f := range fields {
		switch f.num {
		case authInfoSignerInfos:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "signer_infos")
			}
			si, err := decodeSignerInfo(f.bytes)
			if err != nil {
				return nil, errors.Wrapf(err, "signer_infos[%d]", len(info.SignerInfos))
			}
			info.SignerInfos = append(info.SignerInfos, si)
		case authInfoFee:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, errors.Wrap(err, "fee")
			}
			fee, err := decodeFee(f.bytes)
			if err != nil {
				return nil, errors.Wrap(err, "fee")
			}
			info.Fee = fee
		}
	}
	return info, nil
}

// FirstSignerSequence returns the sequence declared by the first signer info
func FirstSignerSequence(authInfoBytes []byte) (uint64, error) {
	info, err := DecodeAuthInfo(authInfoBytes)
	if err != nil {
		return 0, err
	}
	if len(info.SignerInfos) == 0 {
		return 0, ErrNoSignerInfos
	}
	return info.SignerInfos[0].Sequence, nil
}

func decodeSignerInfo(data []byte) (*types.SignerInfo, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}

	si := &types.SignerInfo{}
	for _, f := range fields {
		switch f.num {
		case signerInfoPublicKey:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			pk, err := decodePubKeyAny(f.bytes)
			if err != nil {
				return nil, errors.Wrap(err, "public_key")
			}
			si.PublicKey = pk
		case signerInfoModeInfo:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			mode, err := decodeModeInfo(f.bytes)
			if err != nil {
				return nil, errors.Wrap(err, "mode_info")
			}
			si.Mode = mode
		case signerInfoSequence:
			if err := f.expect(protowire.VarintType); err != nil {
				return nil, err
			}
			si.Sequence = f.varint
		}
	}
	return si, nil
}

// decodePubKeyAny unpacks an Any wrapping a {key: bytes} public key message
func decodePubKeyAny(data []byte) (*types.PubKey, error) {
	var a anypb.Any
	if err := proto.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	fields, err := parseFields(a.GetValue())
	if err != nil {
		return nil, err
	}
	pk := &types.PubKey{TypeURL: a.GetTypeUrl()}
	for _, f := range fields {
		if f.num == pubKeyKey {
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			pk.Key = copyBytes(f.bytes)
		}
	}
	return pk, nil
}

// decodeModeInfo returns the single-signer mode. Multisig mode info yields
// SignModeUnspecified.
func decodeModeInfo(data []byte) (types.SignMode, error) {
	fields, err := parseFields(data)
	if err != nil {
		return types.SignModeUnspecified, err
	}
	for _, f := range fields {
		if f.num != modeInfoSingle || f.typ != protowire.BytesType {
			continue
		}
		single, err := parseFields(f.bytes)
		if err != nil {
			return types.SignModeUnspecified, err
		}
		for _, sf := range single {
			if sf.num == singleMode && sf.typ == protowire.VarintType {
				return types.SignMode(sf.varint), nil
			}
		}
	}
	return types.SignModeUnspecified, nil
}

func decodeFee(data []byte) (*types.Fee, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	fee := &types.Fee{}
	for _, f := range fields {
		switch f.num {
		case feeAmount:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			coin, err := decodeCoin(f.bytes)
			if err != nil {
				return nil, errors.Wrap(err, "amount")
			}
			fee.Amount = append(fee.Amount, coin)
		case feeGasLimit:
			if err := f.expect(protowire.VarintType); err != nil {
				return nil, err
			}
			fee.GasLimit = f.varint
		case feePayer:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			fee.Payer = string(f.bytes)
		case feeGranter:
			if err := f.expect(protowire.BytesType); err != nil {
				return nil, err
			}
			fee.Granter = string(f.bytes)
		}
	}
	return fee, nil
}

func decodeCoin(data []byte) (types.Coin, error) {
	fields, err := parseFields(data)
	if err != nil {
		return types.Coin{}, err
	}
	var c types.Coin
	for _, f := range fields {
		if f.typ != protowire.BytesType {
			continue
		}
		switch f.num {
		case coinDenom:
			c.Denom = string(f.bytes)
		case coinAmount:
			c.Amount = string(f.bytes)
		}
	}
	return c, nil
}

// EncodeAuthInfo serializes AuthInfo. Each signer info is encoded in
// single direct-signer form.
func EncodeAuthInfo(info *types.AuthInfo) ([]byte, error) {
	if info == nil {
		return nil, nil
	}
	var b []byte
	for _, si := range info.SignerInfos {
		siBytes, err := encodeSignerInfo(si)
		if err != nil {
			return nil, err
		}
		b = appendMessageField(b, authInfoSignerInfos, siBytes)
	}
	if info.Fee != nil {
		b = appendMessageField(b, authInfoFee, encodeFee(info.Fee))
	}
	return b, nil
}

func encodeSignerInfo(si *types.SignerInfo) ([]byte, error) {
	var b []byte
	if si == nil {
		return b, nil
	}
	if si.PublicKey != nil {
		pkAny, err := EncodePubKeyAny(si.PublicKey)
		if err != nil {
			return nil, err
		}
		b = appendMessageField(b, signerInfoPublicKey, pkAny)
	}

	var single []byte
	single = appendVarintField(single, singleMode, uint64(si.Mode))
	var modeInfo []byte
	modeInfo = appendMessageField(modeInfo, modeInfoSingle, single)
	b = appendMessageField(b, signerInfoModeInfo, modeInfo)

	b = appendVarintField(b, signerInfoSequence, si.Sequence)
	return b, nil
}

// EncodePubKeyAny wraps a public key into its Any form
func EncodePubKeyAny(pk *types.PubKey) ([]byte, error) {
	var inner []byte
	inner = appendBytesField(inner, pubKeyKey, pk.Key)
	return proto.MarshalOptions{Deterministic: true}.Marshal(&anypb.Any{
		TypeUrl: pk.TypeURL,
		Value:   inner,
	})
}

func encodeFee(fee *types.Fee) []byte {
	var b []byte
	for _, c := range fee.Amount {
		var coin []byte
		coin = appendStringField(coin, coinDenom, c.Denom)
		coin = appendStringField(coin, coinAmount, c.Amount)
		b = appendMessageField(b, feeAmount, coin)
	}
	b = appendVarintField(b, feeGasLimit, fee.GasLimit)
	b = appendStringField(b, feePayer, fee.Payer)
	b = appendStringField(b, feeGranter, fee.Granter)
	return b
}
