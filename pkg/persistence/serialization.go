package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// MarshalSignerRecord serializes a SignerRecord to JSON bytes.
// The public key is encoded as base64.
func MarshalSignerRecord(record *types.SignerRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil SignerRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SignerRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSignerRecord deserializes a SignerRecord from JSON bytes.
func UnmarshalSignerRecord(data []byte) (*types.SignerRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record types.SignerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to SignerRecord: %w", err)
	}

	return &record, nil
}

// MarshalContractInfo serializes ContractInfo to JSON bytes.
func MarshalContractInfo(info *types.ContractInfo) ([]byte, error) {
	if info == nil {
		return nil, fmt.Errorf("cannot marshal nil ContractInfo")
	}

	return json.Marshal(info)
}

// UnmarshalContractInfo deserializes ContractInfo from JSON bytes.
func UnmarshalContractInfo(data []byte) (*types.ContractInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var info types.ContractInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ContractInfo: %w", err)
	}

	return &info, nil
}
