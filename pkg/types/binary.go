package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Binary is a byte slice that marshals to standard base64 JSON.
//
// Unmarshaling additionally accepts a JSON array of byte values, which is how
// serde encodes Vec<u8>; bundlers built on that encoding submit `"tx": [10, 3, ...]`.
type Binary []byte

// MarshalJSON encodes the bytes as a base64 string
func (b Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

// UnmarshalJSON decodes either a base64 string or an array of byte values
func (b *Binary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var values []int
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("invalid byte array: %w", err)
		}
		out := make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return fmt.Errorf("byte value out of range at index %d: %d", i, v)
			}
			out[i] = byte(v)
		}
		*b = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("binary must be a base64 string or byte array: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid base64: %w", err)
	}
	*b = decoded
	return nil
}

// String returns the base64 form
func (b Binary) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// ByteArray is a byte slice that marshals to a JSON array of byte values, the
// encoding contract messages use for raw bytes. It unmarshals like Binary.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	values := make([]int, len(b))
	for i, v := range b {
		values[i] = int(v)
	}
	return json.Marshal(values)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var bin Binary
	if err := bin.UnmarshalJSON(data); err != nil {
		return err
	}
	*b = ByteArray(bin)
	return nil
}
