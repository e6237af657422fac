package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// Key layout shared by every backend
const (
	KeyPrefixAccount     = "account:"
	KeySuffixSignerInfo  = ":signer_info"
	KeySuffixContract    = ":contract_info"
	KeySchemaVersion     = "metadata:schema_version"
	CurrentSchemaVersion = "v1"
)

var (
	// ErrConflict is returned by Update when another writer changed the account concurrently
	ErrConflict = errors.New("concurrent modification of account")

	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("persistence layer is closed")
)

// SignerInfoKey is the storage key of an account's signer record
func SignerInfoKey(account string) string {
	return KeyPrefixAccount + account + KeySuffixSignerInfo
}

// ContractInfoKey is the storage key of an account's contract info
func ContractInfoKey(account string) string {
	return KeyPrefixAccount + account + KeySuffixContract
}

// AccountFromSignerInfoKey extracts the account address from a signer record key
func AccountFromSignerInfoKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefixAccount) || !strings.HasSuffix(key, KeySuffixSignerInfo) {
		return "", false
	}
	account := strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefixAccount), KeySuffixSignerInfo)
	if account == "" {
		return "", false
	}
	return account, true
}

// StagedTxn implements IAccountTxn over a raw key/value getter. Writes are
// buffered in memory; the backend applies Writes() on commit.
type StagedTxn struct {
	account string
	get     func(key string) ([]byte, error)
	writes  map[string][]byte
	order   []string
}

// NewStagedTxn creates a transaction for account. get returns nil, nil for missing keys.
func NewStagedTxn(account string, get func(key string) ([]byte, error)) *StagedTxn {
	return &StagedTxn{
		account: account,
		get:     get,
		writes:  make(map[string][]byte),
	}
}

// Writes returns staged key/value pairs in the order they were first written
func (s *StagedTxn) Writes() []KV {
	out := make([]KV, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, KV{Key: k, Value: s.writes[k]})
	}
	return out
}

// KV is a staged write
type KV struct {
	Key   string
	Value []byte
}

func (s *StagedTxn) read(key string) ([]byte, error) {
	if v, ok := s.writes[key]; ok {
		return v, nil
	}
	return s.get(key)
}

func (s *StagedTxn) stage(key string, value []byte) {
	if _, ok := s.writes[key]; !ok {
		s.order = append(s.order, key)
	}
	s.writes[key] = value
}

func (s *StagedTxn) SignerRecord() (*types.SignerRecord, error) {
	data, err := s.read(SignerInfoKey(s.account))
	if err != nil {
		return nil, fmt.Errorf("failed to load SignerRecord: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return UnmarshalSignerRecord(data)
}

func (s *StagedTxn) SetSignerRecord(record *types.SignerRecord) error {
	data, err := MarshalSignerRecord(record)
	if err != nil {
		return err
	}
	s.stage(SignerInfoKey(s.account), data)
	return nil
}

func (s *StagedTxn) ContractInfo() (*types.ContractInfo, error) {
	data, err := s.read(ContractInfoKey(s.account))
	if err != nil {
		return nil, fmt.Errorf("failed to load ContractInfo: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return UnmarshalContractInfo(data)
}

func (s *StagedTxn) SetContractInfo(info *types.ContractInfo) error {
	data, err := MarshalContractInfo(info)
	if err != nil {
		return err
	}
	s.stage(ContractInfoKey(s.account), data)
	return nil
}
