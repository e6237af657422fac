package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of IAccountPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Values are kept in their serialized form, so callers never share memory
// with the store. Update holds the write lock for the whole transaction.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Raw key/value storage using the shared key layout
	data map[string][]byte

	// Accounts with a signer record
	accounts map[string]struct{}

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL ACCOUNT STATE WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set RELAY_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		data:     make(map[string][]byte),
		accounts: make(map[string]struct{}),
	}
}

// get returns a copy of the stored value; callers must hold the lock
func (m *MemoryPersistence) get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

// LoadSignerRecord retrieves an account's signer record.
func (m *MemoryPersistence) LoadSignerRecord(_ context.Context, account string) (*types.SignerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, _ := m.get(persistence.SignerInfoKey(account))
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalSignerRecord(data)
}

// LoadContractInfo retrieves an account's contract info.
func (m *MemoryPersistence) LoadContractInfo(_ context.Context, account string) (*types.ContractInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, _ := m.get(persistence.ContractInfoKey(account))
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalContractInfo(data)
}

// ListAccounts returns all initialized accounts sorted by address.
func (m *MemoryPersistence) ListAccounts(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	accounts := make([]string, 0, len(m.accounts))
	for a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts, nil
}

// Update runs fn against a staged view of the account and applies its writes on success.
func (m *MemoryPersistence) Update(_ context.Context, account string, fn func(txn persistence.IAccountTxn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	txn := persistence.NewStagedTxn(account, m.get)
	if err := fn(txn); err != nil {
		return err
	}

	for _, kv := range txn.Writes() {
		m.data[kv.Key] = append([]byte{}, kv.Value...)
		if a, ok := persistence.AccountFromSignerInfoKey(kv.Key); ok {
			m.accounts[a] = struct{}{}
		}
	}
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
