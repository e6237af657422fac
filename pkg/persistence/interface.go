package persistence

import (
	"context"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// IAccountPersistence stores the per-account signer records and contract info.
// All implementations must be thread-safe.
//
// Writes only happen through Update, which gives the caller a transaction
// scoped to a single account. A transaction's writes become visible if and
// only if the callback returns nil.
type IAccountPersistence interface {
	// LoadSignerRecord returns the account's signer record.
	// Returns nil if the account has not been initialized, error only on storage failure.
	LoadSignerRecord(ctx context.Context, account string) (*types.SignerRecord, error)

	// LoadContractInfo returns the account's contract info, or nil if unset.
	LoadContractInfo(ctx context.Context, account string) (*types.ContractInfo, error)

	// ListAccounts returns the addresses of every account with a signer record, sorted.
	ListAccounts(ctx context.Context) ([]string, error)

	// Update runs fn in a transaction scoped to one account. Staged writes are
	// committed when fn returns nil and discarded otherwise. fn's error is
	// returned unchanged. Implementations may return ErrConflict when a
	// concurrent writer modified the account during the transaction.
	Update(ctx context.Context, account string, fn func(txn IAccountTxn) error) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}

// IAccountTxn is a read/write view of one account inside Update.
// Reads observe the transaction's own staged writes.
type IAccountTxn interface {
	SignerRecord() (*types.SignerRecord, error)
	SetSignerRecord(record *types.SignerRecord) error
	ContractInfo() (*types.ContractInfo, error)
	SetContractInfo(info *types.ContractInfo) error
}
