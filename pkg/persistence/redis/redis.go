package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Redis has no native prefix iteration, so initialized accounts are tracked in a set
	keySetAccounts = "accounts:index"

	// Optimistic transactions retry this many times before reporting ErrConflict
	maxTxRetries = 3
)

// RedisPersistence is a production-ready persistence implementation using Redis.
// Provides durable, distributed storage suitable for cloud-native deployments.
// Update uses WATCH/MULTI/EXEC on the account's keys.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional prefix for all keys (for multi-tenant setups),
	// e.g. "relay:" results in keys like "relay:account:<addr>:signer_info".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(persistence.KeySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, persistence.CurrentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != persistence.CurrentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, persistence.CurrentSchemaVersion)
	}

	return nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisPersistence) getter(ctx context.Context, cmd stringGetter) func(key string) ([]byte, error) {
	return func(key string) ([]byte, error) {
		data, err := cmd.Get(ctx, r.prefixKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	}
}

// LoadSignerRecord retrieves an account's signer record
func (r *RedisPersistence) LoadSignerRecord(ctx context.Context, account string) (*types.SignerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	data, err := r.getter(ctx, r.client)(persistence.SignerInfoKey(account))
	if err != nil {
		return nil, fmt.Errorf("failed to load SignerRecord: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	record, err := persistence.UnmarshalSignerRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal SignerRecord: %w", err)
	}
	return record, nil
}

// LoadContractInfo retrieves an account's contract info
func (r *RedisPersistence) LoadContractInfo(ctx context.Context, account string) (*types.ContractInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	data, err := r.getter(ctx, r.client)(persistence.ContractInfoKey(account))
	if err != nil {
		return nil, fmt.Errorf("failed to load ContractInfo: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	info, err := persistence.UnmarshalContractInfo(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ContractInfo: %w", err)
	}
	return info, nil
}

// ListAccounts returns every account with a signer record, sorted
func (r *RedisPersistence) ListAccounts(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	accounts, err := r.client.SMembers(ctx, r.prefixKey(keySetAccounts)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	sort.Strings(accounts)
	return accounts, nil
}

// Update runs fn with the account's keys under WATCH. Writes are applied in a
// MULTI/EXEC block; if a watched key changed in the meantime the whole
// transaction, including fn, is retried.
func (r *RedisPersistence) Update(ctx context.Context, account string, fn func(txn persistence.IAccountTxn) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	signerKey := r.prefixKey(persistence.SignerInfoKey(account))
	contractKey := r.prefixKey(persistence.ContractInfoKey(account))

	txf := func(tx *redis.Tx) error {
		staged := persistence.NewStagedTxn(account, r.getter(ctx, tx))
		if err := fn(staged); err != nil {
			return err
		}

		writes := staged.Writes()
		if len(writes) == 0 {
			return nil
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, kv := range writes {
				pipe.Set(ctx, r.prefixKey(kv.Key), kv.Value, 0)
				if _, ok := persistence.AccountFromSignerInfoKey(kv.Key); ok {
					pipe.SAdd(ctx, r.prefixKey(keySetAccounts), account)
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, signerKey, contractKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.Sugar().Debugw("Redis transaction conflict, retrying", "account", account, "attempt", i+1)
	}
	return persistence.ErrConflict
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(persistence.KeySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
