// Package host adapts the relay engine to contract-style entry points
// (instantiate, execute, migrate, query). It owns the commit point: the
// engine's result and the relayed operations are persisted together inside
// one persistence transaction, or not at all.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"go.uber.org/zap"
)

type Contract struct {
	engine *account.Engine
	store  persistence.IAccountPersistence
	logger *zap.Logger
	locks  *keyedMutex
}

func NewContract(engine *account.Engine, store persistence.IAccountPersistence, logger *zap.Logger) *Contract {
	return &Contract{
		engine: engine,
		store:  store,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

// Handle dispatches a request to its entry point. Query responses are returned
// as the response's Data.
func (c *Contract) Handle(ctx context.Context, env Env, info MessageInfo, req Request) (*Response, error) {
	set := 0
	for _, isSet := range []bool{req.Instantiate != nil, req.Execute != nil, req.Migrate != nil, req.Query != nil} {
		if isSet {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one entry point must be set, got %d", ErrInvalidRequest, set)
	}

	switch {
	case req.Instantiate != nil:
		return c.Instantiate(ctx, env, info, req.Instantiate)
	case req.Execute != nil:
		return c.Execute(ctx, env, info, req.Execute)
	case req.Migrate != nil:
		return c.Migrate(ctx, env, req.Migrate)
	default:
		data, err := c.Query(ctx, env, req.Query)
		if err != nil {
			return nil, err
		}
		return &Response{Data: data}, nil
	}
}

// Instantiate binds the account at env.ContractAddress to a public key
func (c *Contract) Instantiate(ctx context.Context, env Env, info MessageInfo, msg *types.InstantiateMsg) (*Response, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: instantiate message is required", ErrInvalidRequest)
	}

	release := c.locks.Lock(env.ContractAddress)
	defer release()

	err := c.store.Update(ctx, env.ContractAddress, func(txn persistence.IAccountTxn) error {
		existing, err := txn.SignerRecord()
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyInitialized, env.ContractAddress)
		}

		record, err := c.engine.Initialize(msg.TypeURL, msg.Key)
		if err != nil {
			return err
		}

		if err := txn.SetContractInfo(&types.ContractInfo{Contract: ContractName, Version: ContractVersion}); err != nil {
			return err
		}
		return txn.SetSignerRecord(record)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Sugar().Infow("Account instantiated",
		"account", env.ContractAddress,
		"owner", info.Sender,
		"key_type", msg.TypeURL,
	)

	resp := &Response{}
	resp.addAttribute("method", "instantiate").addAttribute("owner", info.Sender)
	return resp, nil
}

// Execute relays a signed inner transaction. The sequence increment is
// committed only if the whole call succeeds.
func (c *Contract) Execute(ctx context.Context, env Env, info MessageInfo, msg *types.ExecuteMsg) (*Response, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	if msg == nil || msg.SendTx == nil {
		return nil, fmt.Errorf("%w: send_tx is required", ErrInvalidRequest)
	}

	release := c.locks.Lock(env.ContractAddress)
	defer release()

	var result *account.RelayResult
	err := c.store.Update(ctx, env.ContractAddress, func(txn persistence.IAccountTxn) error {
		result = nil

		record, err := txn.SignerRecord()
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, env.ContractAddress)
		}

		r, err := c.engine.Relay(account.ExecutionContext{ChainID: env.ChainID}, record, msg.SendTx.Tx)
		if err != nil {
			return err
		}
		if err := txn.SetSignerRecord(r.Record); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		c.logger.Sugar().Infow("Relay rejected",
			"account", env.ContractAddress,
			"relayer", info.Sender,
			"error", err,
		)
		return nil, err
	}

	c.logger.Sugar().Infow("Relay committed",
		"account", env.ContractAddress,
		"relayer", info.Sender,
		"sequence", result.Sequence,
		"operations", len(result.Operations),
	)

	resp := &Response{Messages: make([]*SubMsg, 0, len(result.Operations))}
	resp.addAttribute("action", "send_tx").addAttribute("sequence", strconv.FormatUint(result.Sequence, 10))
	for _, op := range result.Operations {
		resp.Messages = append(resp.Messages, &SubMsg{
			Sender:  env.ContractAddress,
			TypeURL: op.TypeURL,
			Value:   op.Value,
		})
	}
	return resp, nil
}

// Migrate moves an existing account to the current contract version
func (c *Contract) Migrate(ctx context.Context, env Env, msg *types.MigrateMsg) (*Response, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: migrate message is required", ErrInvalidRequest)
	}

	release := c.locks.Lock(env.ContractAddress)
	defer release()

	var fromVersion string
	err := c.store.Update(ctx, env.ContractAddress, func(txn persistence.IAccountTxn) error {
		info, err := txn.ContractInfo()
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, env.ContractAddress)
		}
		if info.Contract != ContractName {
			return fmt.Errorf("%w: stored %q, expected %q", ErrContractMismatch, info.Contract, ContractName)
		}
		fromVersion = info.Version
		return txn.SetContractInfo(&types.ContractInfo{Contract: ContractName, Version: ContractVersion})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Sugar().Infow("Account migrated", "account", env.ContractAddress, "from_version", fromVersion, "to_version", ContractVersion)

	resp := &Response{}
	resp.addAttribute("method", "migrate").
		addAttribute("from_version", fromVersion).
		addAttribute("to_version", ContractVersion)
	return resp, nil
}

// Query answers read-only requests with JSON
func (c *Contract) Query(ctx context.Context, env Env, msg *types.QueryMsg) ([]byte, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	if msg == nil || msg.SignerInfo == nil {
		return nil, fmt.Errorf("%w: signer_info is required", ErrInvalidRequest)
	}

	info, err := c.SignerInfo(ctx, env.ContractAddress)
	if err != nil {
		return nil, err
	}
	return json.Marshal(info)
}

// SignerInfo returns the account's public key and current sequence
func (c *Contract) SignerInfo(ctx context.Context, address string) (*types.SignerInfoResponse, error) {
	record, err := c.store.LoadSignerRecord(ctx, address)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	info := c.engine.QuerySignerInfo(record)
	return &info, nil
}

// Accounts lists every instantiated account
func (c *Contract) Accounts(ctx context.Context) ([]string, error) {
	return c.store.ListAccounts(ctx)
}

func validateEnv(env Env) error {
	if env.ContractAddress == "" {
		return fmt.Errorf("%w: contract address is required", ErrInvalidRequest)
	}
	return nil
}
