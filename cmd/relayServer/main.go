package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/config"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	badgerPersistence "github.com/Layr-Labs/eigenx-relay-go/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence/memory"
	redisPersistence "github.com/Layr-Labs/eigenx-relay-go/pkg/persistence/redis"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "relay-server",
		Usage: "Meta-transaction account relay server",
		Description: `Serves single-key smart accounts over HTTP.

Each account is bound to one secp256k1 public key at instantiation. Relayers
submit transactions signed off-chain by the key holder; the server verifies the
signature over the direct-mode signing document, enforces the account's
sequence and relays the contained operations in order.`,
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file; flags and env vars override its values",
				EnvVars: []string{config.EnvRelayConfigFile},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvRelayPort},
			},
			&cli.StringFlag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Value:   config.DefaultChainID,
				Usage:   "Chain id bound into signing documents",
				EnvVars: []string{config.EnvRelayChainID},
			},
			&cli.Uint64Flag{
				Name:    "account-number",
				Value:   account.DefaultAccountNumber,
				Usage:   "Account number bound into signing documents",
				EnvVars: []string{config.EnvRelayAccountNumber},
			},
			&cli.StringFlag{
				Name:    "address-prefix",
				Usage:   "Bech32 prefix accepted for account addresses",
				EnvVars: []string{config.EnvRelayAddressPrefix},
			},
			&cli.BoolFlag{
				Name:    "skip-signature-verification",
				Usage:   "Accept any envelope with a matching sequence (testing only)",
				EnvVars: []string{config.EnvRelaySkipSignatureVerification},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Account store: memory, badger or redis",
				EnvVars: []string{config.EnvRelayPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvRelayDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis host:port",
				EnvVars: []string{config.EnvRelayRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvRelayRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvRelayRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvRelayRedisKeyPrefix},
			},
			&cli.Float64Flag{
				Name:    "rate-limit-rps",
				Usage:   "Requests per second allowed per client on /accounts (0 disables)",
				EnvVars: []string{config.EnvRelayRateLimitRPS},
			},
			&cli.IntFlag{
				Name:    "rate-limit-burst",
				Usage:   "Burst size per client",
				EnvVars: []string{config.EnvRelayRateLimitBurst},
			},
			&cli.StringSliceFlag{
				Name:    "trusted-proxy",
				Usage:   "Peer IP allowed to set X-Forwarded-For / X-Real-IP (repeatable)",
				EnvVars: []string{config.EnvRelayTrustedProxies},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvRelayDebug},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write JSON logs to this rotating file",
				EnvVars: []string{config.EnvRelayLogFile},
			},
		},
		Action: runRelayServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runRelayServer(c *cli.Context) error {
	cfg, err := parseRelayConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{
		Debug:      cfg.Log.Debug,
		LogFile:    cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	store, err := newPersistence(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close persistence", "error", err)
		}
	}()

	engine := account.NewEngine(&account.Config{
		AccountNumber:             cfg.AccountNumber,
		SkipSignatureVerification: cfg.SkipSignatureVerification,
	}, l)
	contract := host.NewContract(engine, store, l)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(metrics.DefaultNamespace, registry)

	srv := server.NewServer(&server.Config{
		Port:          cfg.Port,
		ChainID:       cfg.ChainID,
		AddressPrefix: cfg.AddressPrefix,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
		},
	}, contract, store, m, l)

	l.Sugar().Infow("Relay server configuration",
		"port", cfg.Port,
		"chain_id", cfg.ChainID,
		"account_number", cfg.AccountNumber,
		"address_prefix", cfg.AddressPrefix,
		"persistence", cfg.Persistence.Type,
		"rate_limit_rps", cfg.RateLimit.RequestsPerSecond,
	)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Sugar().Info("Shutting down relay server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// parseRelayConfig layers defaults, the optional config file, then flags and
// env vars that were explicitly set.
func parseRelayConfig(c *cli.Context) (*config.RelayServerConfig, error) {
	cfg := config.DefaultRelayServerConfig()
	if path := c.String("config"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("chain-id") {
		cfg.ChainID = c.String("chain-id")
	}
	if c.IsSet("account-number") {
		cfg.AccountNumber = c.Uint64("account-number")
	}
	if c.IsSet("address-prefix") {
		cfg.AddressPrefix = c.String("address-prefix")
	}
	if c.IsSet("skip-signature-verification") {
		cfg.SkipSignatureVerification = c.Bool("skip-signature-verification")
	}
	if c.IsSet("persistence-type") {
		pt, err := config.ParsePersistenceType(c.String("persistence-type"))
		if err != nil {
			return nil, err
		}
		cfg.Persistence.Type = pt
	}
	if c.IsSet("data-path") {
		cfg.Persistence.DataPath = c.String("data-path")
	}
	if c.IsSet("redis-address") {
		cfg.Persistence.Redis.Address = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Persistence.Redis.Password = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.Persistence.Redis.DB = c.Int("redis-db")
	}
	if c.IsSet("redis-key-prefix") {
		cfg.Persistence.Redis.KeyPrefix = c.String("redis-key-prefix")
	}
	if c.IsSet("rate-limit-rps") {
		cfg.RateLimit.RequestsPerSecond = c.Float64("rate-limit-rps")
	}
	if c.IsSet("rate-limit-burst") {
		cfg.RateLimit.Burst = c.Int("rate-limit-burst")
	}
	if c.IsSet("trusted-proxy") {
		cfg.RateLimit.TrustedProxies = c.StringSlice("trusted-proxy")
	}
	if c.IsSet("verbose") {
		cfg.Log.Debug = c.Bool("verbose")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	return cfg, nil
}

func newPersistence(cfg *config.RelayServerConfig, l *zap.Logger) (persistence.IAccountPersistence, error) {
	switch cfg.Persistence.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		return badgerPersistence.NewBadgerPersistence(cfg.Persistence.DataPath, l)
	case config.PersistenceTypeRedis:
		return redisPersistence.NewRedisPersistence(&redisPersistence.RedisConfig{
			Address:   cfg.Persistence.Redis.Address,
			Password:  cfg.Persistence.Redis.Password,
			DB:        cfg.Persistence.Redis.DB,
			KeyPrefix: cfg.Persistence.Redis.KeyPrefix,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Persistence.Type)
	}
}
