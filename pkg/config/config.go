package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strings"

	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for relay server configuration
const (
	EnvRelayConfigFile                = "RELAY_CONFIG_FILE"
	EnvRelayPort                      = "RELAY_PORT"
	EnvRelayChainID                   = "RELAY_CHAIN_ID"
	EnvRelayAccountNumber             = "RELAY_ACCOUNT_NUMBER"
	EnvRelayAddressPrefix             = "RELAY_ADDRESS_PREFIX"
	EnvRelaySkipSignatureVerification = "RELAY_SKIP_SIGNATURE_VERIFICATION"
	EnvRelayPersistenceType           = "RELAY_PERSISTENCE_TYPE"
	EnvRelayDataPath                  = "RELAY_DATA_PATH"
	EnvRelayRedisAddress              = "RELAY_REDIS_ADDRESS"
	EnvRelayRedisPassword             = "RELAY_REDIS_PASSWORD"
	EnvRelayRedisDB                   = "RELAY_REDIS_DB"
	EnvRelayRedisKeyPrefix            = "RELAY_REDIS_KEY_PREFIX"
	EnvRelayRateLimitRPS              = "RELAY_RATE_LIMIT_RPS"
	EnvRelayRateLimitBurst            = "RELAY_RATE_LIMIT_BURST"
	EnvRelayTrustedProxies            = "RELAY_TRUSTED_PROXIES"
	EnvRelayDebug                     = "RELAY_DEBUG"
	EnvRelayLogFile                   = "RELAY_LOG_FILE"
)

// Environment variable names for the relay client
const (
	EnvRelayServerURL   = "RELAY_SERVER_URL"
	EnvRelayPrivateKey  = "RELAY_PRIVATE_KEY"
	EnvRelayAWSKMSKeyID = "RELAY_AWS_KMS_KEY_ID"
	EnvRelayAWSRegion   = "RELAY_AWS_REGION"
)

const (
	DefaultPort    = 8080
	DefaultChainID = "simd-testing"
	DefaultDataDir = "./relay-data"
)

type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

func (p PersistenceType) String() string {
	return string(p)
}

func ParsePersistenceType(s string) (PersistenceType, error) {
	switch PersistenceType(strings.ToLower(s)) {
	case PersistenceTypeMemory:
		return PersistenceTypeMemory, nil
	case PersistenceTypeBadger:
		return PersistenceTypeBadger, nil
	case PersistenceTypeRedis:
		return PersistenceTypeRedis, nil
	default:
		return "", fmt.Errorf("unsupported persistence type: %s", s)
	}
}

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`
	Redis    RedisConfig     `json:"redis" yaml:"redis"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`

	// TrustedProxies are peer IPs whose forwarding headers identify the client
	TrustedProxies []string `json:"trustedProxies" yaml:"trustedProxies"`
}

type LogConfig struct {
	Debug      bool   `json:"debug" yaml:"debug"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// RelayServerConfig represents the complete configuration for a relay server
type RelayServerConfig struct {
	Port int `json:"port" yaml:"port"`

	// ChainID and AccountNumber are bound into every signing document and
	// must match what signers use.
	ChainID       string `json:"chainId" yaml:"chainId"`
	AccountNumber uint64 `json:"accountNumber" yaml:"accountNumber"`
	AddressPrefix string `json:"addressPrefix" yaml:"addressPrefix"`

	SkipSignatureVerification bool `json:"skipSignatureVerification" yaml:"skipSignatureVerification"`

	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
	RateLimit   RateLimitConfig   `json:"rateLimit" yaml:"rateLimit"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

func DefaultRelayServerConfig() *RelayServerConfig {
	return &RelayServerConfig{
		Port:          DefaultPort,
		ChainID:       DefaultChainID,
		AddressPrefix: relaycrypto.DefaultAddressPrefix,
		Persistence: PersistenceConfig{
			Type:     PersistenceTypeBadger,
			DataPath: DefaultDataDir,
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "relay:",
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadFile overlays a YAML file onto cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *RelayServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the relay server configuration
func (c *RelayServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}
	if c.ChainID == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	}
	if c.AddressPrefix == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("addressPrefix"), "addressPrefix is required"))
	}

	persistencePath := field.NewPath("persistence")
	switch c.Persistence.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.Persistence.DataPath == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if c.Persistence.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("redis", "address"), "address is required for redis persistence"))
		}
		if c.Persistence.Redis.DB < 0 || c.Persistence.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(persistencePath.Child("redis", "db"), c.Persistence.Redis.DB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(persistencePath.Child("type"), c.Persistence.Type,
			[]string{PersistenceTypeMemory.String(), PersistenceTypeBadger.String(), PersistenceTypeRedis.String()}))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit", "requestsPerSecond"), c.RateLimit.RequestsPerSecond, "must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit", "burst"), c.RateLimit.Burst, "must be at least 1 when rate limiting is enabled"))
	}
	for i, proxy := range c.RateLimit.TrustedProxies {
		if net.ParseIP(strings.TrimSpace(proxy)) == nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit", "trustedProxies").Index(i), proxy, "must be an IP address"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// RelayClientConfig configures relayClient commands that build or submit envelopes
type RelayClientConfig struct {
	ServerURL     string              `json:"serverUrl" yaml:"serverUrl"`
	ChainID       string              `json:"chainId" yaml:"chainId"`
	AccountNumber uint64              `json:"accountNumber" yaml:"accountNumber"`
	Signer        signer.SignerConfig `json:"signer" yaml:"signer"`
}

func (c *RelayClientConfig) Validate() error {
	var allErrors field.ErrorList
	if c.ChainID == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	}
	signerPath := field.NewPath("signer")
	switch {
	case c.Signer.PrivateKey == "" && c.Signer.AWSKMSKeyID == "":
		allErrors = append(allErrors, field.Required(signerPath, "one of privateKey or awsKmsKeyId is required"))
	case c.Signer.PrivateKey != "" && c.Signer.AWSKMSKeyID != "":
		allErrors = append(allErrors, field.Forbidden(signerPath.Child("awsKmsKeyId"), "cannot be combined with privateKey"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
