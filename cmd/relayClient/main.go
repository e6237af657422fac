package main

import (
	"log"
	"os"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/bundler"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/config"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/urfave/cli/v2"
)

var (
	serverURLFlag = &cli.StringFlag{
		Name:    "server-url",
		Usage:   "Relay server base URL",
		Value:   "http://localhost:8080",
		EnvVars: []string{config.EnvRelayServerURL},
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "Bech32 address of the account",
		Required: true,
	}
	senderFlag = &cli.StringFlag{
		Name:  "sender",
		Usage: "Address reported as the message sender",
	}
	chainIDFlag = &cli.StringFlag{
		Name:    "chain-id",
		Usage:   "Chain id bound into the signing document",
		Value:   bundler.DefaultChainID,
		EnvVars: []string{config.EnvRelayChainID},
	}
	accountNumberFlag = &cli.Uint64Flag{
		Name:    "account-number",
		Usage:   "Account number bound into the signing document",
		Value:   account.DefaultAccountNumber,
		EnvVars: []string{config.EnvRelayAccountNumber},
	}
	prefixFlag = &cli.StringFlag{
		Name:    "address-prefix",
		Usage:   "Bech32 address prefix",
		Value:   relaycrypto.DefaultAddressPrefix,
		EnvVars: []string{config.EnvRelayAddressPrefix},
	}
	privateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex secp256k1 private key of the account owner",
		EnvVars: []string{config.EnvRelayPrivateKey},
	}
	kmsKeyFlag = &cli.StringFlag{
		Name:    "aws-kms-key-id",
		Usage:   "AWS KMS ECC_SECG_P256K1 key id or alias of the account owner",
		EnvVars: []string{config.EnvRelayAWSKMSKeyID},
	}
	awsRegionFlag = &cli.StringFlag{
		Name:    "aws-region",
		Usage:   "AWS region for the KMS key",
		EnvVars: []string{config.EnvRelayAWSRegion},
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging",
	}
)

// envelope construction flags shared by build and relay
func buildFlags() []cli.Flag {
	return []cli.Flag{
		chainIDFlag,
		accountNumberFlag,
		privateKeyFlag,
		kmsKeyFlag,
		awsRegionFlag,
		&cli.StringSliceFlag{
			Name:  "op",
			Usage: "Operation as <type_url>=<base64 value>; repeatable, relayed in order",
		},
		&cli.StringFlag{
			Name:  "send-to",
			Usage: "Append a bank send from --from to this address",
		},
		&cli.StringFlag{
			Name:  "send-amount",
			Usage: "Amount for --send-to",
			Value: "1",
		},
		&cli.StringFlag{
			Name:  "denom",
			Usage: "Denomination for sends and fees",
			Value: bundler.DefaultDenom,
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "Sender of --send-to operations (defaults to --address)",
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "Transaction memo",
		},
		&cli.StringFlag{
			Name:  "fee-amount",
			Usage: "Fee amount in --denom (omitted when empty)",
		},
		&cli.Uint64Flag{
			Name:  "gas-limit",
			Usage: "Gas limit declared in the fee",
			Value: bundler.DefaultGasLimit,
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "relay-client",
		Usage: "Build, inspect and relay signed transactions for single-key accounts",
		Description: `A client for meta-transaction accounts.

This client can:
- Generate owner keys and derive account addresses
- Build and sign relay envelopes off-chain with a local key or AWS KMS
- Decode envelopes and show the signing-document digest
- Instantiate, relay to, query and migrate accounts on a relay server`,
		Version: "0.1.0",
		Flags:   []cli.Flag{verboseFlag},
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Generate a new secp256k1 owner key",
				Flags:  []cli.Flag{prefixFlag},
				Action: keygenCommand,
			},
			{
				Name:  "address",
				Usage: "Derive the account address controlled by a key",
				Flags: []cli.Flag{
					prefixFlag,
					privateKeyFlag,
					kmsKeyFlag,
					awsRegionFlag,
					&cli.StringFlag{
						Name:  "public-key",
						Usage: "Base64 compressed public key (instead of a signer)",
					},
				},
				Action: addressCommand,
			},
			{
				Name:  "build",
				Usage: "Sign operations into an envelope and print it as base64",
				Flags: append(buildFlags(),
					&cli.StringFlag{Name: "address", Usage: "Account address, used as the default sender of sends"},
					&cli.Uint64Flag{Name: "sequence", Usage: "Account sequence to sign for", Required: true},
					&cli.BoolFlag{Name: "execute-msg", Usage: "Print the JSON execute message instead of the raw envelope"},
				),
				Action: buildCommand,
			},
			{
				Name:  "bundle",
				Usage: "Wrap an account envelope into a MsgExecuteContract signed by the bundler's own key",
				Flags: []cli.Flag{
					chainIDFlag,
					prefixFlag,
					privateKeyFlag,
					kmsKeyFlag,
					awsRegionFlag,
					&cli.StringFlag{Name: "contract", Usage: "Account contract address", Required: true},
					&cli.StringFlag{Name: "tx", Usage: "Account envelope as base64 or a JSON byte array", Required: true},
					&cli.Uint64Flag{Name: "sequence", Usage: "Bundler account sequence", Required: true},
					&cli.Uint64Flag{Name: "account-number", Usage: "Bundler account number", Value: bundler.DefaultBundleAccountNumber},
					&cli.StringFlag{Name: "memo", Usage: "Transaction memo"},
					&cli.StringFlag{Name: "denom", Usage: "Fee denomination", Value: bundler.DefaultDenom},
					&cli.StringFlag{Name: "fee-amount", Usage: "Fee amount in --denom", Value: "50000"},
					&cli.Uint64Flag{Name: "gas-limit", Usage: "Gas limit declared in the fee", Value: bundler.DefaultBundleGasLimit},
				},
				Action: bundleCommand,
			},
			{
				Name:  "inspect",
				Usage: "Decode an envelope and print its contents and signing-document digest",
				Flags: []cli.Flag{
					chainIDFlag,
					accountNumberFlag,
					&cli.StringFlag{
						Name:     "tx",
						Usage:    "Envelope as base64 or a JSON byte array",
						Required: true,
					},
				},
				Action: inspectCommand,
			},
			{
				Name:  "instantiate",
				Usage: "Bind an account to the signer's public key",
				Flags: []cli.Flag{
					serverURLFlag,
					addressFlag,
					senderFlag,
					privateKeyFlag,
					kmsKeyFlag,
					awsRegionFlag,
					&cli.StringFlag{
						Name:  "public-key",
						Usage: "Base64 compressed public key (instead of a signer)",
					},
				},
				Action: instantiateCommand,
			},
			{
				Name:  "relay",
				Usage: "Relay an envelope, or build one at the account's current sequence and relay it",
				Flags: append(buildFlags(),
					serverURLFlag,
					addressFlag,
					senderFlag,
					&cli.StringFlag{Name: "tx", Usage: "Prebuilt envelope as base64 or a JSON byte array"},
				),
				Action: relayCommand,
			},
			{
				Name:   "query",
				Usage:  "Show an account's public key and sequence",
				Flags:  []cli.Flag{serverURLFlag, addressFlag},
				Action: queryCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Migrate an account to the server's contract version",
				Flags:  []cli.Flag{serverURLFlag, addressFlag, senderFlag},
				Action: migrateCommand,
			},
			{
				Name:   "accounts",
				Usage:  "List accounts known to the server",
				Flags:  []cli.Flag{serverURLFlag},
				Action: accountsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
