package main

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/accountclient"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/bundler"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/config"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/privateKeySigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newSigner(c *cli.Context, l *zap.Logger) (signer.ISigner, error) {
	cfg := &config.RelayClientConfig{
		ChainID:       c.String("chain-id"),
		AccountNumber: c.Uint64("account-number"),
		Signer: signer.SignerConfig{
			PrivateKey:  c.String("private-key"),
			AWSKMSKeyID: c.String("aws-kms-key-id"),
			AWSRegion:   c.String("aws-region"),
		},
	}
	if cfg.ChainID == "" {
		// address and instantiate do not sign, so the chain id is irrelevant there
		cfg.ChainID = bundler.DefaultChainID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return signer.NewSigner(c.Context, &cfg.Signer, l)
}

// resolvePublicKey takes --public-key when given, otherwise the signer's key
func resolvePublicKey(c *cli.Context, l *zap.Logger) (types.PubKey, error) {
	if raw := c.String("public-key"); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return types.PubKey{}, fmt.Errorf("invalid public key: %w", err)
		}
		pk := types.PubKey{TypeURL: types.Secp256k1PubKeyTypeURL, Key: key}
		if err := relaycrypto.ValidatePublicKey(pk); err != nil {
			return types.PubKey{}, err
		}
		return pk, nil
	}
	s, err := newSigner(c, l)
	if err != nil {
		return types.PubKey{}, err
	}
	return s.PublicKey(c.Context)
}

// parseTx accepts base64 or a JSON array of byte values
func parseTx(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	var b types.Binary
	raw := input
	if !strings.HasPrefix(input, "[") {
		quoted, err := json.Marshal(input)
		if err != nil {
			return nil, err
		}
		raw = string(quoted)
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("invalid tx: %w", err)
	}
	return b, nil
}

func parseOperations(c *cli.Context, account string) ([]*types.OperationDescriptor, error) {
	var ops []*types.OperationDescriptor
	for _, spec := range c.StringSlice("op") {
		typeURL, value, ok := strings.Cut(spec, "=")
		if !ok || typeURL == "" {
			return nil, fmt.Errorf("invalid --op %q, expected <type_url>=<base64 value>", spec)
		}
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --op value for %s: %w", typeURL, err)
		}
		ops = append(ops, &types.OperationDescriptor{TypeURL: typeURL, Value: decoded})
	}

	if to := c.String("send-to"); to != "" {
		from := c.String("from")
		if from == "" {
			from = account
		}
		if from == "" {
			return nil, fmt.Errorf("--send-to requires --from or --address")
		}
		ops = append(ops, bundler.MsgSendOperation(from, to, []types.Coin{{
			Denom:  c.String("denom"),
			Amount: c.String("send-amount"),
		}}))
	}
	return ops, nil
}

func newBuilder(c *cli.Context) *bundler.Builder {
	b := bundler.NewBuilder(c.String("chain-id"), c.Uint64("account-number"))
	b.Memo = c.String("memo")
	b.GasLimit = c.Uint64("gas-limit")
	if amount := c.String("fee-amount"); amount != "" {
		b.Fee = []types.Coin{{Denom: c.String("denom"), Amount: amount}}
	}
	return b
}

func newClient(c *cli.Context, l *zap.Logger) (*accountclient.Client, error) {
	return accountclient.NewClient(&accountclient.ClientConfig{
		ServerURL: c.String("server-url"),
		Logger:    l,
	})
}

func keygenCommand(c *cli.Context) error {
	s, err := privateKeySigner.GenerateKey()
	if err != nil {
		return err
	}
	pub, err := s.PublicKey(c.Context)
	if err != nil {
		return err
	}
	address, err := relaycrypto.AccountAddress(c.String("address-prefix"), pub)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"private_key": s.PrivateKeyHex(),
		"public_key":  base64.StdEncoding.EncodeToString(pub.Key),
		"type_url":    pub.TypeURL,
		"address":     address,
	})
}

func addressCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	pub, err := resolvePublicKey(c, l)
	if err != nil {
		return err
	}
	address, err := relaycrypto.AccountAddress(c.String("address-prefix"), pub)
	if err != nil {
		return err
	}
	fmt.Println(address)
	return nil
}

func buildCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	s, err := newSigner(c, l)
	if err != nil {
		return err
	}
	ops, err := parseOperations(c, c.String("address"))
	if err != nil {
		return err
	}

	built, err := newBuilder(c).Build(c.Context, s, c.Uint64("sequence"), ops)
	if err != nil {
		return err
	}
	l.Sugar().Debugw("Built envelope",
		"sequence", c.Uint64("sequence"),
		"operations", len(ops),
		"sign_doc_digest", hex.EncodeToString(built.SignDocDigest[:]),
	)

	if c.Bool("execute-msg") {
		return printJSON(bundler.NewExecuteMsg(built.TxRaw))
	}
	fmt.Println(base64.StdEncoding.EncodeToString(built.TxRaw))
	return nil
}

func bundleCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	s, err := newSigner(c, l)
	if err != nil {
		return err
	}
	inner, err := parseTx(c.String("tx"))
	if err != nil {
		return err
	}
	if _, err := envelope.DecodeTxRaw(inner); err != nil {
		return fmt.Errorf("--tx is not an account envelope: %w", err)
	}

	pub, err := s.PublicKey(c.Context)
	if err != nil {
		return err
	}
	sender, err := relaycrypto.AccountAddress(c.String("address-prefix"), pub)
	if err != nil {
		return err
	}
	op, err := bundler.ContractCallOperation(sender, c.String("contract"), inner)
	if err != nil {
		return err
	}

	built, err := newBuilder(c).Build(c.Context, s, c.Uint64("sequence"), []*types.OperationDescriptor{op})
	if err != nil {
		return err
	}
	l.Sugar().Debugw("Built bundle",
		"sender", sender,
		"contract", c.String("contract"),
		"sequence", c.Uint64("sequence"),
	)
	fmt.Println(base64.StdEncoding.EncodeToString(built.TxRaw))
	return nil
}

type inspectedOperation struct {
	TypeURL string `json:"type_url"`
	Value   string `json:"value"`
}

type inspectedSigner struct {
	TypeURL   string `json:"type_url,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
	Mode      int32  `json:"mode"`
	Sequence  uint64 `json:"sequence"`
}

type inspection struct {
	Memo          string               `json:"memo"`
	TimeoutHeight uint64               `json:"timeout_height"`
	Operations    []inspectedOperation `json:"operations"`
	Signers       []inspectedSigner    `json:"signers"`
	Fee           *types.Fee           `json:"fee,omitempty"`
	Signatures    []string             `json:"signatures"`
	ChainID       string               `json:"chain_id"`
	AccountNumber uint64               `json:"account_number"`
	SignDocDigest string               `json:"sign_doc_digest"`
	TxHash        string               `json:"tx_hash"`
}

func inspectCommand(c *cli.Context) error {
	tx, err := parseTx(c.String("tx"))
	if err != nil {
		return err
	}

	env, err := envelope.DecodeTxRaw(tx)
	if err != nil {
		return err
	}
	body, err := envelope.DecodeTxBody(env.BodyBytes)
	if err != nil {
		return err
	}
	auth, err := envelope.DecodeAuthInfo(env.AuthInfoBytes)
	if err != nil {
		return err
	}

	doc := envelope.NewSigningDocument(env.BodyBytes, env.AuthInfoBytes, c.String("chain-id"), c.Uint64("account-number"))
	digest := relaycrypto.SignDocDigest(doc)
	txHash := sha256.Sum256(tx)

	out := inspection{
		Memo:          body.Memo,
		TimeoutHeight: body.TimeoutHeight,
		Fee:           auth.Fee,
		ChainID:       doc.ChainID,
		AccountNumber: doc.AccountNumber,
		SignDocDigest: hex.EncodeToString(digest[:]),
		TxHash:        strings.ToUpper(hex.EncodeToString(txHash[:])),
	}
	for _, op := range body.Messages {
		out.Operations = append(out.Operations, inspectedOperation{
			TypeURL: op.TypeURL,
			Value:   base64.StdEncoding.EncodeToString(op.Value),
		})
	}
	for _, si := range auth.SignerInfos {
		is := inspectedSigner{Mode: int32(si.Mode), Sequence: si.Sequence}
		if si.PublicKey != nil {
			is.TypeURL = si.PublicKey.TypeURL
			is.PublicKey = base64.StdEncoding.EncodeToString(si.PublicKey.Key)
		}
		out.Signers = append(out.Signers, is)
	}
	for _, sig := range env.Signatures {
		out.Signatures = append(out.Signatures, hex.EncodeToString(sig))
	}
	return printJSON(out)
}

func instantiateCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	pub, err := resolvePublicKey(c, l)
	if err != nil {
		return err
	}
	client, err := newClient(c, l)
	if err != nil {
		return err
	}
	resp, err := client.Instantiate(c.Context, c.String("address"), c.String("sender"), pub)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func relayCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	client, err := newClient(c, l)
	if err != nil {
		return err
	}
	address := c.String("address")

	var tx []byte
	if raw := c.String("tx"); raw != "" {
		if tx, err = parseTx(raw); err != nil {
			return err
		}
	} else {
		s, err := newSigner(c, l)
		if err != nil {
			return err
		}
		ops, err := parseOperations(c, address)
		if err != nil {
			return err
		}
		info, err := client.SignerInfo(c.Context, address)
		if err != nil {
			return err
		}
		if tx, err = newBuilder(c).BuildEnvelope(c.Context, s, info.Sequence, ops); err != nil {
			return err
		}
		l.Sugar().Infow("Built envelope at current sequence", "address", address, "sequence", info.Sequence)
	}

	resp, err := client.Relay(c.Context, address, c.String("sender"), tx)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func queryCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	client, err := newClient(c, l)
	if err != nil {
		return err
	}
	info, err := client.SignerInfo(c.Context, c.String("address"))
	if err != nil {
		return err
	}
	return printJSON(info)
}

func migrateCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	client, err := newClient(c, l)
	if err != nil {
		return err
	}
	resp, err := client.Migrate(c.Context, c.String("address"), c.String("sender"))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func accountsCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	client, err := newClient(c, l)
	if err != nil {
		return err
	}
	accounts, err := client.Accounts(c.Context)
	if err != nil {
		return err
	}
	return printJSON(types.AccountsResponse{Accounts: accounts})
}
