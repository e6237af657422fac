package tests

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/accountclient"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/server"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/privateKeySigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// RelayNode is a relay server running in-process on top of a store
type RelayNode struct {
	Server  *httptest.Server
	Client  *accountclient.Client
	Metrics *metrics.Metrics
}

// StartRelayNode serves store over httptest. The server is closed with the test;
// the store is left to the caller.
func StartRelayNode(t *testing.T, store persistence.IAccountPersistence, chainID string, accountNumber uint64, logger *zap.Logger) *RelayNode {
	t.Helper()

	engine := account.NewEngine(&account.Config{AccountNumber: accountNumber}, logger)
	m := metrics.NewMetrics("", nil)
	srv := server.NewServer(&server.Config{
		ChainID:       chainID,
		AddressPrefix: relaycrypto.DefaultAddressPrefix,
	}, host.NewContract(engine, store, logger), store, m, logger)

	ts := httptest.NewServer(srv.GetHandler())
	t.Cleanup(ts.Close)

	client, err := accountclient.NewClient(&accountclient.ClientConfig{ServerURL: ts.URL, Logger: logger})
	require.NoError(t, err)

	return &RelayNode{Server: ts, Client: client, Metrics: m}
}

// Owner is an account owner key and the address it controls
type Owner struct {
	Signer  *privateKeySigner.PrivateKeySigner
	PubKey  types.PubKey
	Address string
}

func NewOwner(t *testing.T) *Owner {
	t.Helper()

	s, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)
	pub, err := s.PublicKey(context.Background())
	require.NoError(t, err)
	address, err := relaycrypto.AccountAddress(relaycrypto.DefaultAddressPrefix, pub)
	require.NoError(t, err)
	return &Owner{Signer: s, PubKey: pub, Address: address}
}
