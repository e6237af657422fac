package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/bundler"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/host"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/privateKeySigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChainID = "simd-testing"

type testEnv struct {
	server  *httptest.Server
	store   *memory.MemoryPersistence
	signer  *privateKeySigner.PrivateKeySigner
	builder *bundler.Builder
	address string
}

func newTestEnv(t *testing.T, rl RateLimitConfig) *testEnv {
	s, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)
	pub, err := s.PublicKey(context.Background())
	require.NoError(t, err)
	address, err := relaycrypto.AccountAddress(relaycrypto.DefaultAddressPrefix, pub)
	require.NoError(t, err)

	store := memory.NewMemoryPersistence()
	engine := account.NewEngine(&account.Config{}, zap.NewNop())
	contract := host.NewContract(engine, store, zap.NewNop())
	srv := NewServer(&Config{
		ChainID:       testChainID,
		AddressPrefix: relaycrypto.DefaultAddressPrefix,
		RateLimit:     rl,
	}, contract, store, metrics.NewMetrics("", nil), zap.NewNop())

	ts := httptest.NewServer(srv.GetHandler())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:  ts,
		store:   store,
		signer:  s,
		builder: bundler.NewBuilder(testChainID, account.DefaultAccountNumber),
		address: address,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) instantiate(t *testing.T) (*http.Response, []byte) {
	pub, err := e.signer.PublicKey(context.Background())
	require.NoError(t, err)
	return e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/instantiate", e.address), types.InstantiateRequest{
		Sender: "link1owner",
		Msg:    types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key},
	})
}

func (e *testEnv) execute(t *testing.T, tx []byte) (*http.Response, []byte) {
	return e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/execute", e.address), types.ExecuteRequest{
		Sender: "link1relayer",
		Msg:    *bundler.NewExecuteMsg(tx),
	})
}

func (e *testEnv) tx(t *testing.T, seq uint64) []byte {
	tx, err := e.builder.BuildEnvelope(context.Background(), e.signer, seq, []*types.OperationDescriptor{
		bundler.MsgSendOperation(e.address, "link1recipient", []types.Coin{{Denom: bundler.DefaultDenom, Amount: "1"}}),
	})
	require.NoError(t, err)
	return tx
}

func decodeError(t *testing.T, data []byte) types.ErrorResponse {
	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	resp, data := e.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, testChainID, health.ChainID)

	require.NoError(t, e.store.Close())
	resp, data = e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, KindUnavailable, decodeError(t, data).Error)
}

func TestRelayFlow(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	resp, data := e.instantiate(t)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = e.instantiate(t)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, KindAlreadyInitialized, decodeError(t, data).Error)

	first := e.tx(t, 0)
	resp, data = e.execute(t, first)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var relayed host.Response
	require.NoError(t, json.Unmarshal(data, &relayed))
	require.Len(t, relayed.Messages, 1)
	assert.Equal(t, e.address, relayed.Messages[0].Sender)
	assert.Equal(t, bundler.MsgSendTypeURL, relayed.Messages[0].TypeURL)

	resp, data = e.execute(t, first)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(account.KindInvalidNonce), decodeError(t, data).Error)

	resp, data = e.do(t, http.MethodGet, fmt.Sprintf("/accounts/%s/signer_info", e.address), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info types.SignerInfoResponse
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, uint64(1), info.Sequence)

	resp, data = e.do(t, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list types.AccountsResponse
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, []string{e.address}, list.Accounts)

	resp, data = e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/migrate", e.address), types.MigrateRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `relay_relays_total{outcome="accepted"} 1`)
	assert.Contains(t, string(data), `relay_relays_total{outcome="invalid_nonce"} 1`)
	assert.Contains(t, string(data), `relay_instantiations_total{outcome="accepted"} 1`)
}

func TestExecuteRejections(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	resp, data := e.execute(t, e.tx(t, 0))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, KindAccountNotFound, decodeError(t, data).Error)

	resp, _ = e.instantiate(t)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	forger, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)
	forged, err := e.builder.BuildEnvelope(context.Background(), forger, 0, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		tx     []byte
		status int
		kind   string
	}{
		{"forged signature", forged, http.StatusUnauthorized, string(account.KindSignatureVerificationFailed)},
		{"garbage envelope", []byte{0xff, 0xff, 0xff}, http.StatusBadRequest, string(account.KindDecode)},
		{"future sequence", e.tx(t, 3), http.StatusConflict, string(account.KindInvalidNonce)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := e.execute(t, tt.tx)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, decodeError(t, data).Error)
		})
	}

	info, err := e.store.LoadSignerRecord(context.Background(), e.address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), info.Sequence)
}

func TestInstantiate_AddressKeyBinding(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	squatter, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)
	pub, err := squatter.PublicKey(context.Background())
	require.NoError(t, err)

	resp, data := e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/instantiate", e.address), types.InstantiateRequest{
		Sender: "link1squatter",
		Msg:    types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, KindAddressKeyMismatch, decodeError(t, data).Error)

	record, err := e.store.LoadSignerRecord(context.Background(), e.address)
	require.NoError(t, err)
	assert.Nil(t, record)

	// the rightful owner can still claim the address
	resp, _ = e.instantiate(t)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// contract-style addresses are not derived from a key
	contract, err := relaycrypto.EncodeAddress(relaycrypto.DefaultAddressPrefix, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/instantiate", contract), types.InstantiateRequest{
		Msg: types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// malformed keys still surface as decode errors
	fresh, err := relaycrypto.AccountAddress(relaycrypto.DefaultAddressPrefix, pub)
	require.NoError(t, err)
	resp, data = e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/instantiate", fresh), types.InstantiateRequest{
		Msg: types.InstantiateMsg{TypeURL: pub.TypeURL, Key: []byte{1, 2, 3}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(account.KindDecode), decodeError(t, data).Error)
}

func TestBadRequests(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	resp, data := e.do(t, http.MethodGet, "/accounts/not-an-address/signer_info", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, KindInvalidAddress, decodeError(t, data).Error)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+fmt.Sprintf("/accounts/%s/execute", e.address), bytes.NewReader([]byte("invalid json")))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp, data = e.do(t, http.MethodPost, fmt.Sprintf("/accounts/%s/execute", e.address), types.ExecuteRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, KindInvalidRequest, decodeError(t, data).Error)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/accounts/%s/execute", e.address), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{})

	resp, _ := e.do(t, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, "abc-123", raw.Header.Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp, _ := e.do(t, http.MethodGet, "/accounts", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, data := e.do(t, http.MethodGet, "/accounts", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, KindRateLimited, decodeError(t, data).Error)

	// health checks are not limited
	resp, _ = e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	e := newTestEnv(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	accepted := 0
	for i := 0; i < 20; i++ {
		req, err := http.NewRequest(http.MethodGet, e.server.URL+"/accounts", nil)
		require.NoError(t, err)
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			accepted++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestRateLimiter_ClientID(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, TrustedProxies: []string{"10.0.0.1"}})

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"direct peer", "192.0.2.10:7000", nil, "192.0.2.10"},
		{"untrusted peer forwarding", "192.0.2.10:7000", map[string]string{"X-Forwarded-For": "198.51.100.7", "X-Real-IP": "198.51.100.8"}, "192.0.2.10"},
		{"trusted proxy forwarded-for", "10.0.0.1:8080", map[string]string{"X-Forwarded-For": " 198.51.100.7:443 , 10.0.0.5"}, "198.51.100.7"},
		{"trusted proxy real ip", "10.0.0.1:8080", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
		{"trusted proxy garbage header", "10.0.0.1:8080", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1"},
		{"trusted proxy without headers", "10.0.0.1:8080", nil, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, l.clientID(req))
		})
	}
}

func TestRateLimiter_Prune(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	require.True(t, l.allow("a"))
	require.Len(t, l.clients, 1)

	l.prune(0)
	assert.Empty(t, l.clients)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{account.ErrDecode, http.StatusBadRequest, string(account.KindDecode)},
		{account.ErrUnsupportedKeyType, http.StatusBadRequest, string(account.KindUnsupportedKeyType)},
		{account.ErrSignatureVerificationFailed, http.StatusUnauthorized, string(account.KindSignatureVerificationFailed)},
		{account.ErrInvalidNonce, http.StatusConflict, string(account.KindInvalidNonce)},
		{fmt.Errorf("wrapped: %w", host.ErrAccountNotFound), http.StatusNotFound, KindAccountNotFound},
		{relaycrypto.ErrAddressKeyMismatch, http.StatusForbidden, KindAddressKeyMismatch},
		{host.ErrAlreadyInitialized, http.StatusConflict, KindAlreadyInitialized},
		{host.ErrContractMismatch, http.StatusConflict, KindContractMismatch},
		{host.ErrInvalidRequest, http.StatusBadRequest, KindInvalidRequest},
		{persistence.ErrConflict, http.StatusConflict, KindConflict},
		{persistence.ErrClosed, http.StatusServiceUnavailable, KindUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		status, kind := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, kind, tt.err.Error())
	}
	assert.Equal(t, metrics.OutcomeAccepted, outcome(nil))
}
