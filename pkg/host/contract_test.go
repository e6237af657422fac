package host

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/account"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/bundler"
	relaycrypto "github.com/Layr-Labs/eigenx-relay-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/envelope"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/signer/privateKeySigner"
	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testChainID  = "simd-testing"
	testAccount  = "link1account"
	testRelayer  = "link1relayer"
	testOwner    = "link1owner"
	otherAccount = "link1other"
)

type fixture struct {
	contract *Contract
	store    *memory.MemoryPersistence
	signer   *privateKeySigner.PrivateKeySigner
	builder  *bundler.Builder
	env      Env
}

func newFixture(t *testing.T) *fixture {
	s, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)

	store := memory.NewMemoryPersistence()
	t.Cleanup(func() { _ = store.Close() })

	engine := account.NewEngine(&account.Config{AccountNumber: 0}, zap.NewNop())
	return &fixture{
		contract: NewContract(engine, store, zap.NewNop()),
		store:    store,
		signer:   s,
		builder:  bundler.NewBuilder(testChainID, 0),
		env:      Env{ChainID: testChainID, ContractAddress: testAccount, BlockHeight: 1},
	}
}

func (f *fixture) instantiate(t *testing.T) {
	pub, err := f.signer.PublicKey(context.Background())
	require.NoError(t, err)
	_, err = f.contract.Instantiate(context.Background(), f.env, MessageInfo{Sender: testOwner}, &types.InstantiateMsg{
		TypeURL: pub.TypeURL,
		Key:     pub.Key,
	})
	require.NoError(t, err)
}

func (f *fixture) tx(t *testing.T, sequence uint64, ops ...*types.OperationDescriptor) []byte {
	tx, err := f.builder.BuildEnvelope(context.Background(), f.signer, sequence, ops)
	require.NoError(t, err)
	return tx
}

func (f *fixture) sequence(t *testing.T) uint64 {
	info, err := f.contract.SignerInfo(context.Background(), testAccount)
	require.NoError(t, err)
	return info.Sequence
}

func TestInstantiate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub, _ := f.signer.PublicKey(ctx)

	resp, err := f.contract.Instantiate(ctx, f.env, MessageInfo{Sender: testOwner}, &types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key})
	require.NoError(t, err)

	method, _ := resp.Attribute("method")
	owner, _ := resp.Attribute("owner")
	assert.Equal(t, "instantiate", method)
	assert.Equal(t, testOwner, owner)

	info, err := f.contract.SignerInfo(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), info.Sequence)
	assert.True(t, pub.IsEqual(&info.PublicKey))

	ci, err := f.store.LoadContractInfo(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, &types.ContractInfo{Contract: ContractName, Version: ContractVersion}, ci)
}

func TestInstantiate_Twice(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)

	pub, _ := f.signer.PublicKey(context.Background())
	_, err := f.contract.Instantiate(context.Background(), f.env, MessageInfo{Sender: testOwner}, &types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInstantiate_RejectsBadKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.contract.Instantiate(ctx, f.env, MessageInfo{}, &types.InstantiateMsg{TypeURL: "/cosmos.crypto.ed25519.PubKey", Key: make([]byte, 32)})
	assert.ErrorIs(t, err, account.ErrUnsupportedKeyType)

	_, err = f.contract.Instantiate(ctx, f.env, MessageInfo{}, &types.InstantiateMsg{TypeURL: types.Secp256k1PubKeyTypeURL, Key: []byte{1, 2, 3}})
	assert.ErrorIs(t, err, account.ErrDecode)

	_, err = f.contract.SignerInfo(ctx, testAccount)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestExecute_RelaysInOrder(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)

	ops := []*types.OperationDescriptor{
		bundler.MsgSendOperation(testAccount, "link1a", []types.Coin{{Denom: "cony", Amount: "1"}}),
		bundler.MsgSendOperation(testAccount, "link1b", []types.Coin{{Denom: "cony", Amount: "2"}}),
	}

	resp, err := f.contract.Execute(context.Background(), f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(f.tx(t, 0, ops...)))
	require.NoError(t, err)

	action, _ := resp.Attribute("action")
	seq, _ := resp.Attribute("sequence")
	assert.Equal(t, "send_tx", action)
	assert.Equal(t, "0", seq)

	require.Len(t, resp.Messages, 2)
	for i, m := range resp.Messages {
		assert.Equal(t, testAccount, m.Sender)
		assert.Equal(t, ops[i].TypeURL, m.TypeURL)
		assert.Equal(t, ops[i].Value, m.Value)
	}
	assert.Equal(t, uint64(1), f.sequence(t))
}

// Sequence 0 is accepted, replaying it fails, sequence 1 is accepted and
// a skipped-ahead sequence fails.
func TestExecute_SequenceProgression(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	ctx := context.Background()
	info := MessageInfo{Sender: testRelayer}

	first := f.tx(t, 0)
	_, err := f.contract.Execute(ctx, f.env, info, bundler.NewExecuteMsg(first))
	require.NoError(t, err)

	_, err = f.contract.Execute(ctx, f.env, info, bundler.NewExecuteMsg(first))
	var relayErr *account.Error
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, account.KindInvalidNonce, relayErr.Kind)
	assert.Equal(t, uint64(1), relayErr.Expected)
	assert.Equal(t, uint64(0), relayErr.Declared)

	_, err = f.contract.Execute(ctx, f.env, info, bundler.NewExecuteMsg(f.tx(t, 1)))
	require.NoError(t, err)

	_, err = f.contract.Execute(ctx, f.env, info, bundler.NewExecuteMsg(f.tx(t, 5)))
	assert.ErrorIs(t, err, account.ErrInvalidNonce)

	assert.Equal(t, uint64(2), f.sequence(t))
}

func TestExecute_FailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	ctx := context.Background()

	other, err := privateKeySigner.GenerateKey()
	require.NoError(t, err)
	forged, err := f.builder.BuildEnvelope(ctx, other, 0, nil)
	require.NoError(t, err)

	resp, err := f.contract.Execute(ctx, f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(forged))
	assert.ErrorIs(t, err, account.ErrSignatureVerificationFailed)
	assert.Nil(t, resp)

	_, err = f.contract.Execute(ctx, f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg([]byte{0xff, 0xff}))
	assert.ErrorIs(t, err, account.ErrDecode)

	assert.Equal(t, uint64(0), f.sequence(t))
}

func TestExecute_MalformedSignedPartsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	ctx := context.Background()

	pub, err := f.signer.PublicKey(ctx)
	require.NoError(t, err)
	authInfo, err := envelope.EncodeAuthInfo(&types.AuthInfo{
		SignerInfos: []*types.SignerInfo{{PublicKey: &pub, Mode: types.SignModeDirect, Sequence: 0}},
	})
	require.NoError(t, err)
	noSigners, err := envelope.EncodeAuthInfo(&types.AuthInfo{Fee: &types.Fee{GasLimit: 1}})
	require.NoError(t, err)

	sign := func(body, auth []byte) []byte {
		digest := relaycrypto.SignDocDigest(envelope.NewSigningDocument(body, auth, testChainID, 0))
		sig, err := f.signer.Sign(ctx, digest)
		require.NoError(t, err)
		return envelope.EncodeTxRaw(&types.SignedEnvelope{BodyBytes: body, AuthInfoBytes: auth, Signatures: [][]byte{sig}})
	}

	for name, tc := range map[string]struct {
		tx    []byte
		stage string
	}{
		"malformed body":    {sign([]byte{0x0a, 0x05, 0x01}, authInfo), account.StageBody},
		"zero signer infos": {sign(nil, noSigners), account.StageAuthInfo},
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := f.contract.Execute(ctx, f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(tc.tx))
			assert.Nil(t, resp)
			var accErr *account.Error
			require.ErrorAs(t, err, &accErr)
			assert.Equal(t, account.KindDecode, accErr.Kind)
			assert.Equal(t, tc.stage, accErr.Stage)
			assert.Equal(t, uint64(0), f.sequence(t))
		})
	}

	// the account still accepts sequence 0 afterwards
	_, err = f.contract.Execute(ctx, f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(f.tx(t, 0)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.sequence(t))
}

func TestExecute_WrongChainRejected(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)

	env := f.env
	env.ChainID = "another-chain"
	_, err := f.contract.Execute(context.Background(), env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(f.tx(t, 0)))
	assert.ErrorIs(t, err, account.ErrSignatureVerificationFailed)
}

func TestExecute_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.contract.Execute(context.Background(), f.env, MessageInfo{}, bundler.NewExecuteMsg(f.tx(t, 0)))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestExecute_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.contract.Execute(ctx, f.env, MessageInfo{}, &types.ExecuteMsg{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.contract.Execute(ctx, Env{ChainID: testChainID}, MessageInfo{}, bundler.NewExecuteMsg(nil))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExecute_ConcurrentSameSequence(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	tx := f.tx(t, 0)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.contract.Execute(context.Background(), f.env, MessageInfo{Sender: testRelayer}, bundler.NewExecuteMsg(tx))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, account.ErrInvalidNonce)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, uint64(1), f.sequence(t))
}

func TestAccountsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)

	otherEnv := f.env
	otherEnv.ContractAddress = otherAccount
	pub, _ := f.signer.PublicKey(context.Background())
	_, err := f.contract.Instantiate(context.Background(), otherEnv, MessageInfo{}, &types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key})
	require.NoError(t, err)

	_, err = f.contract.Execute(context.Background(), f.env, MessageInfo{}, bundler.NewExecuteMsg(f.tx(t, 0)))
	require.NoError(t, err)

	otherInfo, err := f.contract.SignerInfo(context.Background(), otherAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), otherInfo.Sequence)

	accounts, err := f.contract.Accounts(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testAccount, otherAccount}, accounts)
}

func TestMigrate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.contract.Migrate(ctx, f.env, &types.MigrateMsg{})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	f.instantiate(t)
	require.NoError(t, f.store.Update(ctx, testAccount, func(txn persistence.IAccountTxn) error {
		return txn.SetContractInfo(&types.ContractInfo{Contract: ContractName, Version: "0.0.1"})
	}))

	resp, err := f.contract.Migrate(ctx, f.env, &types.MigrateMsg{})
	require.NoError(t, err)
	from, _ := resp.Attribute("from_version")
	to, _ := resp.Attribute("to_version")
	assert.Equal(t, "0.0.1", from)
	assert.Equal(t, ContractVersion, to)

	ci, err := f.store.LoadContractInfo(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, ContractVersion, ci.Version)
	assert.Equal(t, uint64(0), f.sequence(t))
}

func TestMigrate_ContractMismatch(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	ctx := context.Background()

	require.NoError(t, f.store.Update(ctx, testAccount, func(txn persistence.IAccountTxn) error {
		return txn.SetContractInfo(&types.ContractInfo{Contract: "crates.io:other", Version: "1.0.0"})
	}))

	_, err := f.contract.Migrate(ctx, f.env, &types.MigrateMsg{})
	assert.ErrorIs(t, err, ErrContractMismatch)
}

func TestQuery(t *testing.T) {
	f := newFixture(t)
	f.instantiate(t)
	ctx := context.Background()

	_, err := f.contract.Execute(ctx, f.env, MessageInfo{}, bundler.NewExecuteMsg(f.tx(t, 0)))
	require.NoError(t, err)

	data, err := f.contract.Query(ctx, f.env, &types.QueryMsg{SignerInfo: &types.SignerInfoQuery{}})
	require.NoError(t, err)

	var info types.SignerInfoResponse
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, uint64(1), info.Sequence)
	assert.Equal(t, types.Secp256k1PubKeyTypeURL, info.PublicKey.TypeURL)

	_, err = f.contract.Query(ctx, f.env, &types.QueryMsg{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub, _ := f.signer.PublicKey(ctx)

	_, err := f.contract.Handle(ctx, f.env, MessageInfo{}, Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.contract.Handle(ctx, f.env, MessageInfo{}, Request{Migrate: &types.MigrateMsg{}, Query: &types.QueryMsg{}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.contract.Handle(ctx, f.env, MessageInfo{Sender: testOwner}, Request{
		Instantiate: &types.InstantiateMsg{TypeURL: pub.TypeURL, Key: pub.Key},
	})
	require.NoError(t, err)

	resp, err := f.contract.Handle(ctx, f.env, MessageInfo{}, Request{Execute: bundler.NewExecuteMsg(f.tx(t, 0))})
	require.NoError(t, err)
	assert.Empty(t, resp.Messages)

	resp, err = f.contract.Handle(ctx, f.env, MessageInfo{}, Request{Query: &types.QueryMsg{SignerInfo: &types.SignerInfoQuery{}}})
	require.NoError(t, err)
	var info types.SignerInfoResponse
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	assert.Equal(t, uint64(1), info.Sequence)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	release := k.Lock("a")
	releaseB := k.Lock("b")
	assert.Len(t, k.locks, 2)

	release()
	releaseB()
	assert.Empty(t, k.locks)
}
