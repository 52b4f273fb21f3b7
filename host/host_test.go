// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package host_test

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/database/types"
	"github.com/blinklabs-io/descholar/event"
	"github.com/blinklabs-io/descholar/host"
	"github.com/blinklabs-io/descholar/keystore"
)

var startTime = time.Unix(1_700_000_000, 0)

func testKey(t *testing.T, b byte) *keystore.Key {
	t.Helper()
	key, err := keystore.FromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return key
}

type testHost struct {
	*host.Host
	reg    *prometheus.Registry
	bus    *event.EventBus
	issuer *keystore.Key
	admin  *keystore.Key
	alice  *keystore.Key
	nonces map[contract.Address]uint64
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	db, err := database.New(&database.Config{BlobGcDisabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	th := &testHost{
		reg:    prometheus.NewRegistry(),
		bus:    event.NewEventBus(nil, nil),
		issuer: testKey(t, 1),
		admin:  testKey(t, 2),
		alice:  testKey(t, 3),
		nonces: map[contract.Address]uint64{},
	}
	t.Cleanup(th.bus.Stop)
	th.Host, err = host.New(
		db,
		host.WithClock(host.NewManualClock(startTime)),
		host.WithToken("SCH", th.issuer.Address()),
		host.WithPromRegistry(th.reg),
		host.WithEventBus(th.bus),
	)
	require.NoError(t, err)
	return th
}

// submit signs with key using the next nonce for its address
func (th *testHost) submit(
	t *testing.T,
	key *keystore.Key,
	method string,
	args any,
) ([]byte, error) {
	t.Helper()
	th.nonces[key.Address()]++
	env, err := host.NewEnvelope(
		th.ContractAddress(),
		method,
		args,
		th.nonces[key.Address()],
		key,
	)
	require.NoError(t, err)
	return th.Submit(context.Background(), env)
}

func (th *testHost) fund(t *testing.T) uint64 {
	t.Helper()
	_, err := th.submit(t, th.issuer, host.MethodTokenMint, &host.MintArgs{
		To:     th.admin.Address(),
		Amount: big.NewInt(1000),
	})
	require.NoError(t, err)
	ret, err := th.submit(t, th.admin, contract.MethodPostScholarship, &contract.PostScholarshipArgs{
		Name:           "Math Grant",
		Details:        "details",
		GrantAmount:    big.NewInt(100),
		NumberOfGrants: 5,
		EndDate:        uint64(startTime.Add(time.Hour).Unix()),
	})
	require.NoError(t, err)
	var id uint64
	_, err = cbor.Decode(ret, &id)
	require.NoError(t, err)
	return id
}

func TestSubmitScenario(t *testing.T) {
	th := newTestHost(t)
	_, evtCh := th.bus.Subscribe(event.EventType(contract.EventApplicationApproved))
	id := th.fund(t)
	assert.Equal(t, uint64(1), id)

	_, err := th.submit(t, th.alice, contract.MethodApply, &contract.ApplyArgs{
		ScholarshipID: id,
		Name:          "Alice",
		Details:       "details",
	})
	require.NoError(t, err)
	_, err = th.submit(t, th.admin, contract.MethodApproveApplicant, &contract.DecisionArgs{
		ScholarshipID: id,
		Applicant:     th.alice.Address(),
	})
	require.NoError(t, err)

	bal, err := th.Balance(context.Background(), th.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.Int64())
	custody, err := th.Custody(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(400), custody.Int64())

	select {
	case evt := <-evtCh:
		committed, ok := evt.Data.(host.CommittedEvent)
		require.True(t, ok)
		assert.Equal(t, id, committed.Event.ScholarshipID)
		assert.Equal(t, th.admin.Address(), committed.Event.Actor)
		assert.Equal(t, th.alice.Address(), committed.Event.Subject)
		assert.Equal(t, int64(100), committed.Event.Amount.Int64())
		assert.NotZero(t, committed.InvocationID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for approval event")
	}
}

func TestQuery(t *testing.T) {
	th := newTestHost(t)
	id := th.fund(t)

	ret, err := th.Query(context.Background(), contract.MethodGetScholarships, nil)
	require.NoError(t, err)
	var scholarships []contract.Scholarship
	_, err = cbor.Decode(ret, &scholarships)
	require.NoError(t, err)
	require.Len(t, scholarships, 1)
	assert.Equal(t, id, scholarships[0].ID)
	assert.Equal(t, th.admin.Address(), scholarships[0].Creator)
	assert.Equal(t, int64(100), scholarships[0].GrantAmount.Int64())

	args, err := host.EncodeArgs(&host.BalanceArgs{Address: th.admin.Address()})
	require.NoError(t, err)
	ret, err = th.Query(context.Background(), host.MethodTokenBalance, args)
	require.NoError(t, err)
	bal := new(big.Int)
	_, err = cbor.Decode(ret, bal)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.Int64())

	_, err = th.Query(context.Background(), contract.MethodApply, nil)
	require.ErrorIs(t, err, host.ErrNotReadOnly)
	_, err = th.Query(context.Background(), "drop_tables", nil)
	require.ErrorIs(t, err, host.ErrUnknownMethod)
}

func TestQueryApplicationsForUnknownScholarship(t *testing.T) {
	th := newTestHost(t)
	th.fund(t)
	args, err := host.EncodeArgs(&contract.ScholarshipIDArgs{ScholarshipID: 77})
	require.NoError(t, err)
	ret, err := th.Query(context.Background(), contract.MethodGetApplicationsForScholarship, args)
	require.NoError(t, err)
	var apps []contract.Application
	_, err = cbor.Decode(ret, &apps)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSubmitRejectsBadSignature(t *testing.T) {
	th := newTestHost(t)
	env, err := host.NewEnvelope(
		th.ContractAddress(),
		host.MethodTokenMint,
		&host.MintArgs{To: th.alice.Address(), Amount: big.NewInt(5)},
		1,
		th.issuer,
	)
	require.NoError(t, err)
	// Redirect the mint after signing
	env.Args, err = host.EncodeArgs(
		&host.MintArgs{To: th.admin.Address(), Amount: big.NewInt(5)},
	)
	require.NoError(t, err)
	_, err = th.Submit(context.Background(), env)
	require.ErrorIs(t, err, host.ErrBadSignature)

	env.Signatures = nil
	_, err = th.Submit(context.Background(), env)
	require.ErrorIs(t, err, host.ErrNotSigned)

	// Signed for a different contract
	env, err = host.NewEnvelope("other", host.MethodTokenMint, nil, 1, th.issuer)
	require.NoError(t, err)
	_, err = th.Submit(context.Background(), env)
	require.ErrorIs(t, err, host.ErrBadSignature)

	bal, err := th.Balance(context.Background(), th.admin.Address())
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Sign())
}

func TestSubmitNonces(t *testing.T) {
	th := newTestHost(t)
	ctx := context.Background()
	next, err := th.NextNonce(ctx, th.issuer.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	mint := &host.MintArgs{To: th.alice.Address(), Amount: big.NewInt(5)}
	env, err := host.NewEnvelope(th.ContractAddress(), host.MethodTokenMint, mint, 3, th.issuer)
	require.NoError(t, err)
	_, err = th.Submit(ctx, env)
	require.NoError(t, err)

	// Replay
	_, err = th.Submit(ctx, env)
	require.ErrorIs(t, err, host.ErrStaleNonce)
	env, err = host.NewEnvelope(th.ContractAddress(), host.MethodTokenMint, mint, 2, th.issuer)
	require.NoError(t, err)
	_, err = th.Submit(ctx, env)
	require.ErrorIs(t, err, host.ErrStaleNonce)

	next, err = th.NextNonce(ctx, th.issuer.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next)

	bal, err := th.Balance(ctx, th.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Int64())
}

func TestFailedInvocationConsumesNonceOnly(t *testing.T) {
	th := newTestHost(t)
	ctx := context.Background()
	// alice is not the issuer
	env, err := host.NewEnvelope(
		th.ContractAddress(),
		host.MethodTokenMint,
		&host.MintArgs{To: th.alice.Address(), Amount: big.NewInt(5)},
		1,
		th.alice,
	)
	require.NoError(t, err)
	_, err = th.Submit(ctx, env)
	require.Error(t, err)
	assert.Equal(t, "Unauthorized", host.ErrorCode(err))

	// State changes and the journal entry rolled back, the nonce did not
	next, err := th.NextNonce(ctx, th.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
	history, err := th.History(0)
	require.NoError(t, err)
	assert.Empty(t, history)
	bal, err := th.Balance(ctx, th.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Int64())

	// The same signed envelope cannot be replayed
	_, err = th.Submit(ctx, env)
	require.ErrorIs(t, err, host.ErrStaleNonce)
	next, err = th.NextNonce(ctx, th.alice.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestJournal(t *testing.T) {
	th := newTestHost(t)
	id := th.fund(t)
	_, err := th.submit(t, th.alice, contract.MethodApply, &contract.ApplyArgs{ScholarshipID: id})
	require.NoError(t, err)
	_, err = th.submit(t, th.alice, contract.MethodApply, &contract.ApplyArgs{ScholarshipID: id})
	require.ErrorIs(t, err, contract.ErrAlreadyApplied)

	history, err := th.History(0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first
	assert.Equal(t, contract.MethodApply, history[0].Method)
	assert.Equal(t, string(th.alice.Address()), history[0].Invoker)
	assert.Equal(t, contract.MethodPostScholarship, history[1].Method)
	assert.Equal(t, host.MethodTokenMint, history[2].Method)
	assert.Equal(t, uint64(startTime.Unix()), history[1].LedgerTime)
	require.Len(t, history[1].Events, 1)
	assert.Equal(t, string(contract.EventScholarshipPosted), history[1].Events[0].Type)
	assert.Equal(t, "500", history[1].Events[0].Amount)

	limited, err := th.History(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	events, err := th.Events(models.EventFilter{Address: string(th.alice.Address())})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(contract.EventApplicationSubmitted), events[0].Type)

	events, err = th.Events(models.EventFilter{ScholarshipID: id})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMetrics(t *testing.T) {
	th := newTestHost(t)
	id := th.fund(t)
	_, err := th.submit(t, th.alice, contract.MethodApproveApplicant, &contract.DecisionArgs{
		ScholarshipID: id,
		Applicant:     th.alice.Address(),
	})
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	expected := `
# HELP descholar_host_invocations_total contract invocations by method and result code
# TYPE descholar_host_invocations_total counter
descholar_host_invocations_total{method="approve_applicant",result="Unauthorized"} 1
descholar_host_invocations_total{method="post_scholarship",result="ok"} 1
descholar_host_invocations_total{method="token.mint",result="ok"} 1
# HELP descholar_host_custody_balance token balance held in escrow by the contract
# TYPE descholar_host_custody_balance gauge
descholar_host_custody_balance 500
`
	require.NoError(
		t,
		testutil.GatherAndCompare(
			th.reg,
			strings.NewReader(expected),
			"descholar_host_invocations_total",
			"descholar_host_custody_balance",
		),
	)
}

func TestViewIsReadOnly(t *testing.T) {
	th := newTestHost(t)
	_, err := th.View(context.Background(), func(env contract.Env) ([]byte, error) {
		assert.Empty(t, env.Invoker())
		return nil, env.Storage().Set([]byte("k"), []byte("v"))
	})
	require.ErrorIs(t, err, types.ErrReadOnlyTxn)
}

func TestInvokeCanceledContext(t *testing.T) {
	th := newTestHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := th.Invoke(ctx, "noop", nil, func(contract.Env) ([]byte, error) {
		called = true
		return nil, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestUnknownMethod(t *testing.T) {
	th := newTestHost(t)
	_, err := th.submit(t, th.alice, "withdraw_all", nil)
	require.ErrorIs(t, err, host.ErrUnknownMethod)
}
