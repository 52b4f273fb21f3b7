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

package contract_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/host"
)

const (
	issuer = contract.Address("issuer")
	admin  = contract.Address("admin")
	alice  = contract.Address("alice")
	bob    = contract.Address("bob")
)

var (
	startTime = time.Unix(1_700_000_000, 0)
	endDate   = uint64(startTime.Add(30 * 24 * time.Hour).Unix())
)

// faultyToken wraps the real token client and misbehaves while enabled
type faultyToken struct {
	inner contract.TokenClient
	mode  *atomic.Int32
}

const (
	faultNone int32 = iota
	// transfer succeeds, then reports an error
	faultErrorAfterTransfer
	// transfer reports success but moves nothing
	faultSilentNoop
)

func (f faultyToken) Balance(addr contract.Address) (*big.Int, error) {
	return f.inner.Balance(addr)
}

func (f faultyToken) Transfer(from, to contract.Address, amount *big.Int) error {
	switch f.mode.Load() {
	case faultErrorAfterTransfer:
		if err := f.inner.Transfer(from, to, amount); err != nil {
			return err
		}
		return errors.New("injected transfer failure")
	case faultSilentNoop:
		return nil
	default:
		return f.inner.Transfer(from, to, amount)
	}
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	h     *host.Host
	svc   *contract.Service
	clock *host.ManualClock
	fault *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{BlobGcDisabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		clock: host.NewManualClock(startTime),
		fault: &atomic.Int32{},
	}
	f.h, err = host.New(
		db,
		host.WithClock(f.clock),
		host.WithToken("SCH", issuer),
		host.WithTokenMiddleware(func(tc contract.TokenClient) contract.TokenClient {
			return faultyToken{inner: tc, mode: f.fault}
		}),
	)
	require.NoError(t, err)
	f.svc = f.h.Service()
	return f
}

func (f *fixture) mint(addr contract.Address, amount int64) {
	f.t.Helper()
	require.NoError(f.t, f.h.Mint(f.ctx, addr, big.NewInt(amount)))
}

func (f *fixture) balance(addr contract.Address) int64 {
	f.t.Helper()
	bal, err := f.h.Balance(f.ctx, addr)
	require.NoError(f.t, err)
	return bal.Int64()
}

func (f *fixture) custody() int64 {
	return f.balance(f.h.ContractAddress())
}

func (f *fixture) invoke(
	method string,
	caller contract.Address,
	fn func(env contract.Env) error,
) error {
	var signers []contract.Address
	if caller != "" {
		signers = []contract.Address{caller}
	}
	_, err := f.h.Invoke(
		f.ctx,
		method,
		signers,
		func(env contract.Env) ([]byte, error) {
			return nil, fn(env)
		},
	)
	return err
}

func postArgs(amount int64, grants uint32) *contract.PostScholarshipArgs {
	return &contract.PostScholarshipArgs{
		Name:           "Math Grant",
		Details:        "For students of mathematics",
		GrantAmount:    big.NewInt(amount),
		NumberOfGrants: grants,
		EndDate:        endDate,
	}
}

func (f *fixture) post(
	caller contract.Address,
	args *contract.PostScholarshipArgs,
) (uint64, error) {
	var id uint64
	err := f.invoke(
		contract.MethodPostScholarship,
		caller,
		func(env contract.Env) error {
			var err error
			id, err = f.svc.PostScholarship(env, args)
			return err
		},
	)
	return id, err
}

func (f *fixture) apply(caller contract.Address, id uint64) error {
	return f.invoke(
		contract.MethodApply,
		caller,
		func(env contract.Env) error {
			return f.svc.Apply(env, &contract.ApplyArgs{
				ScholarshipID: id,
				Name:          string(caller),
				Details:       "please",
			})
		},
	)
}

func (f *fixture) approve(
	caller contract.Address,
	id uint64,
	applicant contract.Address,
) error {
	return f.invoke(
		contract.MethodApproveApplicant,
		caller,
		func(env contract.Env) error {
			return f.svc.ApproveApplicant(env, &contract.DecisionArgs{
				ScholarshipID: id,
				Applicant:     applicant,
			})
		},
	)
}

func (f *fixture) reject(
	caller contract.Address,
	id uint64,
	applicant contract.Address,
) error {
	return f.invoke(
		contract.MethodRejectApplicant,
		caller,
		func(env contract.Env) error {
			return f.svc.RejectApplicant(env, &contract.DecisionArgs{
				ScholarshipID: id,
				Applicant:     applicant,
			})
		},
	)
}

func (f *fixture) scholarships() []contract.Scholarship {
	f.t.Helper()
	var ret []contract.Scholarship
	_, err := f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		var err error
		ret, err = f.svc.GetScholarships(env)
		return nil, err
	})
	require.NoError(f.t, err)
	return ret
}

func (f *fixture) scholarship(id uint64) *contract.Scholarship {
	f.t.Helper()
	var ret *contract.Scholarship
	_, err := f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		var err error
		ret, err = f.svc.GetScholarship(env, id)
		return nil, err
	})
	require.NoError(f.t, err)
	return ret
}

func (f *fixture) applications() []contract.Application {
	f.t.Helper()
	var ret []contract.Application
	_, err := f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		var err error
		ret, err = f.svc.GetApplications(env)
		return nil, err
	})
	require.NoError(f.t, err)
	return ret
}

// checkEscrow asserts that custody holds exactly what is still owed across
// all scholarships
func (f *fixture) checkEscrow() {
	f.t.Helper()
	owed := new(big.Int)
	for _, s := range f.scholarships() {
		v, err := s.Outstanding()
		require.NoError(f.t, err)
		owed.Add(owed, v)
	}
	assert.Equal(f.t, owed.Int64(), f.custody(), "custody should equal outstanding grants")
}

func TestPostScholarship(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)

	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	s := f.scholarship(id)
	assert.Equal(t, uint32(5), s.GrantsRemaining)
	assert.Equal(t, uint32(5), s.NumberOfGrants)
	assert.Equal(t, admin, s.Creator)
	assert.Equal(t, uint64(startTime.Unix()), s.CreatedAt)
	assert.Equal(t, int64(100), s.GrantAmount.Int64())
	assert.True(t, s.Active(uint64(startTime.Unix())))
	assert.Equal(t, int64(500), f.custody())
	assert.Equal(t, int64(500), f.balance(admin))

	id, err = f.post(admin, postArgs(50, 2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, int64(600), f.custody())
	f.checkEscrow()

	_, err = f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		bal, err := f.svc.Custody(env)
		require.NoError(t, err)
		assert.Equal(t, int64(600), bal.Int64())
		return nil, nil
	})
	require.NoError(t, err)
}

func TestPostScholarshipRejected(t *testing.T) {
	huge := func() *contract.PostScholarshipArgs {
		a := postArgs(1, 2)
		a.GrantAmount = new(big.Int).Set(contract.MaxAmount)
		return a
	}
	tooBig := func() *contract.PostScholarshipArgs {
		a := postArgs(1, 1)
		a.GrantAmount = new(big.Int).Add(contract.MaxAmount, big.NewInt(1))
		return a
	}
	expired := func() *contract.PostScholarshipArgs {
		a := postArgs(10, 1)
		a.EndDate = uint64(startTime.Unix())
		return a
	}
	nilAmount := func() *contract.PostScholarshipArgs {
		a := postArgs(10, 1)
		a.GrantAmount = nil
		return a
	}
	testDefs := []struct {
		name     string
		caller   contract.Address
		args     *contract.PostScholarshipArgs
		expected error
	}{
		{"zero amount", admin, postArgs(0, 5), contract.ErrInvalidAmount},
		{"negative amount", admin, postArgs(-100, 5), contract.ErrInvalidAmount},
		{"nil amount", admin, nilAmount(), contract.ErrInvalidAmount},
		{"zero grants", admin, postArgs(100, 0), contract.ErrInvalidAmount},
		{"too many grants", admin, postArgs(1, contract.MaxGrants+1), contract.ErrInvalidAmount},
		{"amount out of range", admin, tooBig(), contract.ErrInvalidAmount},
		{"total overflows", admin, huge(), contract.ErrInvalidAmount},
		{"end date not in future", admin, expired(), contract.ErrScholarshipExpired},
		{"insufficient funds", admin, postArgs(300, 5), contract.ErrInsufficientFunds},
		{"no invoker", "", postArgs(10, 1), contract.ErrUnauthorized},
	}
	f := newFixture(t)
	f.mint(admin, 1000)
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.post(test.caller, test.args)
			require.ErrorIs(t, err, test.expected)
			assert.Empty(t, f.scholarships())
			assert.Equal(t, int64(0), f.custody())
			assert.Equal(t, int64(1000), f.balance(admin))
		})
	}
	// Failed posts never consumed an id
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestPostScholarshipMaxGrants(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, contract.MaxGrants)
	id, err := f.post(admin, postArgs(1, contract.MaxGrants))
	require.NoError(t, err)
	assert.Equal(t, uint32(contract.MaxGrants), f.scholarship(id).GrantsRemaining)
}

func TestApply(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)

	require.NoError(t, f.apply(alice, id))
	apps := f.applications()
	require.Len(t, apps, 1)
	assert.Equal(t, alice, apps[0].Applicant)
	assert.Equal(t, id, apps[0].ScholarshipID)
	assert.Equal(t, contract.StatusPending, apps[0].Status)
	assert.Equal(t, uint64(startTime.Unix()), apps[0].AppliedAt)

	// Duplicate
	require.ErrorIs(t, f.apply(alice, id), contract.ErrAlreadyApplied)
	assert.Len(t, f.applications(), 1)

	require.ErrorIs(t, f.apply(bob, 42), contract.ErrScholarshipNotFound)
	require.ErrorIs(t, f.apply("", id), contract.ErrUnauthorized)
	assert.Len(t, f.applications(), 1)
}

func TestApplyExpiry(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)

	// The end date itself is still open
	f.clock.Set(time.Unix(int64(endDate), 0))
	require.NoError(t, f.apply(alice, id))

	f.clock.Advance(time.Second)
	require.ErrorIs(t, f.apply(bob, id), contract.ErrScholarshipExpired)
	assert.Len(t, f.applications(), 1)
	assert.False(t, f.scholarship(id).Active(endDate+1))
}

func TestApproveApplicant(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	require.NoError(t, f.apply(alice, id))

	require.NoError(t, f.approve(admin, id, alice))
	assert.Equal(t, contract.StatusApproved, f.applications()[0].Status)
	assert.Equal(t, uint32(4), f.scholarship(id).GrantsRemaining)
	assert.Equal(t, int64(100), f.balance(alice))
	assert.Equal(t, int64(400), f.custody())
	f.checkEscrow()
}

func TestApproveByNonCreator(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	require.NoError(t, f.apply(alice, id))

	for _, caller := range []contract.Address{bob, alice, ""} {
		require.ErrorIs(t, f.approve(caller, id, alice), contract.ErrUnauthorized)
		require.ErrorIs(t, f.reject(caller, id, alice), contract.ErrUnauthorized)
	}
	assert.Equal(t, contract.StatusPending, f.applications()[0].Status)
	assert.Equal(t, uint32(5), f.scholarship(id).GrantsRemaining)
	assert.Equal(t, int64(0), f.balance(alice))
	assert.Equal(t, int64(500), f.custody())
}

func TestApproveAlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	require.NoError(t, f.apply(alice, id))
	require.NoError(t, f.apply(bob, id))

	require.NoError(t, f.approve(admin, id, alice))
	require.NoError(t, f.reject(admin, id, bob))

	testDefs := []struct {
		name      string
		applicant contract.Address
		decide    func(contract.Address, uint64, contract.Address) error
	}{
		{"re-approve", alice, f.approve},
		{"reject after approve", alice, f.reject},
		{"approve after reject", bob, f.approve},
		{"re-reject", bob, f.reject},
	}
	for _, test := range testDefs {
		t.Run(test.name, func(t *testing.T) {
			err := test.decide(admin, id, test.applicant)
			require.ErrorIs(t, err, contract.ErrAlreadyProcessed)
			require.ErrorIs(t, err, contract.ErrApplicationNotFound)
			assert.Equal(t, "AlreadyProcessed", contract.ErrorCode(err))
			assert.Equal(t, int64(100), f.balance(alice))
			assert.Equal(t, int64(0), f.balance(bob))
			assert.Equal(t, uint32(4), f.scholarship(id).GrantsRemaining)
			assert.Equal(t, int64(400), f.custody())
		})
	}
}

func TestApproveMissingApplication(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)

	err = f.approve(admin, id, alice)
	require.ErrorIs(t, err, contract.ErrApplicationNotFound)
	require.NotErrorIs(t, err, contract.ErrAlreadyProcessed)
	require.ErrorIs(t, f.reject(admin, id, alice), contract.ErrApplicationNotFound)
	require.ErrorIs(t, f.approve(admin, 99, alice), contract.ErrScholarshipNotFound)
}

func TestApproveNoGrantsAvailable(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 100)
	id, err := f.post(admin, postArgs(100, 1))
	require.NoError(t, err)
	require.NoError(t, f.apply(alice, id))
	require.NoError(t, f.apply(bob, id))
	require.NoError(t, f.approve(admin, id, alice))

	require.ErrorIs(t, f.approve(admin, id, bob), contract.ErrNoGrantsAvailable)
	apps := f.applications()
	require.Len(t, apps, 2)
	assert.Equal(t, contract.StatusPending, apps[1].Status)
	assert.False(t, f.scholarship(id).Active(uint64(startTime.Unix())))

	// Rejection needs no funds
	require.NoError(t, f.reject(admin, id, bob))
	f.checkEscrow()
}

func TestApproveRollsBackOnTransferFault(t *testing.T) {
	for _, mode := range []int32{faultErrorAfterTransfer, faultSilentNoop} {
		f := newFixture(t)
		f.mint(admin, 1000)
		id, err := f.post(admin, postArgs(100, 5))
		require.NoError(t, err)
		require.NoError(t, f.apply(alice, id))

		f.fault.Store(mode)
		err = f.approve(admin, id, alice)
		require.ErrorIs(t, err, contract.ErrInsufficientFunds)
		if mode == faultSilentNoop {
			require.ErrorIs(t, err, contract.ErrTransferIntegrity)
		}
		assert.Equal(t, contract.StatusPending, f.applications()[0].Status)
		assert.Equal(t, uint32(5), f.scholarship(id).GrantsRemaining)
		assert.Equal(t, int64(0), f.balance(alice))
		assert.Equal(t, int64(500), f.custody())

		f.fault.Store(faultNone)
		require.NoError(t, f.approve(admin, id, alice))
		assert.Equal(t, int64(100), f.balance(alice))
		f.checkEscrow()
	}
}

func TestPostRollsBackOnTransferFault(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	f.fault.Store(faultSilentNoop)
	_, err := f.post(admin, postArgs(100, 5))
	require.ErrorIs(t, err, contract.ErrTransferIntegrity)
	f.fault.Store(faultErrorAfterTransfer)
	_, err = f.post(admin, postArgs(100, 5))
	require.ErrorIs(t, err, contract.ErrInsufficientFunds)

	assert.Empty(t, f.scholarships())
	assert.Equal(t, int64(1000), f.balance(admin))
	assert.Equal(t, int64(0), f.custody())

	f.fault.Store(faultNone)
	id, err := f.post(admin, postArgs(100, 5))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 500)
	args := postArgs(100, 5)
	args.Details = "…"
	id, err := f.post(admin, args)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, int64(500), f.custody())

	require.NoError(t, f.apply(alice, id))
	apps := f.applications()
	require.Len(t, apps, 1)
	assert.Equal(t, contract.StatusPending, apps[0].Status)

	require.NoError(t, f.approve(admin, id, alice))
	assert.Equal(t, contract.StatusApproved, f.applications()[0].Status)
	assert.Equal(t, uint32(4), f.scholarship(id).GrantsRemaining)
	assert.Equal(t, int64(100), f.balance(alice))
	assert.Equal(t, int64(400), f.custody())

	err = f.approve(admin, id, alice)
	require.ErrorIs(t, err, contract.ErrAlreadyProcessed)
	assert.Contains(t, err.Error(), "already processed")
	assert.Equal(t, uint32(4), f.scholarship(id).GrantsRemaining)
	assert.Equal(t, int64(100), f.balance(alice))
	assert.Equal(t, int64(400), f.custody())
	f.checkEscrow()
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	f.mint(bob, 1000)
	id1, err := f.post(admin, postArgs(10, 3))
	require.NoError(t, err)
	id2, err := f.post(bob, postArgs(20, 2))
	require.NoError(t, err)
	id3, err := f.post(admin, postArgs(30, 1))
	require.NoError(t, err)

	require.NoError(t, f.apply(alice, id3))
	require.NoError(t, f.apply(alice, id1))
	require.NoError(t, f.apply(admin, id2))

	var mine []contract.Scholarship
	var aliceApps, forID1, all []contract.Application
	_, err = f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		var err error
		if mine, err = f.svc.GetMyScholarships(env, admin); err != nil {
			return nil, err
		}
		if aliceApps, err = f.svc.GetMyApplications(env, alice); err != nil {
			return nil, err
		}
		if forID1, err = f.svc.GetApplicationsForScholarship(env, id1); err != nil {
			return nil, err
		}
		all, err = f.svc.GetApplications(env)
		return nil, err
	})
	require.NoError(t, err)

	require.Len(t, mine, 2)
	assert.Equal(t, id1, mine[0].ID)
	assert.Equal(t, id3, mine[1].ID)

	require.Len(t, aliceApps, 2)
	// Ordered by application id, i.e. submission order
	assert.Equal(t, id3, aliceApps[0].ScholarshipID)
	assert.Equal(t, id1, aliceApps[1].ScholarshipID)
	assert.Less(t, aliceApps[0].ID, aliceApps[1].ID)

	require.Len(t, forID1, 1)
	assert.Equal(t, alice, forID1[0].Applicant)
	require.Len(t, all, 3)

	_, err = f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		ret, err := f.svc.GetApplicationsForScholarship(env, 99)
		assert.Empty(t, ret)
		return nil, err
	})
	require.NoError(t, err)
	_, err = f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		_, err := f.svc.GetScholarship(env, 99)
		return nil, err
	})
	require.ErrorIs(t, err, contract.ErrScholarshipNotFound)
	_, err = f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		ret, err := f.svc.GetMyApplications(env, "")
		assert.Empty(t, ret)
		return nil, err
	})
	require.NoError(t, err)
}

func TestViewHasNoInvoker(t *testing.T) {
	f := newFixture(t)
	f.mint(admin, 1000)
	_, err := f.h.View(f.ctx, func(env contract.Env) ([]byte, error) {
		return nil, f.svc.Apply(env, &contract.ApplyArgs{ScholarshipID: 1})
	})
	require.ErrorIs(t, err, contract.ErrUnauthorized)
}
