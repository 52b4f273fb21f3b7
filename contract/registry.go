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

package contract

import (
	"fmt"
	"math/big"
)

// MaxGrants is the largest number of grants a single scholarship may offer
const MaxGrants = 1000

// registry owns scholarship records and the scholarship id counter
type registry struct {
	env Env
	st  store
}

func newRegistry(env Env) registry {
	return registry{env: env, st: store{s: env.Storage()}}
}

func validatePost(args *PostScholarshipArgs, now uint64) error {
	if args.GrantAmount == nil || args.GrantAmount.Sign() <= 0 {
		return fmt.Errorf("%w: grant amount must be positive", ErrInvalidAmount)
	}
	if !InAmountRange(args.GrantAmount) {
		return fmt.Errorf("%w: grant amount out of range", ErrInvalidAmount)
	}
	if args.NumberOfGrants == 0 {
		return fmt.Errorf("%w: number of grants must be positive", ErrInvalidAmount)
	}
	if args.NumberOfGrants > MaxGrants {
		return fmt.Errorf(
			"%w: number of grants %d exceeds %d",
			ErrInvalidAmount,
			args.NumberOfGrants,
			MaxGrants,
		)
	}
	if args.EndDate <= now {
		return fmt.Errorf(
			"%w: end date %d is not after %d",
			ErrScholarshipExpired,
			args.EndDate,
			now,
		)
	}
	return nil
}

// post escrows the full grant total from the invoker and records a new
// scholarship
func (r registry) post(args *PostScholarshipArgs) (*Scholarship, error) {
	now := r.env.LedgerTimestamp()
	if err := validatePost(args, now); err != nil {
		return nil, err
	}
	creator, err := requireInvoker(r.env)
	if err != nil {
		return nil, err
	}
	total, err := CheckedMul(
		args.GrantAmount,
		new(big.Int).SetUint64(uint64(args.NumberOfGrants)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: total: %w", ErrInvalidAmount, err)
	}
	if err := (escrow{env: r.env}).pull(creator, total); err != nil {
		return nil, err
	}
	id, err := r.st.nextID(keyScholarshipCounter)
	if err != nil {
		return nil, err
	}
	s := &Scholarship{
		ID:              id,
		Name:            args.Name,
		Details:         args.Details,
		GrantAmount:     new(big.Int).Set(args.GrantAmount),
		NumberOfGrants:  args.NumberOfGrants,
		GrantsRemaining: args.NumberOfGrants,
		EndDate:         args.EndDate,
		Creator:         creator,
		CreatedAt:       now,
	}
	if err := r.st.putScholarship(s); err != nil {
		return nil, err
	}
	r.env.Publish(Event{
		Type:          EventScholarshipPosted,
		ScholarshipID: id,
		Actor:         creator,
		Amount:        total,
	})
	return s, nil
}

func (r registry) get(id uint64) (*Scholarship, error) {
	return r.st.getScholarship(id)
}

// decrementGrant reduces the remaining grant count of s by one and persists it
func (r registry) decrementGrant(s *Scholarship) error {
	if s.GrantsRemaining == 0 {
		return fmt.Errorf("%w: scholarship %d", ErrNoGrantsAvailable, s.ID)
	}
	s.GrantsRemaining--
	return r.st.putScholarship(s)
}

func (r registry) list(creator Address) ([]Scholarship, error) {
	if creator == "" {
		return r.st.scholarships(nil)
	}
	return r.st.scholarships(func(s *Scholarship) bool {
		return s.Creator == creator
	})
}
