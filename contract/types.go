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

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Address identifies a principal: a signer, a scholarship creator, an
// applicant, or the contract's own custody account
type Address string

func (a Address) String() string {
	return string(a)
}

// ApplicationStatus is the lifecycle state of an application
type ApplicationStatus uint8

const (
	StatusPending ApplicationStatus = iota
	StatusApproved
	StatusRejected
)

func (s ApplicationStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("ApplicationStatus(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is allowed out of s
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case StatusPending:
		return false
	case StatusApproved, StatusRejected:
		return true
	default:
		// Unknown states are never transitioned
		return true
	}
}

// Scholarship is a funded grant program. GrantsRemaining is the only field
// that changes after posting.
type Scholarship struct {
	cbor.StructAsArray
	ID              uint64
	Name            string
	Details         string
	GrantAmount     *big.Int
	NumberOfGrants  uint32
	GrantsRemaining uint32
	EndDate         uint64
	Creator         Address
	CreatedAt       uint64
}

// Expired reports whether the application window has closed at ledger time now
func (s *Scholarship) Expired(now uint64) bool {
	return now > s.EndDate
}

// Active reports whether the scholarship still accepts applications and has
// grants left to award
func (s *Scholarship) Active(now uint64) bool {
	return !s.Expired(now) && s.GrantsRemaining > 0
}

// Outstanding returns the escrow still owed: GrantsRemaining * GrantAmount
func (s *Scholarship) Outstanding() (*big.Int, error) {
	return CheckedMul(
		s.GrantAmount,
		new(big.Int).SetUint64(uint64(s.GrantsRemaining)),
	)
}

// Application is a candidate's request for one grant of a scholarship
type Application struct {
	cbor.StructAsArray
	ID            uint64
	ScholarshipID uint64
	Applicant     Address
	Name          string
	Details       string
	Status        ApplicationStatus
	AppliedAt     uint64
}
