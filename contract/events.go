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
	"math/big"
)

type EventType string

const (
	EventScholarshipPosted    EventType = "scholarship.posted"
	EventApplicationSubmitted EventType = "application.submitted"
	EventApplicationApproved  EventType = "application.approved"
	EventApplicationRejected  EventType = "application.rejected"
)

// Event describes a state change made by a successful invocation. Actor is
// the principal that caused it; Subject is the affected principal, if any.
type Event struct {
	Type          EventType
	ScholarshipID uint64
	Actor         Address
	Subject       Address
	Amount        *big.Int
}
