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

// Storage is the contract's view of the persistent store for the current
// invocation. Writes become durable only if the invocation succeeds.
type Storage interface {
	// Get returns the value for key and whether it was present
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	// Iterate calls fn for each key with the given prefix in key order
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// TokenClient is the fungible asset transfer capability provided by the host
type TokenClient interface {
	Balance(addr Address) (*big.Int, error)
	Transfer(from, to Address, amount *big.Int) error
}

// Env is everything the contract may observe or affect during one invocation
type Env interface {
	Storage() Storage
	// LedgerTimestamp is the ledger time of the invocation in unix seconds
	LedgerTimestamp() uint64
	// Invoker is the authenticated principal that submitted the invocation,
	// or empty for unsigned read queries
	Invoker() Address
	// RequireAuth fails unless addr authorized the invocation
	RequireAuth(addr Address) error
	CurrentContractAddress() Address
	Token() TokenClient
	Publish(evt Event)
}
