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

package host

import (
	"fmt"
	"slices"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/token"
)

// invocationEnv is the contract.Env for one invocation. It lives only as long
// as the transaction it wraps.
type invocationEnv struct {
	txn          *database.Txn
	ledgerTime   uint64
	signers      []contract.Address
	contractAddr contract.Address
	ledger       *token.Ledger
	tokenClient  contract.TokenClient
	events       []contract.Event
	nonce        uint64
}

func (h *Host) newEnv(
	txn *database.Txn,
	ledgerTime uint64,
	signers []contract.Address,
) *invocationEnv {
	env := &invocationEnv{
		txn:          txn,
		ledgerTime:   ledgerTime,
		signers:      slices.Clone(signers),
		contractAddr: h.contractAddr,
	}
	env.ledger = token.NewLedger(
		h.tokenSymbol,
		h.tokenIssuer,
		txnStorage{txn: txn},
		env,
	)
	env.tokenClient = env.ledger
	if h.tokenMiddleware != nil {
		env.tokenClient = h.tokenMiddleware(env.ledger)
	}
	return env
}

func (e *invocationEnv) Storage() contract.Storage {
	return txnStorage{txn: e.txn, prefix: contractPrefix}
}

func (e *invocationEnv) LedgerTimestamp() uint64 {
	return e.ledgerTime
}

func (e *invocationEnv) Invoker() contract.Address {
	if len(e.signers) == 0 {
		return ""
	}
	return e.signers[0]
}

// RequireAuth succeeds for any verified signer and for the contract itself
func (e *invocationEnv) RequireAuth(addr contract.Address) error {
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrNotSigned)
	}
	if addr == e.contractAddr || slices.Contains(e.signers, addr) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotSigned, addr)
}

func (e *invocationEnv) CurrentContractAddress() contract.Address {
	return e.contractAddr
}

func (e *invocationEnv) Token() contract.TokenClient {
	return e.tokenClient
}

func (e *invocationEnv) Publish(evt contract.Event) {
	e.events = append(e.events, evt)
}
