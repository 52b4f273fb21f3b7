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
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
)

// Host methods available alongside the contract entry points
const (
	MethodTokenMint    = "token.mint"
	MethodTokenBalance = "token.balance"
)

type MintArgs struct {
	cbor.StructAsArray
	To     contract.Address
	Amount *big.Int
}

type BalanceArgs struct {
	cbor.StructAsArray
	Address contract.Address
}

func knownMethod(method string) bool {
	switch method {
	case MethodTokenMint, MethodTokenBalance:
		return true
	default:
		return contract.Known(method)
	}
}

func readOnlyMethod(method string) bool {
	return method == MethodTokenBalance || contract.IsReadOnly(method)
}

// Submit verifies the envelope's signatures and nonce and runs the requested
// method as one invocation. It returns the CBOR encoded result. The nonce is
// consumed even when the method fails, so a signed envelope runs at most once.
func (h *Host) Submit(ctx context.Context, envelope *Envelope) ([]byte, error) {
	if !knownMethod(envelope.Method) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, envelope.Method)
	}
	signers, err := envelope.verify(h.contractAddr)
	if err != nil {
		return nil, err
	}
	ret, err := h.invoke(
		ctx,
		envelope.Method,
		signers,
		func(env *invocationEnv) ([]byte, error) {
			if err := env.consumeNonce(envelope.Nonce); err != nil {
				return nil, err
			}
			return h.dispatch(env, envelope.Method, envelope.Args)
		},
	)
	if err != nil && !keepsNonce(err) {
		if burnErr := h.burnNonce(signers, envelope.Nonce); burnErr != nil {
			h.logger.Warn(
				"failed to consume nonce of failed invocation",
				"method", envelope.Method,
				"nonce", envelope.Nonce,
				"error", burnErr,
			)
		}
	}
	return ret, err
}

// keepsNonce reports whether a failed invocation left the envelope's nonce
// untouched on purpose or already recorded it
func keepsNonce(err error) bool {
	return errors.Is(err, ErrStaleNonce) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, database.ErrPartialCommit)
}

// burnNonce records nonce for every signer in a transaction of its own
func (h *Host) burnNonce(signers []contract.Address, nonce uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ledgerTime := uint64(h.clock.Now().Unix()) //nolint:gosec
	txn := h.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		return h.newEnv(txn, ledgerTime, signers).consumeNonce(nonce)
	})
}

// Query runs a read-only method without signatures
func (h *Host) Query(
	ctx context.Context,
	method string,
	args []byte,
) ([]byte, error) {
	if !knownMethod(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if !readOnlyMethod(method) {
		return nil, fmt.Errorf("%w: %s", ErrNotReadOnly, method)
	}
	return h.View(ctx, func(env contract.Env) ([]byte, error) {
		return h.dispatch(env.(*invocationEnv), method, args)
	})
}

// NextNonce returns the lowest nonce addr may sign with next
func (h *Host) NextNonce(ctx context.Context, addr contract.Address) (uint64, error) {
	var ret uint64
	_, err := h.View(ctx, func(env contract.Env) ([]byte, error) {
		last, err := lastNonce(
			txnStorage{txn: env.(*invocationEnv).txn},
			addr,
		)
		ret = last + 1
		return nil, err
	})
	return ret, err
}

func (h *Host) dispatch(
	env *invocationEnv,
	method string,
	args []byte,
) ([]byte, error) {
	switch method {
	case MethodTokenMint:
		var tmp MintArgs
		if _, err := cbor.Decode(args, &tmp); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", method, err)
		}
		return nil, env.ledger.Mint(tmp.To, tmp.Amount)
	case MethodTokenBalance:
		var tmp BalanceArgs
		if _, err := cbor.Decode(args, &tmp); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", method, err)
		}
		bal, err := env.ledger.Balance(tmp.Address)
		if err != nil {
			return nil, err
		}
		return cbor.Encode(bal)
	default:
		return h.service.Dispatch(env, method, args)
	}
}
