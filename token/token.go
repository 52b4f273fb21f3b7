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

// Package token implements the fungible asset used to fund and pay out
// scholarships. Balances live in the same transaction as contract state.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/descholar/contract"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid token amount")
	ErrNotAuthorized       = errors.New("transfer not authorized")
	errCorruptBalance      = errors.New("corrupt balance record")
)

// Store is the key-value view of the current transaction
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
}

// Authorizer checks that an address authorized the current invocation
type Authorizer interface {
	RequireAuth(addr contract.Address) error
}

// Ledger tracks balances of a single token. It implements
// contract.TokenClient.
type Ledger struct {
	symbol string
	issuer contract.Address
	store  Store
	auth   Authorizer
}

var _ contract.TokenClient = (*Ledger)(nil)

func NewLedger(
	symbol string,
	issuer contract.Address,
	store Store,
	auth Authorizer,
) *Ledger {
	return &Ledger{
		symbol: symbol,
		issuer: issuer,
		store:  store,
		auth:   auth,
	}
}

func (l *Ledger) Symbol() string {
	return l.symbol
}

func (l *Ledger) Issuer() contract.Address {
	return l.issuer
}

// BalanceKey returns the storage key holding the balance of addr
func BalanceKey(symbol string, addr contract.Address) []byte {
	return []byte("token/" + symbol + "/balance/" + string(addr))
}

func (l *Ledger) Balance(addr contract.Address) (*big.Int, error) {
	val, ok, err := l.store.Get(BalanceKey(l.symbol, addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return decodeBalance(val)
}

func (l *Ledger) setBalance(addr contract.Address, v *big.Int) error {
	return l.store.Set(BalanceKey(l.symbol, addr), encodeBalance(v))
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if !contract.InAmountRange(amount) {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return nil
}

// Transfer moves amount from one address to another. The sender must have
// authorized the invocation.
func (l *Ledger) Transfer(from, to contract.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.auth.RequireAuth(from); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotAuthorized, from, err)
	}
	fromBal, err := l.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s has %s, needs %s",
			ErrInsufficientBalance,
			from,
			fromBal,
			amount,
		)
	}
	if from == to {
		return nil
	}
	toBal, err := l.Balance(to)
	if err != nil {
		return err
	}
	newTo, err := contract.CheckedAdd(toBal, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s: %w", ErrInvalidAmount, to, err)
	}
	newFrom, err := contract.CheckedSub(fromBal, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s: %w", ErrInvalidAmount, from, err)
	}
	if err := l.setBalance(from, newFrom); err != nil {
		return err
	}
	return l.setBalance(to, newTo)
}

// Mint creates amount new tokens for the given address. The issuer must have
// authorized the invocation.
func (l *Ledger) Mint(to contract.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if l.issuer == "" {
		return fmt.Errorf("%w: no issuer configured", ErrNotAuthorized)
	}
	if err := l.auth.RequireAuth(l.issuer); err != nil {
		return fmt.Errorf("%w: issuer %s: %w", ErrNotAuthorized, l.issuer, err)
	}
	bal, err := l.Balance(to)
	if err != nil {
		return err
	}
	newBal, err := contract.CheckedAdd(bal, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s: %w", ErrInvalidAmount, to, err)
	}
	return l.setBalance(to, newBal)
}

// Balances are stored as a sign byte followed by the big-endian magnitude
func encodeBalance(v *big.Int) []byte {
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	return append([]byte{sign}, v.Bytes()...)
}

func decodeBalance(data []byte) (*big.Int, error) {
	if len(data) == 0 || len(data) > 17 || data[0] > 1 {
		return nil, fmt.Errorf("%w: %x", errCorruptBalance, data)
	}
	ret := new(big.Int).SetBytes(data[1:])
	if data[0] == 1 {
		ret.Neg(ret)
	}
	return ret, nil
}
