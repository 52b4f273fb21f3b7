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

// escrow moves funds in and out of the contract's custody account and checks
// that the custody balance moved by exactly the transferred amount
type escrow struct {
	env Env
}

func (e escrow) custody() Address {
	return e.env.CurrentContractAddress()
}

// balance returns the contract's current custody balance
func (e escrow) balance() (*big.Int, error) {
	return e.env.Token().Balance(e.custody())
}

// pull transfers amount from the given address into custody
func (e escrow) pull(from Address, amount *big.Int) error {
	before, err := e.balance()
	if err != nil {
		return err
	}
	if err := e.env.Token().Transfer(from, e.custody(), amount); err != nil {
		return fmt.Errorf("%w: pull from %s: %w", ErrInsufficientFunds, from, err)
	}
	expected, err := CheckedAdd(before, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferIntegrity, err)
	}
	return e.verify(expected)
}

// push transfers amount out of custody to the given address
func (e escrow) push(to Address, amount *big.Int) error {
	before, err := e.balance()
	if err != nil {
		return err
	}
	if err := e.env.Token().Transfer(e.custody(), to, amount); err != nil {
		return fmt.Errorf("%w: push to %s: %w", ErrInsufficientFunds, to, err)
	}
	expected, err := CheckedSub(before, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferIntegrity, err)
	}
	return e.verify(expected)
}

func (e escrow) verify(expected *big.Int) error {
	after, err := e.balance()
	if err != nil {
		return err
	}
	if after.Cmp(expected) != 0 {
		return fmt.Errorf(
			"%w: custody balance %s, expected %s",
			ErrTransferIntegrity,
			after,
			expected,
		)
	}
	return nil
}
