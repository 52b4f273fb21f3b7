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
	"errors"
	"math/big"
)

var ErrOverflow = errors.New("arithmetic overflow")

var (
	// MaxAmount is the largest value of a signed 128-bit amount
	MaxAmount = new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 127),
		big.NewInt(1),
	)
	// MinAmount is the smallest value of a signed 128-bit amount
	MinAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// InAmountRange reports whether v fits in a signed 128-bit integer
func InAmountRange(v *big.Int) bool {
	if v == nil {
		return false
	}
	return v.Cmp(MinAmount) >= 0 && v.Cmp(MaxAmount) <= 0
}

func checkedResult(v *big.Int) (*big.Int, error) {
	if !InAmountRange(v) {
		return nil, ErrOverflow
	}
	return v, nil
}

// CheckedAdd returns a+b or ErrOverflow if the result leaves the 128-bit range
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if !InAmountRange(a) || !InAmountRange(b) {
		return nil, ErrOverflow
	}
	return checkedResult(new(big.Int).Add(a, b))
}

// CheckedSub returns a-b or ErrOverflow if the result leaves the 128-bit range
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if !InAmountRange(a) || !InAmountRange(b) {
		return nil, ErrOverflow
	}
	return checkedResult(new(big.Int).Sub(a, b))
}

// CheckedMul returns a*b or ErrOverflow if the result leaves the 128-bit range
func CheckedMul(a, b *big.Int) (*big.Int, error) {
	if !InAmountRange(a) || !InAmountRange(b) {
		return nil, ErrOverflow
	}
	return checkedResult(new(big.Int).Mul(a, b))
}
