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

package token_test

import (
	"math/big"
	"testing"

	"github.com/blinklabs-io/descholar/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	testDefs := []struct {
		input    string
		decimals int32
		expected int64
	}{
		{"100", 0, 100},
		{"12.5", 2, 1250},
		{"0.0000001", 7, 1},
		{"-3", 1, -30},
	}
	for _, test := range testDefs {
		v, err := token.ParseAmount(test.input, test.decimals)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.expected, v.Int64(), test.input)
	}
}

func TestParseAmountErrors(t *testing.T) {
	_, err := token.ParseAmount("abc", 2)
	require.ErrorIs(t, err, token.ErrInvalidAmount)
	_, err = token.ParseAmount("1.234", 2)
	require.ErrorIs(t, err, token.ErrInvalidAmount)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.50", token.FormatAmount(big.NewInt(1250), 2))
	assert.Equal(t, "100", token.FormatAmount(big.NewInt(100), 0))
	assert.Equal(t, "0.0000001", token.FormatAmount(big.NewInt(1), 7))
	assert.Equal(t, "0.00", token.FormatAmount(nil, 2))
}
