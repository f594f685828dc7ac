// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
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

package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressRoundTrip(t *testing.T) {
	s := "0:ab" + "cd"
	for len(s) < len("0:")+64 {
		s += "0"
	}
	a, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, int8(0), a.Workchain)
	assert.Equal(t, s, a.String())

	b := NewBuilder()
	require.NoError(t, a.StoreTo(b))
	assert.Equal(t, AddressActualBits, b.BitsUsed())

	a2, err := LoadAddress(b.EndCell().BeginParse())
	require.NoError(t, err)
	assert.Equal(t, a.Workchain, a2.Workchain)
	assert.Equal(t, a.Account, a2.Account)
}

func TestParseAddressNegativeWorkchain(t *testing.T) {
	s := "-1:" + stringRepeat("0a", 32)
	a, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, int8(-1), a.Workchain)
}

func TestParseAddressInvalid(t *testing.T) {
	_, err := ParseAddress("not-an-address")
	assert.Error(t, err)

	_, err = ParseAddress("0:tooshort")
	assert.Error(t, err)

	_, err = ParseAddress("zz:" + stringRepeat("00", 32))
	assert.Error(t, err)
}

func stringRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
