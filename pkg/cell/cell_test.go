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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSliceRoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreBit(true))
	require.NoError(t, b.StoreBit(false))
	require.NoError(t, b.StoreUint(0xAB, 8))
	require.NoError(t, b.StoreBigUint(big.NewInt(123456789), 40))
	require.NoError(t, b.StoreBigInt(big.NewInt(-42), 16))
	require.NoError(t, b.StoreRaw([]byte{0xFF, 0x00}, 16))

	c := b.EndCell()
	assert.Equal(t, 2+8+40+16+16, c.BitLen())

	s := c.BeginParse()
	bit1, err := s.LoadBit()
	require.NoError(t, err)
	assert.True(t, bit1)
	bit2, err := s.LoadBit()
	require.NoError(t, err)
	assert.False(t, bit2)

	v8, err := s.LoadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB), v8)

	vBig, err := s.LoadBigUint(40)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(123456789), vBig)

	vSigned, err := s.LoadBigInt(16)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(-42), vSigned)

	raw, err := s.LoadRaw(16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x00}, raw)

	assert.Equal(t, 0, s.RemainingBits())
}

func TestBuilderOverflow(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreBigUint(big.NewInt(0), MaxBits))
	assert.Error(t, b.StoreBit(true))
}

func TestBuilderRefLimit(t *testing.T) {
	b := NewBuilder()
	leaf := NewCell(nil, 0, nil)
	for i := 0; i < MaxRefs; i++ {
		require.NoError(t, b.StoreRef(leaf))
	}
	assert.Error(t, b.StoreRef(leaf))
}

func TestSliceUnderrun(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreUint(1, 4))
	s := b.EndCell().BeginParse()
	_, err := s.LoadUint(8)
	assert.Error(t, err)
}

func TestCellHashStable(t *testing.T) {
	b1 := NewBuilder()
	require.NoError(t, b1.StoreUint(42, 16))
	c1 := b1.EndCell()

	b2 := NewBuilder()
	require.NoError(t, b2.StoreUint(42, 16))
	c2 := b2.EndCell()

	assert.Equal(t, c1.Hash(), c2.Hash())

	b3 := NewBuilder()
	require.NoError(t, b3.StoreUint(43, 16))
	c3 := b3.EndCell()
	assert.NotEqual(t, c1.Hash(), c3.Hash())
}

func TestCellDepth(t *testing.T) {
	leaf := NewCell(nil, 0, nil)
	mid := NewCell(nil, 0, []*Cell{leaf})
	top := NewCell(nil, 0, []*Cell{mid})
	assert.Equal(t, 0, leaf.Depth())
	assert.Equal(t, 1, mid.Depth())
	assert.Equal(t, 2, top.Depth())
}

func TestAppendBuilderDoesNotFinalizeOther(t *testing.T) {
	other := NewBuilder()
	require.NoError(t, other.StoreUint(7, 4))

	dst := NewBuilder()
	require.NoError(t, dst.AppendBuilder(other))
	require.NoError(t, other.StoreUint(8, 4))

	assert.Equal(t, 4, dst.BitsUsed())
	assert.Equal(t, 8, other.BitsUsed())
}
