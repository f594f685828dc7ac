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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafFor(v uint64) *Builder {
	b := NewBuilder()
	_ = b.StoreUint(v, 32)
	return b
}

func TestHashmapEEmpty(t *testing.T) {
	present, root, err := BuildHashmapE(32, nil)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, root)

	b := NewBuilder()
	require.NoError(t, b.StoreBit(present))
	entries, err := ParseHashmapE(b.EndCell().BeginParse(), 32)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHashmapERoundTrip(t *testing.T) {
	entries := []DictEntry{
		{Key: big.NewInt(0), Value: leafFor(100)},
		{Key: big.NewInt(1), Value: leafFor(200)},
		{Key: big.NewInt(5), Value: leafFor(300)},
		{Key: big.NewInt(255), Value: leafFor(400)},
	}
	present, root, err := BuildHashmapE(32, entries)
	require.NoError(t, err)
	require.True(t, present)

	b := NewBuilder()
	require.NoError(t, b.StoreBit(true))
	require.NoError(t, b.StoreRef(root))

	decoded, err := ParseHashmapE(b.EndCell().BeginParse(), 32)
	require.NoError(t, err)
	require.Len(t, decoded, 4)

	sort.Slice(decoded, func(i, j int) bool { return decoded[i].Key.Cmp(decoded[j].Key) < 0 })
	wantKeys := []int64{0, 1, 5, 255}
	wantVals := []uint64{100, 200, 300, 400}
	for i, d := range decoded {
		assert.Equal(t, wantKeys[i], d.Key.Int64())
		v, err := d.Value.LoadUint(32)
		require.NoError(t, err)
		assert.Equal(t, wantVals[i], v)
	}
}

func TestHashmapEDuplicateKeyRejected(t *testing.T) {
	entries := []DictEntry{
		{Key: big.NewInt(7), Value: leafFor(1)},
		{Key: big.NewInt(7), Value: leafFor(2)},
	}
	_, _, err := BuildHashmapE(32, entries)
	assert.Error(t, err)
}

func TestHashmapEKeyTooWide(t *testing.T) {
	entries := []DictEntry{
		{Key: big.NewInt(1 << 20), Value: leafFor(1)},
	}
	_, _, err := BuildHashmapE(8, entries)
	assert.Error(t, err)
}

func TestHashmapESingleEntry(t *testing.T) {
	entries := []DictEntry{{Key: big.NewInt(42), Value: leafFor(99)}}
	present, root, err := BuildHashmapE(16, entries)
	require.NoError(t, err)
	require.True(t, present)

	decoded, err := walkEdgeForTest(root, 16)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(42), decoded[0].Key.Int64())
}

func walkEdgeForTest(root *Cell, keyBits int) ([]DictValue, error) {
	var out []DictValue
	if err := walkEdge(root.BeginParse(), keyBits, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
