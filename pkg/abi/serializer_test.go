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

package abi

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everx-labs/ever-abi/pkg/cell"
)

func roundTripOne(t *testing.T, version Version, pt ParamType, tv TokenValue) TokenValue {
	ctx := context.Background()
	sv, err := SerializeValueCtx(ctx, version, pt, tv)
	require.NoError(t, err)
	c := sv.Builder.EndCell()
	cur := NewCursor(c)
	out, err := DeserializeValueCtx(ctx, version, pt, cur, "v")
	require.NoError(t, err)
	return out
}

func TestSerializeScalarsRoundTrip(t *testing.T) {
	got := roundTripOne(t, Version2_2, UintType(64), UintToken(64, big.NewInt(123456789)))
	assert.Equal(t, big.NewInt(123456789), got.Int)

	got = roundTripOne(t, Version2_2, IntType(32), IntToken(32, big.NewInt(-777)))
	assert.Equal(t, big.NewInt(-777), got.Int)

	got = roundTripOne(t, Version2_2, BoolType(), BoolToken(true))
	assert.True(t, got.Bool)

	got = roundTripOne(t, Version2_2, TimeType(), TimeToken(big.NewInt(1700000000000)))
	assert.Equal(t, big.NewInt(1700000000000), got.Int)
}

func TestSerializeVarUintRoundTrip(t *testing.T) {
	got := roundTripOne(t, Version2_2, VarUintType(16), VarUintToken(big.NewInt(0)))
	assert.Equal(t, big.NewInt(0), got.Int)

	got = roundTripOne(t, Version2_2, VarUintType(16), VarUintToken(big.NewInt(987654321)))
	assert.Equal(t, big.NewInt(987654321), got.Int)
}

func TestSerializeStringRoundTrip(t *testing.T) {
	got := roundTripOne(t, Version2_2, StringType(), StringToken("hello ever-abi"))
	assert.Equal(t, "hello ever-abi", got.Str)

	long := make([]byte, 300)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	got = roundTripOne(t, Version2_2, StringType(), StringToken(string(long)))
	assert.Equal(t, string(long), got.Str)
}

func TestSerializeBytesRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xFF}
	got := roundTripOne(t, Version2_2, BytesType(), BytesToken(data))
	assert.Equal(t, data, got.Bytes)
}

func TestSerializeAddressRoundTrip(t *testing.T) {
	addr, err := cell.ParseAddress("0:" + stringRepeatHex("ab", 32))
	require.NoError(t, err)
	got := roundTripOne(t, Version2_2, AddressType(), AddressToken(addr))
	assert.Equal(t, addr.Workchain, got.Addr.Workchain)
	assert.Equal(t, addr.Account, got.Addr.Account)
}

func stringRepeatHex(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestSerializeArrayRoundTrip(t *testing.T) {
	ctx := context.Background()
	elem := UintType(32)
	items := []TokenValue{
		UintToken(32, big.NewInt(1)),
		UintToken(32, big.NewInt(2)),
		UintToken(32, big.NewInt(3)),
	}
	arrType := ArrayType(elem)
	sv, err := SerializeValueCtx(ctx, Version2_2, arrType, ArrayToken(items))
	require.NoError(t, err)
	cur := NewCursor(sv.Builder.EndCell())
	out, err := DeserializeValueCtx(ctx, Version2_2, arrType, cur, "arr")
	require.NoError(t, err)
	require.Len(t, out.Array, 3)
	for i, item := range out.Array {
		assert.Equal(t, items[i].Int, item.Int)
	}
}

func TestSerializeMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	mt := MapType(UintType(32), BoolType())
	entries := []MapEntry{
		{Key: UintToken(32, big.NewInt(1)), Value: BoolToken(true)},
		{Key: UintToken(32, big.NewInt(2)), Value: BoolToken(false)},
	}
	sv, err := SerializeValueCtx(ctx, Version2_2, mt, MapToken(entries))
	require.NoError(t, err)
	cur := NewCursor(sv.Builder.EndCell())
	out, err := DeserializeValueCtx(ctx, Version2_2, mt, cur, "m")
	require.NoError(t, err)
	require.Len(t, out.Map, 2)
}

func TestSerializeTupleFlattening(t *testing.T) {
	ctx := context.Background()
	tupType := TupleType([]Param{
		{Name: "a", Type: UintType(8)},
		{Name: "b", Type: BoolType()},
	})
	params := []Param{{Name: "t", Type: tupType}}
	tokens := []NamedToken{{Name: "t", Value: TupleToken([]NamedToken{
		{Name: "a", Value: UintToken(8, big.NewInt(7))},
		{Name: "b", Value: BoolToken(true)},
	})}}

	svs, err := SerializeParamsCtx(ctx, Version2_2, params, tokens)
	require.NoError(t, err)
	require.Len(t, svs, 2)

	b, err := PackChain(ctx, Version2_2, nil, svs)
	require.NoError(t, err)

	cur := NewCursor(b.EndCell())
	out, err := DeserializeParamsCtx(ctx, Version2_2, params, cur, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Value.Tuple, 2)
	assert.Equal(t, big.NewInt(7), out[0].Value.Tuple[0].Value.Int)
	assert.True(t, out[0].Value.Tuple[1].Value.Bool)
}

func TestPackChainSpillsAcrossCells(t *testing.T) {
	ctx := context.Background()
	params := make([]Param, 0, 40)
	tokens := make([]NamedToken, 0, 40)
	for i := 0; i < 40; i++ {
		name := "f"
		params = append(params, Param{Name: name, Type: UintType(256)})
		tokens = append(tokens, NamedToken{Name: name, Value: UintToken(256, big.NewInt(int64(i)))})
	}
	svs, err := SerializeParamsCtx(ctx, Version2_2, params, tokens)
	require.NoError(t, err)
	b, err := PackChain(ctx, Version2_2, nil, svs)
	require.NoError(t, err)
	root := b.EndCell()
	assert.Greater(t, root.RefsCount(), 0)

	cur := NewCursor(root)
	out, err := DeserializeParamsCtx(ctx, Version2_2, params, cur, false)
	require.NoError(t, err)
	require.Len(t, out, 40)
	for i, nt := range out {
		assert.Equal(t, big.NewInt(int64(i)), nt.Value.Int)
	}
}
