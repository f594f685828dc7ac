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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/everx-labs/ever-abi/pkg/cell"
)

func simpleFunction(t *testing.T, version Version, header []Param) *FunctionSpec {
	f, err := NewFunctionSpecCtx(context.Background(), "transfer",
		version, header,
		[]Param{{Name: "to", Type: AddressType()}, {Name: "amount", Type: UintType(128)}},
		[]Param{{Name: "ok", Type: BoolType()}},
		nil,
	)
	require.NoError(t, err)
	return f
}

func TestFunctionSelectorsComplementary(t *testing.T) {
	f := simpleFunction(t, Version2_2, nil)
	assert.Equal(t, f.InputID&^(uint32(1)<<31), f.InputID)
	assert.Equal(t, f.OutputID, f.InputID|(uint32(1)<<31))
	assert.True(t, f.IsMyInputMessage(f.InputID))
	assert.True(t, f.IsMyOutputMessage(f.OutputID))
	assert.False(t, f.IsMyInputMessage(f.OutputID))
}

func TestFunctionExplicitIDOverride(t *testing.T) {
	ctx := context.Background()
	id := uint32(0x7fffffff)
	f, err := NewFunctionSpecCtx(ctx, "foo", Version2_2, nil, nil, nil, &id)
	require.NoError(t, err)
	assert.Equal(t, id, f.InputID)
	assert.Equal(t, id|(uint32(1)<<31), f.OutputID)
}

func TestFunctionEncodeDecodeInputUnsignedV2(t *testing.T) {
	ctx := context.Background()
	f := simpleFunction(t, Version2_2, nil)
	addr, err := cell.ParseAddress("0:" + stringRepeatHex("ab", 32))
	require.NoError(t, err)

	body, err := f.EncodeInputCtx(ctx, nil, map[string]interface{}{
		"to":     addr.String(),
		"amount": "1000",
	}, nil, nil)
	require.NoError(t, err)

	_, inputs, err := f.DecodeInputCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "amount", inputs[1].Name)
}

func TestFunctionEncodeDecodeInputSignedV23(t *testing.T) {
	ctx := context.Background()
	f := simpleFunction(t, Version2_3, nil)
	addr, err := cell.ParseAddress("0:" + stringRepeatHex("cd", 32))
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub

	body, err := f.EncodeInputCtx(ctx, nil, map[string]interface{}{
		"to":     addr.String(),
		"amount": "42",
	}, addr, priv)
	require.NoError(t, err)

	_, inputs, err := f.DecodeInputCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "to", inputs[0].Name)
}

func TestFunctionEncodeInputV23RequiresAddress(t *testing.T) {
	ctx := context.Background()
	f := simpleFunction(t, Version2_3, nil)
	_, err := f.EncodeInputCtx(ctx, nil, map[string]interface{}{
		"to":     "0:" + stringRepeatHex("00", 32),
		"amount": "1",
	}, nil, nil)
	assert.Error(t, err)
}

func TestFunctionEncodeDecodeOutput(t *testing.T) {
	ctx := context.Background()
	f := simpleFunction(t, Version2_2, nil)
	body, err := f.EncodeOutputCtx(ctx, map[string]interface{}{"ok": true})
	require.NoError(t, err)

	out, err := f.DecodeOutputCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Value.Bool)
}

func TestFunctionHeaderDefaultAndPubkeyInjection(t *testing.T) {
	ctx := context.Background()
	header := []Param{{Name: "pubkey", Type: PublicKeyType()}, {Name: "time", Type: TimeType()}}
	f := simpleFunction(t, Version2_2, header)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr, err := cell.ParseAddress("0:" + stringRepeatHex("11", 32))
	require.NoError(t, err)

	body, err := f.EncodeInputCtx(ctx, map[string]interface{}{"time": "1700000000000"},
		map[string]interface{}{"to": addr.String(), "amount": "1"}, addr, priv)
	require.NoError(t, err)

	hdr, _, err := f.DecodeInputCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, hdr, 2)
	assert.Equal(t, []byte(pub), hdr[0].Value.Bytes)
}

func TestFunctionSignatureABI1PrependsHeader(t *testing.T) {
	f := simpleFunction(t, Version1_0, []Param{{Name: "time", Type: TimeType()}})
	sig := f.Signature()
	assert.Contains(t, sig, "transfer(time,address,uint128)(bool)v1")
}

// TestFunctionEncodeDecodeInputSignedABI1MultiCell forces the encoded body
// across more than one cell: the reserved signature ref is seeded into the
// root cell first and four bytes-typed inputs each need a reference, so the
// third input would take the root's last ref slot and Case B's ABI 1.0 rule
// starts a new cell for it, leaving the root cell with all four references
// (signature, two content, one chain link) used.
func TestFunctionEncodeDecodeInputSignedABI1MultiCell(t *testing.T) {
	ctx := context.Background()
	f, err := NewFunctionSpecCtx(ctx, "send", Version1_0, nil,
		[]Param{
			{Name: "a", Type: BytesType()},
			{Name: "b", Type: BytesType()},
			{Name: "c", Type: BytesType()},
			{Name: "d", Type: BytesType()},
		},
		[]Param{{Name: "ok", Type: BoolType()}},
		nil,
	)
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	body, err := f.EncodeInputCtx(ctx, nil, map[string]interface{}{
		"a": "01",
		"b": "02",
		"c": "03",
		"d": "04",
	}, nil, priv)
	require.NoError(t, err)

	_, inputs, err := f.DecodeInputCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, inputs, 4)
	assert.Equal(t, []byte{0x04}, inputs[3].Value.Bytes)
}
