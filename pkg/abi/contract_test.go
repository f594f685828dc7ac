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

	"github.com/everx-labs/ever-abi/pkg/cell"
)

const sampleContractV22 = `{
	"ABI version": 2,
	"version": "2.2",
	"header": ["time", "expire"],
	"functions": [
		{
			"name": "transfer",
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "amount", "type": "uint128"}
			],
			"outputs": [
				{"name": "ok", "type": "bool"}
			]
		},
		{
			"name": "constructor",
			"inputs": [],
			"outputs": []
		}
	],
	"events": [
		{
			"name": "Transferred",
			"inputs": [
				{"name": "amount", "type": "uint128"}
			]
		}
	],
	"fields": [
		{"name": "owner", "type": "address"},
		{"name": "total", "type": "uint256", "init": true}
	]
}`

const sampleContractV10 = `{
	"ABI version": 1,
	"functions": [
		{
			"name": "sendTransaction",
			"inputs": [
				{"name": "dest", "type": "address"},
				{"name": "value", "type": "uint128"}
			],
			"outputs": []
		}
	],
	"data": [
		{"key": 0, "name": "pubkey", "type": "uint256"},
		{"key": 1, "name": "owner", "type": "uint256"}
	]
}`

func TestLoadContractSpecV22(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV22))
	require.NoError(t, err)
	assert.Equal(t, Version2_2, cs.Version)
	assert.Len(t, cs.Header, 2)
	assert.Len(t, cs.Fields, 2)

	f, err := cs.FunctionByName(ctx, "transfer")
	require.NoError(t, err)
	assert.Equal(t, "transfer", f.Name)

	_, err = cs.FunctionByName(ctx, "nope")
	assert.Error(t, err)

	byID, err := cs.FunctionByID(ctx, f.InputID, true)
	require.NoError(t, err)
	assert.Equal(t, f.Name, byID.Name)

	e, err := cs.EventByID(ctx, func() uint32 {
		ev := cs.Events()["Transferred"]
		return ev.ID
	}())
	require.NoError(t, err)
	assert.Equal(t, "Transferred", e.Name)

	init := cs.InitFields()
	require.Len(t, init, 0) // ABI 2.2 doesn't support init
}

func TestLoadContractSpecFieldsRequireVersion(t *testing.T) {
	ctx := context.Background()
	bad := `{"ABI version": 2, "version": "2.0", "functions": [], "fields": [{"name":"a","type":"bool"}]}`
	_, err := LoadContractSpecCtx(ctx, []byte(bad))
	assert.Error(t, err)
}

func TestLoadContractSpecDataMapRequiresVersion(t *testing.T) {
	ctx := context.Background()
	bad := `{"ABI version": 2, "version": "2.4", "functions": [], "data": [{"key":0,"name":"a","type":"bool"}]}`
	_, err := LoadContractSpecCtx(ctx, []byte(bad))
	assert.Error(t, err)
}

func TestContractV10ImplicitTimeHeader(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV10))
	require.NoError(t, err)
	require.Len(t, cs.Header, 1)
	assert.Equal(t, "time", cs.Header[0].Name)
	assert.Equal(t, TagTime, cs.Header[0].Type.Tag)
}

func TestContractDataMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV10))
	require.NoError(t, err)

	empty := emptyDataCell()
	updated, err := cs.UpdateDataCtx(ctx, empty, map[string]interface{}{
		"pubkey": "1",
		"owner":  "2",
	})
	require.NoError(t, err)

	out, err := cs.DecodeDataCtx(ctx, updated)
	require.NoError(t, err)
	require.Len(t, out, 2)

	values := map[string]string{}
	for _, nt := range out {
		values[nt.Name] = nt.Value.Int.String()
	}
	assert.Equal(t, "1", values["pubkey"])
	assert.Equal(t, "2", values["owner"])
}

func TestContractInsertPubkey(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV10))
	require.NoError(t, err)

	empty := emptyDataCell()
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}
	updated, err := cs.InsertPubkeyCtx(ctx, empty, pub)
	require.NoError(t, err)

	out, err := cs.DecodeDataCtx(ctx, updated)
	require.NoError(t, err)
	found := false
	for _, nt := range out {
		if nt.Name == "pubkey" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestContractStorageFieldsRoundTrip(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV22))
	require.NoError(t, err)

	addr, err := cell.ParseAddress("0:" + stringRepeatHex("99", 32))
	require.NoError(t, err)

	body, err := cs.EncodeStorageFieldsCtx(ctx, map[string]interface{}{
		"owner": addr.String(),
		"total": "123456",
	})
	require.NoError(t, err)

	out, err := cs.DecodeStorageFieldsCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "123456", out[1].Value.Int.String())
}

func TestContractDecodeUnknownInput(t *testing.T) {
	ctx := context.Background()
	cs, err := LoadContractSpecCtx(ctx, []byte(sampleContractV22))
	require.NoError(t, err)

	addr, err := cell.ParseAddress("0:" + stringRepeatHex("77", 32))
	require.NoError(t, err)
	f, err := cs.FunctionByName(ctx, "transfer")
	require.NoError(t, err)

	body, err := f.EncodeInputCtx(ctx, map[string]interface{}{
		"time":   "1700000000000",
		"expire": "1700000001000",
	}, map[string]interface{}{
		"to":     addr.String(),
		"amount": "77",
	}, nil, nil)
	require.NoError(t, err)

	msg, err := cs.DecodeUnknownInputCtx(ctx, body, false)
	require.NoError(t, err)
	assert.Equal(t, "transfer", msg.Name)
	require.Len(t, msg.Tokens, 2)
}

func emptyDataCell() *cell.Cell {
	b := cell.NewBuilder()
	_ = b.StoreBit(false)
	return b.EndCell()
}
