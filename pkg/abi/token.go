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
	"math/big"

	"github.com/everx-labs/ever-abi/pkg/cell"
)

// TokenValue is a tagged value conforming to a ParamType (spec.md §3.3). It
// is a sum type expressed the Go way: one tag plus whichever of the payload
// fields that tag uses. Every operation over it pattern-matches on Tag.
type TokenValue struct {
	Tag Tag

	Int   *big.Int // Uint, Int, VarUint, VarInt, Token, Time, Expire
	Width int       // declared bit width, for Uint/Int only (drives hex-vs-decimal formatting)
	Bool  bool      // Bool
	Bytes   []byte    // Bytes, FixedBytes, PublicKey (present&&len==32)
	Str     string    // String
	Addr    *cell.Address
	CellVal *cell.Cell

	Tuple []NamedToken  // Tuple
	Array []TokenValue  // Array, FixedArray
	Map   []MapEntry    // Map
	Inner *TokenValue   // Optional (nil means absent), Ref
}

// NamedToken is one Tuple member: a value alongside the declaring Param's
// name, preserving positional order (spec.md §3.3).
type NamedToken struct {
	Name  string
	Value TokenValue
}

// MapEntry is one Map slot.
type MapEntry struct {
	Key   TokenValue
	Value TokenValue
}

func UintToken(n int, v *big.Int) TokenValue    { return TokenValue{Tag: TagUint, Int: v, Width: n} }
func IntToken(n int, v *big.Int) TokenValue     { return TokenValue{Tag: TagInt, Int: v, Width: n} }
func VarUintToken(v *big.Int) TokenValue        { return TokenValue{Tag: TagVarUint, Int: v} }
func VarIntToken(v *big.Int) TokenValue         { return TokenValue{Tag: TagVarInt, Int: v} }
func BoolToken(v bool) TokenValue               { return TokenValue{Tag: TagBool, Bool: v} }
func TupleToken(v []NamedToken) TokenValue      { return TokenValue{Tag: TagTuple, Tuple: v} }
func ArrayToken(v []TokenValue) TokenValue      { return TokenValue{Tag: TagArray, Array: v} }
func FixedArrayToken(v []TokenValue) TokenValue { return TokenValue{Tag: TagFixedArray, Array: v} }
func CellToken(v *cell.Cell) TokenValue         { return TokenValue{Tag: TagCell, CellVal: v} }
func MapToken(v []MapEntry) TokenValue          { return TokenValue{Tag: TagMap, Map: v} }
func AddressToken(v *cell.Address) TokenValue   { return TokenValue{Tag: TagAddress, Addr: v} }
func BytesToken(v []byte) TokenValue            { return TokenValue{Tag: TagBytes, Bytes: v} }
func FixedBytesToken(v []byte) TokenValue       { return TokenValue{Tag: TagFixedBytes, Bytes: v} }
func StringToken(v string) TokenValue           { return TokenValue{Tag: TagString, Str: v} }
func TokenGramToken(v *big.Int) TokenValue      { return TokenValue{Tag: TagToken, Int: v} }
func TimeToken(v *big.Int) TokenValue           { return TokenValue{Tag: TagTime, Int: v} }
func ExpireToken(v *big.Int) TokenValue         { return TokenValue{Tag: TagExpire, Int: v} }

// PublicKeyToken constructs a present PublicKey token; an absent one is the
// zero TokenValue with Tag TagPublicKey and a nil Bytes.
func PublicKeyToken(v []byte) TokenValue { return TokenValue{Tag: TagPublicKey, Bytes: v} }

// OptionalToken wraps inner as a present Optional; a nil inner is absent.
func OptionalToken(inner *TokenValue) TokenValue { return TokenValue{Tag: TagOptional, Inner: inner} }

func RefToken(inner TokenValue) TokenValue { return TokenValue{Tag: TagRef, Inner: &inner} }
