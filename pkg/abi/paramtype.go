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
	"fmt"
	"math/bits"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// Tag identifies a member of the closed ParamType set (spec.md §3.2).
type Tag int

const (
	TagUint Tag = iota
	TagInt
	TagVarUint
	TagVarInt
	TagBool
	TagTuple
	TagArray
	TagFixedArray
	TagCell
	TagMap
	TagAddress
	TagBytes
	TagFixedBytes
	TagString
	TagToken
	TagTime
	TagExpire
	TagPublicKey
	TagOptional
	TagRef
)

// ParamType is a node in the (cycle-free) parameter type tree: a tag plus
// whatever payload that tag requires.
type ParamType struct {
	Tag Tag

	// Width is the bit width for Uint/Int, the maximum payload byte length
	// for VarUint/VarInt, or the declared byte length for FixedBytes.
	Width int
	// ArrayLen is the declared element count of a FixedArray.
	ArrayLen int

	// Inner is the element type of Array/FixedArray, the value type of Map,
	// or the wrapped type of Optional/Ref.
	Inner *ParamType
	// Key is the key type of Map.
	Key *ParamType
	// Components is a Tuple's ordered, named members.
	Components []Param
}

func UintType(n int) ParamType      { return ParamType{Tag: TagUint, Width: n} }
func IntType(n int) ParamType       { return ParamType{Tag: TagInt, Width: n} }
func VarUintType(m int) ParamType   { return ParamType{Tag: TagVarUint, Width: m} }
func VarIntType(m int) ParamType    { return ParamType{Tag: TagVarInt, Width: m} }
func BoolType() ParamType           { return ParamType{Tag: TagBool} }
func TupleType(c []Param) ParamType { return ParamType{Tag: TagTuple, Components: c} }
func ArrayType(inner ParamType) ParamType {
	return ParamType{Tag: TagArray, Inner: &inner}
}
func FixedArrayType(inner ParamType, n int) ParamType {
	return ParamType{Tag: TagFixedArray, Inner: &inner, ArrayLen: n}
}
func CellType() ParamType { return ParamType{Tag: TagCell} }
func MapType(key, value ParamType) ParamType {
	return ParamType{Tag: TagMap, Key: &key, Inner: &value}
}
func AddressType() ParamType          { return ParamType{Tag: TagAddress} }
func BytesType() ParamType            { return ParamType{Tag: TagBytes} }
func FixedBytesType(n int) ParamType  { return ParamType{Tag: TagFixedBytes, Width: n} }
func StringType() ParamType           { return ParamType{Tag: TagString} }
func TokenType() ParamType            { return ParamType{Tag: TagToken} }
func TimeType() ParamType             { return ParamType{Tag: TagTime} }
func ExpireType() ParamType           { return ParamType{Tag: TagExpire} }
func PublicKeyType() ParamType        { return ParamType{Tag: TagPublicKey} }
func OptionalType(inner ParamType) ParamType {
	return ParamType{Tag: TagOptional, Inner: &inner}
}
func RefType(inner ParamType) ParamType {
	return ParamType{Tag: TagRef, Inner: &inner}
}

// TypeSignature renders the canonical string used for selector hashing
// (spec.md §4.1).
func (t ParamType) TypeSignature() string {
	switch t.Tag {
	case TagUint:
		return fmt.Sprintf("uint%d", t.Width)
	case TagInt:
		return fmt.Sprintf("int%d", t.Width)
	case TagVarUint:
		return fmt.Sprintf("varuint%d", t.Width)
	case TagVarInt:
		return fmt.Sprintf("varint%d", t.Width)
	case TagBool:
		return "bool"
	case TagTuple:
		sig := "("
		for i, c := range t.Components {
			if i > 0 {
				sig += ","
			}
			sig += c.Type.TypeSignature()
		}
		return sig + ")"
	case TagArray:
		return t.Inner.TypeSignature() + "[]"
	case TagFixedArray:
		return fmt.Sprintf("%s[%d]", t.Inner.TypeSignature(), t.ArrayLen)
	case TagCell:
		return "cell"
	case TagMap:
		return fmt.Sprintf("map(%s,%s)", t.Key.TypeSignature(), t.Inner.TypeSignature())
	case TagAddress:
		return "address"
	case TagBytes:
		return "bytes"
	case TagFixedBytes:
		return fmt.Sprintf("fixedbytes%d", t.Width)
	case TagString:
		return "string"
	case TagToken:
		return "gram"
	case TagTime:
		return "time"
	case TagExpire:
		return "expire"
	case TagPublicKey:
		return "pubkey"
	case TagOptional:
		return fmt.Sprintf("optional(%s)", t.Inner.TypeSignature())
	case TagRef:
		return fmt.Sprintf("ref(%s)", t.Inner.TypeSignature())
	default:
		return "?"
	}
}

// minVersion is the lowest ABI version this tag is legal in, independent of
// any nested type it carries.
func (t ParamType) minVersion() Version {
	switch t.Tag {
	case TagVarUint, TagVarInt, TagString, TagOptional:
		return Version2_1
	case TagTime, TagExpire, TagPublicKey:
		return Version2_0
	case TagRef:
		return Version2_4
	default:
		return Version1_0
	}
}

// IsSupported reports whether t, and every type nested within it, is legal
// under v (spec.md §3.2's "Min ABI" column).
func (t ParamType) IsSupported(v Version) bool {
	min := t.minVersion()
	if !v.AtLeast(min.Major, min.Minor) {
		return false
	}
	switch t.Tag {
	case TagTuple:
		for _, c := range t.Components {
			if !c.Type.IsSupported(v) {
				return false
			}
		}
	case TagArray, TagFixedArray, TagOptional, TagRef:
		return t.Inner.IsSupported(v)
	case TagMap:
		return t.Key.IsSupported(v) && t.Inner.IsSupported(v)
	}
	return true
}

// MaxBitSize is the conservative per-type data-bit footprint used by
// ABI >= 2.2 chain packing and layout validation (spec.md §3.2).
func (t ParamType) MaxBitSize() int {
	switch t.Tag {
	case TagUint, TagInt:
		return t.Width
	case TagVarUint, TagVarInt:
		return varLenPrefixBits(t.Width) + (t.Width-1)*8
	case TagBool:
		return 1
	case TagTuple:
		sum := 0
		for _, c := range t.Components {
			sum += c.Type.MaxBitSize()
		}
		return sum
	case TagArray:
		return 33
	case TagFixedArray:
		return 1
	case TagCell:
		return 0
	case TagMap:
		return 1
	case TagAddress:
		return cell.AddressMaxBits
	case TagBytes, TagFixedBytes, TagString:
		return 0
	case TagToken:
		return 124
	case TagTime:
		return 64
	case TagExpire:
		return 32
	case TagPublicKey:
		return 257
	case TagOptional:
		return 1
	case TagRef:
		return 0
	default:
		return 0
	}
}

// MaxRefsCount is the conservative per-type reference footprint, mirroring
// MaxBitSize.
func (t ParamType) MaxRefsCount() int {
	switch t.Tag {
	case TagTuple:
		sum := 0
		for _, c := range t.Components {
			sum += c.Type.MaxRefsCount()
		}
		return sum
	case TagArray, TagFixedArray, TagCell, TagMap, TagBytes, TagFixedBytes, TagString:
		return 1
	case TagOptional:
		if t.IsLargeOptional() {
			return 1
		}
		return 0
	case TagRef:
		return 1
	default:
		return 0
	}
}

// IsLargeOptional reports whether an Optional carries its payload in a
// reference (inner footprint would not fit the remaining cell).
func (t ParamType) IsLargeOptional() bool {
	if t.Tag != TagOptional {
		return false
	}
	return t.Inner.MaxBitSize() >= cell.MaxBits || t.Inner.MaxRefsCount() >= cell.MaxRefs
}

// varLenPrefixBits is ⌈log2(m)⌉, the width of a VarUint/VarInt length
// prefix that can express payload lengths 0..m-1.
func varLenPrefixBits(m int) int {
	if m <= 1 {
		return 0
	}
	return bits.Len(uint(m - 1))
}

// SetComponents assigns a tuple-shaped JSON "components" array to t. Tuple
// takes it directly and requires it non-empty; Array/FixedArray/Map's value
// type/Optional/Ref forward it to the type they wrap; every other tag
// rejects a non-empty components array.
func (t *ParamType) SetComponents(ctx context.Context, children []Param) error {
	switch t.Tag {
	case TagTuple:
		if len(children) == 0 {
			return i18n.NewError(ctx, abimsgs.MsgEmptyComponents, t.TypeSignature())
		}
		t.Components = children
		return nil
	case TagArray, TagFixedArray, TagOptional, TagRef:
		return t.Inner.SetComponents(ctx, children)
	case TagMap:
		return t.Inner.SetComponents(ctx, children)
	default:
		if len(children) > 0 {
			return i18n.NewError(ctx, abimsgs.MsgUnusedComponents, t.TypeSignature())
		}
		return nil
	}
}

// IsValidMapKey reports whether t may be used as a Map key type (spec.md
// §3.3: Int, Uint or Address only).
func (t ParamType) IsValidMapKey() bool {
	return t.Tag == TagInt || t.Tag == TagUint || t.Tag == TagAddress
}

// KeyBitLength is the fixed dictionary key width for a Map/Array key type.
func (t ParamType) KeyBitLength() int {
	switch t.Tag {
	case TagUint, TagInt:
		return t.Width
	case TagAddress:
		return cell.AddressActualBits
	default:
		return 0
	}
}
