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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// Cursor is the deserializer's read position: the current slice plus the
// cumulative footprint consumed from that slice's cell, reset every time
// reading crosses into a new cell (spec.md §4.4).
type Cursor struct {
	Slice       *cell.Slice
	MaxBitsUsed int
	MaxRefsUsed int
}

// NewCursor starts a cursor at the head of c.
func NewCursor(c *cell.Cell) *Cursor {
	return &Cursor{Slice: c.BeginParse()}
}

// crossIfNeeded advances the cursor into reference 0 when the current cell
// has no data bits left, per spec.md §4.4. ABI 1.0 additionally refuses to
// cross while a second reference is still pending, since that slot is
// reserved for chain continuation.
func (cur *Cursor) crossIfNeeded(version Version) (bool, error) {
	if cur.Slice.RemainingBits() != 0 || cur.Slice.RemainingRefs() == 0 {
		return false, nil
	}
	if version.Major == 1 && cur.Slice.RemainingRefs() > 1 {
		return false, nil
	}
	ref, err := cur.Slice.LoadRef()
	if err != nil {
		return false, err
	}
	cur.Slice = ref.BeginParse()
	cur.MaxBitsUsed = 0
	cur.MaxRefsUsed = 0
	return true, nil
}

// validateLayout applies spec.md §4.4's layout-validation rule: a value
// read without crossing must keep the cumulative footprint within one
// cell's capacity; a value read after crossing must have been unable to
// fit in the cell it crossed out of. Both encoder and decoder are driven
// off the same per-type max-bit/max-ref tables so they stay mirror images.
func validateLayout(ctx context.Context, crossed bool, prevBits, prevRefs, valBits, valRefs int, name string) error {
	if !crossed {
		if prevBits+valBits > cell.MaxBits || prevRefs+valRefs > cell.MaxRefs {
			return i18n.NewError(ctx, abimsgs.MsgWrongDataLayout, name)
		}
		return nil
	}
	if prevBits+valBits <= cell.MaxBits && prevRefs+valRefs <= cell.MaxRefs {
		return i18n.NewError(ctx, abimsgs.MsgWrongDataLayout, name)
	}
	return nil
}

// DeserializeParamsCtx reads params in declaration order from cur,
// producing named tokens. When allowPartial is false the final parameter
// must leave the cursor's current cell fully drained (spec.md §4.4).
func DeserializeParamsCtx(ctx context.Context, version Version, params []Param, cur *Cursor, allowPartial bool) ([]NamedToken, error) {
	out := make([]NamedToken, len(params))
	for i, p := range params {
		tv, err := DeserializeValueCtx(ctx, version, p.Type, cur, p.Name)
		if err != nil {
			return nil, err
		}
		out[i] = NamedToken{Name: p.Name, Value: tv}
	}
	if !allowPartial {
		if cur.Slice.RemainingBits() != 0 || cur.Slice.RemainingRefs() != 0 {
			return nil, i18n.NewError(ctx, abimsgs.MsgIncompleteDecode, cur.Slice.RemainingBits(), cur.Slice.RemainingRefs())
		}
	}
	return out, nil
}

// DeserializeValueCtx reads one value of type pt from cur.
func DeserializeValueCtx(ctx context.Context, version Version, pt ParamType, cur *Cursor, name string) (TokenValue, error) {
	if pt.Tag == TagTuple {
		children := make([]NamedToken, len(pt.Components))
		for i, c := range pt.Components {
			tv, err := DeserializeValueCtx(ctx, version, c.Type, cur, c.Name)
			if err != nil {
				return TokenValue{}, err
			}
			children[i] = NamedToken{Name: c.Name, Value: tv}
		}
		return TupleToken(children), nil
	}

	maxBits, maxRefs := pt.MaxBitSize(), pt.MaxRefsCount()
	prevBits, prevRefs := cur.MaxBitsUsed, cur.MaxRefsUsed
	crossed, err := cur.crossIfNeeded(version)
	if err != nil {
		return TokenValue{}, err
	}

	tv, actualBits, actualRefs, err := readValue(ctx, version, pt, cur, name)
	if err != nil {
		return TokenValue{}, err
	}

	footprintBits, footprintRefs := maxBits, maxRefs
	if !version.UsesMaxAccounting() {
		footprintBits, footprintRefs = actualBits, actualRefs
	}
	if err := validateLayout(ctx, crossed, prevBits, prevRefs, footprintBits, footprintRefs, name); err != nil {
		return TokenValue{}, err
	}
	if crossed {
		cur.MaxBitsUsed = footprintBits
		cur.MaxRefsUsed = footprintRefs
	} else {
		cur.MaxBitsUsed += footprintBits
		cur.MaxRefsUsed += footprintRefs
	}
	return tv, nil
}

func readValue(ctx context.Context, version Version, pt ParamType, cur *Cursor, name string) (TokenValue, int, int, error) {
	s := cur.Slice
	switch pt.Tag {
	case TagUint:
		v, err := s.LoadBigUint(pt.Width)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return UintToken(pt.Width, v), pt.Width, 0, nil
	case TagInt:
		v, err := s.LoadBigInt(pt.Width)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return IntToken(pt.Width, v), pt.Width, 0, nil
	case TagVarUint:
		prefix := varLenPrefixBits(pt.Width)
		n, err := s.LoadUint(prefix)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		v := big.NewInt(0)
		if n > 0 {
			v, err = s.LoadBigUint(int(n) * 8)
			if err != nil {
				return TokenValue{}, 0, 0, deserErr(ctx, name, err)
			}
		}
		return VarUintToken(v), prefix + int(n)*8, 0, nil
	case TagVarInt:
		prefix := varLenPrefixBits(pt.Width)
		n, err := s.LoadUint(prefix)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		v := big.NewInt(0)
		if n > 0 {
			v, err = s.LoadBigInt(int(n) * 8)
			if err != nil {
				return TokenValue{}, 0, 0, deserErr(ctx, name, err)
			}
		}
		return VarIntToken(v), prefix + int(n)*8, 0, nil
	case TagBool:
		v, err := s.LoadBit()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return BoolToken(v), 1, 0, nil
	case TagToken:
		v, err := s.LoadBigUint(124)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return TokenGramToken(v), 124, 0, nil
	case TagTime:
		v, err := s.LoadBigUint(64)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return TimeToken(v), 64, 0, nil
	case TagExpire:
		v, err := s.LoadBigUint(32)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return ExpireToken(v), 32, 0, nil
	case TagAddress:
		a, err := cell.LoadAddress(s)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return AddressToken(a), cell.AddressActualBits, 0, nil
	case TagPublicKey:
		present, err := s.LoadBit()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		if !present {
			return TokenValue{Tag: TagPublicKey}, 1, 0, nil
		}
		b, err := s.LoadRaw(256)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return PublicKeyToken(b), 257, 0, nil
	case TagCell:
		ref, err := s.LoadRef()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		return CellToken(ref), 0, 1, nil
	case TagBytes, TagFixedBytes, TagString:
		ref, err := s.LoadRef()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		data, err := readByteChain(ref)
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		switch pt.Tag {
		case TagFixedBytes:
			if len(data) != pt.Width {
				return TokenValue{}, 0, 0, i18n.NewError(ctx, abimsgs.MsgInvalidParamLength, name, pt.Width, len(data))
			}
			return FixedBytesToken(data), 0, 1, nil
		case TagString:
			return StringToken(string(data)), 0, 1, nil
		default:
			return BytesToken(data), 0, 1, nil
		}
	case TagArray, TagFixedArray:
		items, err := readArrayValue(ctx, version, *pt.Inner, s, pt.Tag == TagArray)
		if err != nil {
			return TokenValue{}, 0, 0, err
		}
		if pt.Tag == TagArray {
			return ArrayToken(items), 33, 1, nil
		}
		return FixedArrayToken(items), 1, 1, nil
	case TagMap:
		entries, err := readMapValue(ctx, version, *pt.Key, *pt.Inner, s)
		if err != nil {
			return TokenValue{}, 0, 0, err
		}
		return MapToken(entries), 1, 1, nil
	case TagOptional:
		present, err := s.LoadBit()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		if !present {
			return OptionalToken(nil), 1, 0, nil
		}
		if pt.IsLargeOptional() {
			ref, err := s.LoadRef()
			if err != nil {
				return TokenValue{}, 0, 0, deserErr(ctx, name, err)
			}
			innerCur := NewCursor(ref)
			inner, err := DeserializeValueCtx(ctx, version, *pt.Inner, innerCur, name)
			if err != nil {
				return TokenValue{}, 0, 0, err
			}
			return OptionalToken(&inner), 1, 1, nil
		}
		inner, err := DeserializeValueCtx(ctx, version, *pt.Inner, cur, name)
		if err != nil {
			return TokenValue{}, 0, 0, err
		}
		return OptionalToken(&inner), 1, 0, nil
	case TagRef:
		ref, err := s.LoadRef()
		if err != nil {
			return TokenValue{}, 0, 0, deserErr(ctx, name, err)
		}
		innerCur := NewCursor(ref)
		innerParams := []Param{{Name: name, Type: *pt.Inner}}
		children, err := DeserializeParamsCtx(ctx, version, innerParams, innerCur, true)
		if err != nil {
			return TokenValue{}, 0, 0, err
		}
		return RefToken(children[0].Value), 0, 1, nil
	default:
		return TokenValue{}, 0, 0, i18n.NewError(ctx, abimsgs.MsgNotSupported, pt.TypeSignature(), version.String())
	}
}

func deserErr(ctx context.Context, name string, err error) error {
	return i18n.NewError(ctx, abimsgs.MsgDeserializationError, name, err)
}

// readByteChain unchains a snake of reference cells built by buildByteChain.
func readByteChain(c *cell.Cell) ([]byte, error) {
	var out []byte
	for c != nil {
		out = append(out, c.Data()[:c.BitLen()/8]...)
		if c.RefsCount() == 0 {
			break
		}
		c = c.Ref(0)
	}
	return out, nil
}

func readArrayValue(ctx context.Context, version Version, elem ParamType, s *cell.Slice, withLength bool) ([]TokenValue, error) {
	var length int
	if withLength {
		n, err := s.LoadUint(32)
		if err != nil {
			return nil, err
		}
		length = int(n)
	}
	dict, err := cell.ParseHashmapE(s, 32)
	if err != nil {
		return nil, err
	}
	if !withLength {
		length = len(dict)
	}
	items := make([]TokenValue, length)
	for _, d := range dict {
		idx := int(d.Key.Int64())
		if idx < 0 || idx >= length {
			continue
		}
		leafSlice, err := resolveDictLeaf(d.Value, 32, elem.MaxBitSize())
		if err != nil {
			return nil, err
		}
		leafCur := &Cursor{Slice: leafSlice}
		tv, err := DeserializeValueCtx(ctx, version, elem, leafCur, "")
		if err != nil {
			return nil, err
		}
		items[idx] = tv
	}
	return items, nil
}

func readMapValue(ctx context.Context, version Version, kt, vt ParamType, s *cell.Slice) ([]MapEntry, error) {
	keyBits := kt.KeyBitLength()
	dict, err := cell.ParseHashmapE(s, keyBits)
	if err != nil {
		return nil, err
	}
	entries := make([]MapEntry, len(dict))
	for i, d := range dict {
		keyToken, err := bigIntToMapKey(kt, d.Key)
		if err != nil {
			return nil, err
		}
		leafSlice, err := resolveDictLeaf(d.Value, keyBits, vt.MaxBitSize())
		if err != nil {
			return nil, err
		}
		leafCur := &Cursor{Slice: leafSlice}
		valueToken, err := DeserializeValueCtx(ctx, version, vt, leafCur, "")
		if err != nil {
			return nil, err
		}
		entries[i] = MapEntry{Key: keyToken, Value: valueToken}
	}
	return entries, nil
}

// resolveDictLeaf mirrors dictLeafBuilder on read, applying the identical
// 12+key_bits+value_max_bits<=1023 predicate (spec.md §4.3.2) rather than
// guessing from the slot's shape: when the predicate says boxed, the slot
// holds exactly one reference to the real value's cell.
func resolveDictLeaf(s *cell.Slice, keyBits, valueMaxBits int) (*cell.Slice, error) {
	if 12+keyBits+valueMaxBits <= cell.MaxBits {
		return s, nil
	}
	ref, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	return ref.BeginParse(), nil
}

func bigIntToMapKey(kt ParamType, v *big.Int) (TokenValue, error) {
	switch kt.Tag {
	case TagUint:
		return UintToken(kt.Width, v), nil
	case TagInt:
		u := v
		half := new(big.Int).Lsh(big.NewInt(1), uint(kt.Width-1))
		if v.Cmp(half) >= 0 {
			mod := new(big.Int).Lsh(big.NewInt(1), uint(kt.Width))
			u = new(big.Int).Sub(v, mod)
		}
		return IntToken(kt.Width, u), nil
	case TagAddress:
		b := cell.NewBuilder()
		if err := b.StoreBigUint(v, cell.AddressActualBits); err != nil {
			return TokenValue{}, err
		}
		a, err := cell.LoadAddress(b.EndCell().BeginParse())
		if err != nil {
			return TokenValue{}, err
		}
		return AddressToken(a), nil
	default:
		return TokenValue{}, nil
	}
}
