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

// SerializedValue is one value's already-produced builder together with the
// footprint figures chain packing needs: both the conservative maximum
// (used by ABI >= 2.2) and the actually-produced size (used by earlier
// versions). Fixed-width types always have MaxBits==ActualBits; the two
// differ for variable-footprint types (VarUint/VarInt, Optional), for
// PublicKey (1 bit when absent, 257 max) and for Address (267 written,
// 591 max).
type SerializedValue struct {
	Builder    *cell.Builder
	MaxBits    int
	MaxRefs    int
	ActualBits int
	ActualRefs int
}

// Bits returns the footprint figure chain packing should use under version.
func (sv *SerializedValue) Bits(v Version) int {
	if v.UsesMaxAccounting() {
		return sv.MaxBits
	}
	return sv.ActualBits
}

// Refs returns the footprint figure chain packing should use under version.
func (sv *SerializedValue) Refs(v Version) int {
	if v.UsesMaxAccounting() {
		return sv.MaxRefs
	}
	return sv.ActualRefs
}

// SerializeParamsCtx serializes params/tokens in declaration order,
// flattening Tuples in place (spec.md §4.3: "elements concatenated in
// order, no framing") so the chain packer sees one flat value list.
func SerializeParamsCtx(ctx context.Context, version Version, params []Param, tokens []NamedToken) ([]*SerializedValue, error) {
	var out []*SerializedValue
	for i, p := range params {
		flat, err := serializeFlat(ctx, version, p.Type, tokens[i].Value)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func serializeFlat(ctx context.Context, version Version, pt ParamType, tv TokenValue) ([]*SerializedValue, error) {
	if pt.Tag == TagTuple {
		var out []*SerializedValue
		for i, c := range pt.Components {
			flat, err := serializeFlat(ctx, version, c.Type, tv.Tuple[i].Value)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	}
	sv, err := SerializeValueCtx(ctx, version, pt, tv)
	if err != nil {
		return nil, err
	}
	return []*SerializedValue{sv}, nil
}

// SerializeValueCtx serializes a single non-Tuple TokenValue (spec.md §4.3's
// "per-value serialization" rules).
func SerializeValueCtx(ctx context.Context, version Version, pt ParamType, tv TokenValue) (*SerializedValue, error) {
	b := cell.NewBuilder()
	maxBits, maxRefs := pt.MaxBitSize(), pt.MaxRefsCount()
	actualBits, actualRefs := maxBits, maxRefs

	switch pt.Tag {
	case TagUint:
		if err := b.StoreBigUint(tv.Int, pt.Width); err != nil {
			return nil, err
		}
	case TagInt:
		if err := b.StoreBigInt(tv.Int, pt.Width); err != nil {
			return nil, err
		}
	case TagVarUint:
		n := varUintByteLen(tv.Int)
		prefix := varLenPrefixBits(pt.Width)
		if err := b.StoreUint(uint64(n), prefix); err != nil {
			return nil, err
		}
		if n > 0 {
			if err := b.StoreBigUint(tv.Int, n*8); err != nil {
				return nil, err
			}
		}
		actualBits = prefix + n*8
	case TagVarInt:
		n := varIntByteLen(tv.Int)
		prefix := varLenPrefixBits(pt.Width)
		if err := b.StoreUint(uint64(n), prefix); err != nil {
			return nil, err
		}
		if n > 0 {
			if err := b.StoreBigInt(tv.Int, n*8); err != nil {
				return nil, err
			}
		}
		actualBits = prefix + n*8
	case TagBool:
		if err := b.StoreBit(tv.Bool); err != nil {
			return nil, err
		}
	case TagToken:
		if err := b.StoreBigUint(tv.Int, 124); err != nil {
			return nil, err
		}
	case TagTime:
		if err := b.StoreBigUint(tv.Int, 64); err != nil {
			return nil, err
		}
	case TagExpire:
		if err := b.StoreBigUint(tv.Int, 32); err != nil {
			return nil, err
		}
	case TagAddress:
		if err := tv.Addr.StoreTo(b); err != nil {
			return nil, err
		}
		actualBits = cell.AddressActualBits
	case TagPublicKey:
		present := tv.Bytes != nil
		if err := b.StoreBit(present); err != nil {
			return nil, err
		}
		if present {
			if err := b.StoreRaw(tv.Bytes, 256); err != nil {
				return nil, err
			}
		}
		actualBits = 1
		if present {
			actualBits = 257
		}
	case TagCell:
		if err := b.StoreRef(tv.CellVal); err != nil {
			return nil, err
		}
	case TagBytes, TagFixedBytes, TagString:
		head, err := buildByteChain(byteContent(pt, tv))
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(head); err != nil {
			return nil, err
		}
	case TagArray:
		if err := serializeArrayValue(ctx, version, b, *pt.Inner, tv.Array, true); err != nil {
			return nil, err
		}
		actualRefs = 1
	case TagFixedArray:
		if err := serializeArrayValue(ctx, version, b, *pt.Inner, tv.Array, false); err != nil {
			return nil, err
		}
		actualRefs = 1
	case TagMap:
		if err := serializeMapValue(ctx, version, b, *pt.Key, *pt.Inner, tv.Map); err != nil {
			return nil, err
		}
	case TagOptional:
		present := tv.Inner != nil
		if err := b.StoreBit(present); err != nil {
			return nil, err
		}
		actualBits, actualRefs = 1, 0
		if present {
			inner, err := SerializeValueCtx(ctx, version, *pt.Inner, *tv.Inner)
			if err != nil {
				return nil, err
			}
			if pt.IsLargeOptional() {
				if err := b.StoreRef(inner.Builder.EndCell()); err != nil {
					return nil, err
				}
				actualRefs = 1
			} else {
				if err := b.AppendBuilder(inner.Builder); err != nil {
					return nil, err
				}
				actualBits += inner.ActualBits
				actualRefs += inner.ActualRefs
			}
		}
	case TagRef:
		chain, err := serializeFlat(ctx, version, *pt.Inner, *tv.Inner)
		if err != nil {
			return nil, err
		}
		head, err := PackChain(ctx, version, nil, chain)
		if err != nil {
			return nil, err
		}
		if err := b.StoreRef(head.EndCell()); err != nil {
			return nil, err
		}
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgNotSupported, pt.TypeSignature(), version.String())
	}

	return &SerializedValue{
		Builder:    b,
		MaxBits:    maxBits,
		MaxRefs:    maxRefs,
		ActualBits: actualBits,
		ActualRefs: actualRefs,
	}, nil
}

func byteContent(pt ParamType, tv TokenValue) []byte {
	if pt.Tag == TagString {
		return []byte(tv.Str)
	}
	return tv.Bytes
}

const byteChainChunk = 127

// buildByteChain packs data into a snake of reference cells, up to 127
// bytes each, built tail-first so the innermost cell is the logical end of
// the string and each earlier cell's trailing reference points to it.
// Empty input produces a single empty cell.
func buildByteChain(data []byte) (*cell.Cell, error) {
	if len(data) == 0 {
		return cell.NewCell(nil, 0, nil), nil
	}
	chunks := chunkBytes(data, byteChainChunk)
	var tail *cell.Cell
	for i := len(chunks) - 1; i >= 0; i-- {
		b := cell.NewBuilder()
		if err := b.StoreRaw(chunks[i], len(chunks[i])*8); err != nil {
			return nil, err
		}
		if tail != nil {
			if err := b.StoreRef(tail); err != nil {
				return nil, err
			}
		}
		tail = b.EndCell()
	}
	return tail, nil
}

func chunkBytes(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

// dictLeafBuilder applies spec.md §4.3.2's inline-vs-reference predicate: a
// dictionary slot's value is inlined if 12 (the HmLabel/fork overhead
// reserve) plus the key width plus the value's maximum bits still fits a
// cell; otherwise the value is boxed behind its own reference.
func dictLeafBuilder(keyBits int, valueMaxBits int, value *SerializedValue) (*cell.Builder, error) {
	if 12+keyBits+valueMaxBits <= cell.MaxBits {
		return value.Builder, nil
	}
	boxed := cell.NewBuilder()
	if err := boxed.StoreRef(value.Builder.EndCell()); err != nil {
		return nil, err
	}
	return boxed, nil
}

func serializeArrayValue(ctx context.Context, version Version, b *cell.Builder, elem ParamType, items []TokenValue, withLength bool) error {
	entries := make([]cell.DictEntry, len(items))
	for i, item := range items {
		sv, err := SerializeValueCtx(ctx, version, elem, item)
		if err != nil {
			return err
		}
		leaf, err := dictLeafBuilder(32, elem.MaxBitSize(), sv)
		if err != nil {
			return err
		}
		entries[i] = cell.DictEntry{Key: big.NewInt(int64(i)), Value: leaf}
	}
	present, root, err := cell.BuildHashmapE(32, entries)
	if err != nil {
		return err
	}
	if withLength {
		if err := b.StoreUint(uint64(len(items)), 32); err != nil {
			return err
		}
	}
	if err := b.StoreBit(present); err != nil {
		return err
	}
	if present {
		if err := b.StoreRef(root); err != nil {
			return err
		}
	}
	return nil
}

func serializeMapValue(ctx context.Context, version Version, b *cell.Builder, kt, vt ParamType, entries []MapEntry) error {
	if !kt.IsValidMapKey() {
		return i18n.NewError(ctx, abimsgs.MsgInvalidMapKeyType, kt.TypeSignature())
	}
	keyBits := kt.KeyBitLength()
	dictEntries := make([]cell.DictEntry, len(entries))
	for i, e := range entries {
		key, err := mapKeyBigInt(kt, e.Key)
		if err != nil {
			return err
		}
		sv, err := SerializeValueCtx(ctx, version, vt, e.Value)
		if err != nil {
			return err
		}
		leaf, err := dictLeafBuilder(keyBits, vt.MaxBitSize(), sv)
		if err != nil {
			return err
		}
		dictEntries[i] = cell.DictEntry{Key: key, Value: leaf}
	}
	present, root, err := cell.BuildHashmapE(keyBits, dictEntries)
	if err != nil {
		return err
	}
	if err := b.StoreBit(present); err != nil {
		return err
	}
	if present {
		if err := b.StoreRef(root); err != nil {
			return err
		}
	}
	return nil
}

func mapKeyBigInt(kt ParamType, k TokenValue) (*big.Int, error) {
	switch kt.Tag {
	case TagUint:
		return k.Int, nil
	case TagInt:
		if k.Int.Sign() >= 0 {
			return k.Int, nil
		}
		mod := new(big.Int).Lsh(big.NewInt(1), uint(kt.Width))
		return new(big.Int).Add(k.Int, mod), nil
	case TagAddress:
		b := cell.NewBuilder()
		if err := k.Addr.StoreTo(b); err != nil {
			return nil, err
		}
		return b.EndCell().BeginParse().LoadBigUint(cell.AddressActualBits)
	default:
		return nil, nil
	}
}

func varUintByteLen(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	return (v.BitLen() + 7) / 8
}

func varIntByteLen(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	return (v.BitLen() + 1 + 7) / 8
}

// PackChain implements spec.md §4.3.1: values are walked left to right into
// a chain of builders, each linked to its successor by its last free
// reference. It is the heart of the codec - deserialization relies on this
// exact rule to find cell boundaries without a length field.
//
// head seeds the chain's first cell: when non-nil, its existing bits/refs
// (e.g. a signature prelude written by the caller beforehand) count toward
// that cell's budget from the very first value, the same way
// original_source's create_unsigned_call inserts its reserved signature
// builder into the cells vector before calling pack_values_into_chain.
// Pass nil for an unseeded chain.
func PackChain(ctx context.Context, version Version, head *cell.Builder, values []*SerializedValue) (*cell.Builder, error) {
	if head == nil {
		head = cell.NewBuilder()
	}
	if len(values) == 0 {
		return head, nil
	}
	var chain []*cell.Builder
	current := head
	cumBits, cumRefs := current.BitsUsed(), current.RefsUsed()
	chain = append(chain, current)

	for i, v := range values {
		vBits, vRefs := v.Bits(version), v.Refs(version)
		var bitsBudget, refsBudget int
		if version.UsesMaxAccounting() {
			bitsBudget = cell.MaxBits - cumBits
			refsBudget = cell.MaxRefs - cumRefs
		} else {
			bitsBudget = current.RemainingBits()
			refsBudget = current.RemainingRefs()
		}

		startNew := false
		switch {
		case vBits > bitsBudget || vRefs > refsBudget:
			startNew = true
		case vRefs > 0 && vRefs == refsBudget:
			if version.Major == 1 {
				startNew = true
			} else {
				restFits := true
				restBits, restRefs := 0, 0
				for _, rest := range values[i+1:] {
					restBits += rest.Bits(version)
					restRefs += rest.Refs(version)
				}
				if restRefs > 0 || restBits > bitsBudget-vBits {
					restFits = false
				}
				startNew = !restFits
			}
		}

		if startNew {
			current = cell.NewBuilder()
			chain = append(chain, current)
			cumBits, cumRefs = 0, 0
		}
		if err := current.AppendBuilder(v.Builder); err != nil {
			return nil, err
		}
		cumBits += vBits
		cumRefs += vRefs
	}

	for i := len(chain) - 2; i >= 0; i-- {
		if err := chain[i].StoreRef(chain[i+1].EndCell()); err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
		}
	}
	return chain[0], nil
}
