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
	"fmt"
	"math/big"
	"math/bits"
	"sort"
)

// DictEntry is one key/value pair going into a HashmapE dictionary. Value
// holds the already-serialized payload (bits plus any references) for that
// key; the dictionary codec never interprets the payload's shape.
type DictEntry struct {
	Key   *big.Int
	Value *Builder
}

// BuildHashmapE encodes entries as a TVM-style HashmapE n X dictionary: a
// label-compressed binary patricia trie over keyBits-wide keys. present is
// false (and root nil) when entries is empty, matching hme_empty$0; callers
// are responsible for storing the leading Maybe bit and, when present, a
// reference to root.
func BuildHashmapE(keyBits int, entries []DictEntry) (present bool, root *Cell, err error) {
	if len(entries) == 0 {
		return false, nil, nil
	}
	sorted := make([]DictEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.Cmp(sorted[j].Key) < 0 })

	suffixes := make([][]bool, len(sorted))
	for i, e := range sorted {
		if e.Key.Sign() < 0 || e.Key.BitLen() > keyBits {
			return false, nil, fmt.Errorf("cell: dictionary key %s does not fit in %d bits", e.Key, keyBits)
		}
		suffixes[i] = keyBitsMSB(e.Key, keyBits)
	}
	for i := 1; i < len(suffixes); i++ {
		if equalBits(suffixes[i-1], suffixes[i]) {
			return false, nil, fmt.Errorf("cell: duplicate dictionary key %s", sorted[i].Key)
		}
	}

	values := make([]*Builder, len(sorted))
	for i, e := range sorted {
		values[i] = e.Value
	}
	root, err = buildEdge(keyBits, suffixes, values)
	if err != nil {
		return false, nil, err
	}
	return true, root, nil
}

func keyBitsMSB(v *big.Int, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = v.Bit(n-1-i) == 1
	}
	return out
}

func equalBits(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func commonPrefixLen(keys [][]bool) int {
	if len(keys) == 0 {
		return 0
	}
	p := len(keys[0])
	for _, k := range keys[1:] {
		i := 0
		for i < p && i < len(k) && keys[0][i] == k[i] {
			i++
		}
		if i < p {
			p = i
		}
	}
	return p
}

// labelLenWidth returns the number of bits needed to encode a value in the
// inclusive range [0, m] - the "#<= m" construct used by HmLabel.
func labelLenWidth(m int) int {
	if m <= 0 {
		return 0
	}
	return bits.Len(uint(m))
}

func buildEdge(m int, keys [][]bool, values []*Builder) (*Cell, error) {
	b := NewBuilder()
	if len(keys) == 1 {
		label := keys[0]
		if err := writeLabel(b, label, m); err != nil {
			return nil, err
		}
		if err := b.AppendBuilder(values[0]); err != nil {
			return nil, err
		}
		return b.EndCell(), nil
	}

	prefixLen := commonPrefixLen(keys)
	label := keys[0][:prefixLen]
	if err := writeLabel(b, label, m); err != nil {
		return nil, err
	}

	var leftKeys, rightKeys [][]bool
	var leftVals, rightVals []*Builder
	for i, k := range keys {
		rest := k[prefixLen+1:]
		if k[prefixLen] {
			rightKeys = append(rightKeys, rest)
			rightVals = append(rightVals, values[i])
		} else {
			leftKeys = append(leftKeys, rest)
			leftVals = append(leftVals, values[i])
		}
	}
	childM := m - prefixLen - 1
	left, err := buildEdge(childM, leftKeys, leftVals)
	if err != nil {
		return nil, err
	}
	right, err := buildEdge(childM, rightKeys, rightVals)
	if err != nil {
		return nil, err
	}
	if err := b.StoreRef(left); err != nil {
		return nil, err
	}
	if err := b.StoreRef(right); err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// writeLabel encodes label using the always-valid hml_long$10 form: tag
// bits "10", the label length over [0,m] bits wide, then the label bits
// themselves. It never attempts the shorter hml_short/hml_same forms; those
// are a size optimization this codec does not need to reproduce bit-for-bit
// since it only has to round-trip its own encodings.
func writeLabel(b *Builder, label []bool, m int) error {
	if err := b.StoreBit(true); err != nil {
		return err
	}
	if err := b.StoreBit(false); err != nil {
		return err
	}
	w := labelLenWidth(m)
	if w > 0 {
		if err := b.StoreUint(uint64(len(label)), w); err != nil {
			return err
		}
	}
	for _, bit := range label {
		if err := b.StoreBit(bit); err != nil {
			return err
		}
	}
	return nil
}

func readLabel(s *Slice, m int) ([]bool, error) {
	tag1, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	tag2, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !tag1 || tag2 {
		return nil, fmt.Errorf("cell: unsupported HmLabel tag %v%v", tag1, tag2)
	}
	w := labelLenWidth(m)
	var l int
	if w > 0 {
		n, err := s.LoadUint(w)
		if err != nil {
			return nil, err
		}
		l = int(n)
	}
	if l > m {
		return nil, fmt.Errorf("cell: HmLabel length %d exceeds remaining key width %d", l, m)
	}
	label := make([]bool, l)
	for i := 0; i < l; i++ {
		bit, err := s.LoadBit()
		if err != nil {
			return nil, err
		}
		label[i] = bit
	}
	return label, nil
}

// DictValue is one decoded key/value pair. Value is a read cursor positioned
// immediately after the key's label, over the same cell that stored it;
// the caller (which alone knows the value's ParamType) reads it onward.
type DictValue struct {
	Key   *big.Int
	Value *Slice
}

// ParseHashmapE decodes a HashmapE n X starting at the Maybe-bit prefix: a
// leading 0 means empty (no entries, no reference consumed); a leading 1 is
// followed by the dictionary root reference.
func ParseHashmapE(s *Slice, keyBits int) ([]DictValue, error) {
	present, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	root, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	var out []DictValue
	if err := walkEdge(root.BeginParse(), keyBits, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkEdge(s *Slice, m int, prefix []bool, out *[]DictValue) error {
	label, err := readLabel(s, m)
	if err != nil {
		return err
	}
	full := append(append([]bool{}, prefix...), label...)
	remaining := m - len(label)
	if remaining == 0 {
		*out = append(*out, DictValue{Key: bitsToKey(full), Value: s})
		return nil
	}
	left, err := s.LoadRef()
	if err != nil {
		return err
	}
	right, err := s.LoadRef()
	if err != nil {
		return err
	}
	if err := walkEdge(left.BeginParse(), remaining-1, append(full, false), out); err != nil {
		return err
	}
	return walkEdge(right.BeginParse(), remaining-1, append(full, true), out)
}

func bitsToKey(b []bool) *big.Int {
	v := new(big.Int)
	for _, bit := range b {
		v.Lsh(v, 1)
		if bit {
			v.SetBit(v, 0, 1)
		}
	}
	return v
}
