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
)

// Slice is a read cursor over a cell's data bits and references. Loading
// from a Slice never mutates the underlying Cell; it only advances the
// cursor's own position.
type Slice struct {
	cell   *Cell
	bitPos int
	refPos int
}

// NewSlice returns a read cursor positioned at the start of c.
func NewSlice(c *Cell) *Slice {
	return &Slice{cell: c}
}

// RemainingBits returns the number of unread data bits.
func (s *Slice) RemainingBits() int {
	return s.cell.BitLen() - s.bitPos
}

// RemainingRefs returns the number of unread references.
func (s *Slice) RemainingRefs() int {
	return s.cell.RefsCount() - s.refPos
}

func (s *Slice) bitAt(i int) bool {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	return s.cell.bits[byteIdx]&(1<<(7-bitIdx)) != 0
}

// LoadBit reads and consumes a single bit.
func (s *Slice) LoadBit() (bool, error) {
	if s.RemainingBits() < 1 {
		return false, fmt.Errorf("cell: LoadBit: no data bits remain")
	}
	bit := s.bitAt(s.bitPos)
	s.bitPos++
	return bit, nil
}

// LoadRaw reads and consumes the next n bits, returned MSB-first packed into
// a byte slice of length ceil(n/8).
func (s *Slice) LoadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("cell: LoadRaw: negative width %d", n)
	}
	if s.RemainingBits() < n {
		return nil, fmt.Errorf("cell: LoadRaw: %d bits requested, only %d remain", n, s.RemainingBits())
	}
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if s.bitAt(s.bitPos + i) {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	s.bitPos += n
	return out, nil
}

// LoadUint reads and consumes an n-bit big-endian unsigned integer, n <= 64.
func (s *Slice) LoadUint(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("cell: LoadUint: invalid width %d", n)
	}
	if s.RemainingBits() < n {
		return 0, fmt.Errorf("cell: LoadUint: %d bits requested, only %d remain", n, s.RemainingBits())
	}
	var v uint64
	for i := 0; i < n; i++ {
		v <<= 1
		if s.bitAt(s.bitPos + i) {
			v |= 1
		}
	}
	s.bitPos += n
	return v, nil
}

// LoadBigUint reads and consumes an n-bit big-endian unsigned integer of
// arbitrary width.
func (s *Slice) LoadBigUint(n int) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("cell: LoadBigUint: negative width %d", n)
	}
	if s.RemainingBits() < n {
		return nil, fmt.Errorf("cell: LoadBigUint: %d bits requested, only %d remain", n, s.RemainingBits())
	}
	v := new(big.Int)
	for i := 0; i < n; i++ {
		v.Lsh(v, 1)
		if s.bitAt(s.bitPos + i) {
			v.SetBit(v, 0, 1)
		}
	}
	s.bitPos += n
	return v, nil
}

// LoadBigInt reads and consumes an n-bit two's complement big-endian signed
// integer of arbitrary width.
func (s *Slice) LoadBigInt(n int) (*big.Int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cell: LoadBigInt: invalid width %d", n)
	}
	u, err := s.LoadBigUint(n)
	if err != nil {
		return nil, err
	}
	if u.Bit(n-1) == 1 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
		u = new(big.Int).Sub(u, mod)
	}
	return u, nil
}

// LoadRef reads and consumes the next child reference.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RemainingRefs() < 1 {
		return nil, fmt.Errorf("cell: LoadRef: no references remain")
	}
	r := s.cell.Ref(s.refPos)
	s.refPos++
	return r, nil
}

// PreloadRef returns the i'th not-yet-consumed reference without advancing
// the cursor.
func (s *Slice) PreloadRef(i int) (*Cell, error) {
	if i < 0 || i >= s.RemainingRefs() {
		return nil, fmt.Errorf("cell: PreloadRef: index %d out of range (%d remain)", i, s.RemainingRefs())
	}
	return s.cell.Ref(s.refPos + i), nil
}
