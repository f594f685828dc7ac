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

// Builder accumulates bits and references into a cell under construction.
// It is the write-side cursor of the cell machine.
type Builder struct {
	bits   []byte
	bitLen int
	refs   []*Cell
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BitsUsed returns the number of data bits written so far.
func (b *Builder) BitsUsed() int { return b.bitLen }

// RefsUsed returns the number of references written so far.
func (b *Builder) RefsUsed() int { return len(b.refs) }

// RemainingBits returns the bit capacity left in the cell under construction.
func (b *Builder) RemainingBits() int { return MaxBits - b.bitLen }

// RemainingRefs returns the reference capacity left in the cell under construction.
func (b *Builder) RemainingRefs() int { return MaxRefs - len(b.refs) }

func (b *Builder) storeBit(bit bool) error {
	if b.bitLen >= MaxBits {
		return fmt.Errorf("cell: builder has no room for another bit (used %d/%d)", b.bitLen, MaxBits)
	}
	byteIdx := b.bitLen / 8
	for byteIdx >= len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	if bit {
		b.bits[byteIdx] |= 1 << uint(7-b.bitLen%8)
	}
	b.bitLen++
	return nil
}

// StoreBit appends a single bit.
func (b *Builder) StoreBit(bit bool) error {
	return b.storeBit(bit)
}

// StoreRaw appends the first n bits of data (MSB-first within each byte),
// regardless of the builder's current bit alignment.
func (b *Builder) StoreRaw(data []byte, n int) error {
	if n < 0 || (n+7)/8 > len(data) {
		return fmt.Errorf("cell: StoreRaw: %d bits requested from a %d-byte buffer", n, len(data))
	}
	if n > b.RemainingBits() {
		return fmt.Errorf("cell: StoreRaw: %d bits requested, only %d remain", n, b.RemainingBits())
	}
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		bit := data[byteIdx]&(1<<(7-bitIdx)) != 0
		if err := b.storeBit(bit); err != nil {
			return err
		}
	}
	return nil
}

// StoreUint appends the low n bits of v, big-endian (most significant bit first).
func (b *Builder) StoreUint(v uint64, n int) error {
	if n < 0 || n > 64 {
		return fmt.Errorf("cell: StoreUint: invalid width %d", n)
	}
	if n > b.RemainingBits() {
		return fmt.Errorf("cell: StoreUint: %d bits requested, only %d remain", n, b.RemainingBits())
	}
	for i := n - 1; i >= 0; i-- {
		if err := b.storeBit((v>>uint(i))&1 == 1); err != nil {
			return err
		}
	}
	return nil
}

// StoreBigUint appends the low n bits of v, big-endian. v must be non-negative.
func (b *Builder) StoreBigUint(v *big.Int, n int) error {
	if v.Sign() < 0 {
		return fmt.Errorf("cell: StoreBigUint: negative value")
	}
	if n > b.RemainingBits() {
		return fmt.Errorf("cell: StoreBigUint: %d bits requested, only %d remain", n, b.RemainingBits())
	}
	for i := n - 1; i >= 0; i-- {
		if err := b.storeBit(v.Bit(i) == 1); err != nil {
			return err
		}
	}
	return nil
}

// StoreBigInt appends v as an n-bit two's complement big-endian value.
func (b *Builder) StoreBigInt(v *big.Int, n int) error {
	if n > b.RemainingBits() {
		return fmt.Errorf("cell: StoreBigInt: %d bits requested, only %d remain", n, b.RemainingBits())
	}
	u := v
	if v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
		u = new(big.Int).Add(v, mod)
	}
	for i := n - 1; i >= 0; i-- {
		if err := b.storeBit(u.Bit(i) == 1); err != nil {
			return err
		}
	}
	return nil
}

// StoreRef appends a reference to a finalized child cell.
func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) >= MaxRefs {
		return fmt.Errorf("cell: StoreRef: builder already has the maximum %d references", MaxRefs)
	}
	b.refs = append(b.refs, c)
	return nil
}

// AppendBuilder copies another builder's bits and references onto the
// receiver, as if its content had been written directly. It never finalizes
// other - the two builders remain independent afterwards.
func (b *Builder) AppendBuilder(other *Builder) error {
	if other.bitLen > b.RemainingBits() || len(other.refs) > b.RemainingRefs() {
		return fmt.Errorf("cell: AppendBuilder: does not fit (need %d bits/%d refs, have %d/%d)",
			other.bitLen, len(other.refs), b.RemainingBits(), b.RemainingRefs())
	}
	if err := b.StoreRaw(other.bits, other.bitLen); err != nil {
		return err
	}
	for _, r := range other.refs {
		if err := b.StoreRef(r); err != nil {
			return err
		}
	}
	return nil
}

// EndCell finalizes the builder into an immutable Cell. The builder may
// continue to be used afterwards; EndCell takes a snapshot.
func (b *Builder) EndCell() *Cell {
	byteLen := (b.bitLen + 7) / 8
	bits := make([]byte, byteLen)
	copy(bits, b.bits)
	refs := make([]*Cell, len(b.refs))
	copy(refs, b.refs)
	return NewCell(bits, b.bitLen, refs)
}
