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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	// AddressActualBits is the wire size of the addr_std form this package
	// emits and accepts: 2-bit tag, 1-bit absent anycast, 8-bit signed
	// workchain, 256-bit account id.
	AddressActualBits = 267
	// AddressMaxBits is the footprint a conservative, format-agnostic
	// budget (any TL-B address variant, including addr_var's longest form)
	// must reserve for an address field. Versions that account by max
	// rather than actual size (ABI >= 2.2) use this value.
	AddressMaxBits = 591
)

// Address is a TVM addr_std: a workchain id and a 256-bit account id.
type Address struct {
	Workchain int8
	Account   [32]byte
}

// ParseAddress parses the canonical "workchain:hexaccount" textual form.
func ParseAddress(s string) (*Address, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("cell: address %q is not in workchain:account form", s)
	}
	wc, err := strconv.ParseInt(parts[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("cell: address %q has an invalid workchain: %w", s, err)
	}
	raw, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("cell: address %q has a non-hex account id: %w", s, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("cell: address %q account id must be 32 bytes, got %d", s, len(raw))
	}
	a := &Address{Workchain: int8(wc)}
	copy(a.Account[:], raw)
	return a, nil
}

// String renders the canonical "workchain:hexaccount" textual form.
func (a *Address) String() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Account[:]))
}

// StoreTo writes the address onto b in addr_std form: "10" tag, a 0 anycast
// bit, the workchain as an 8-bit two's complement integer, then the account
// id.
func (a *Address) StoreTo(b *Builder) error {
	if err := b.StoreBit(true); err != nil {
		return err
	}
	if err := b.StoreBit(false); err != nil {
		return err
	}
	if err := b.StoreBit(false); err != nil {
		return err
	}
	if err := b.StoreRaw([]byte{byte(a.Workchain)}, 8); err != nil {
		return err
	}
	return b.StoreRaw(a.Account[:], 256)
}

// LoadAddress reads an addr_std previously written by StoreTo.
func LoadAddress(s *Slice) (*Address, error) {
	tag1, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	tag2, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !tag1 || tag2 {
		return nil, fmt.Errorf("cell: unsupported address tag %v%v, only addr_std is accepted", tag1, tag2)
	}
	anycast, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if anycast {
		return nil, fmt.Errorf("cell: addr_std with anycast is not supported")
	}
	wcRaw, err := s.LoadRaw(8)
	if err != nil {
		return nil, err
	}
	accountRaw, err := s.LoadRaw(256)
	if err != nil {
		return nil, err
	}
	a := &Address{Workchain: int8(wcRaw[0])}
	copy(a.Account[:], accountRaw)
	return a, nil
}
