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
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
)

// Version is a contract ABI version, "major.minor". Three independent
// version-gated axes live behind it rather than scattered comparisons: which
// ParamTypes are legal (IsSupported), how the signature prelude is framed
// (SignaturePrelude), and whether chain packing accounts by a type's maximum
// footprint or its actual one (UsesMaxAccounting).
type Version struct {
	Major int
	Minor int
}

// Well-known versions named in the schema availability matrix.
var (
	Version1_0 = Version{1, 0}
	Version2_0 = Version{2, 0}
	Version2_1 = Version{2, 1}
	Version2_2 = Version{2, 2}
	Version2_3 = Version{2, 3}
	Version2_4 = Version{2, 4}
)

// ParseVersionCtx accepts either the legacy bare major number (minor implied 0)
// or the preferred "major.minor" string form.
func ParseVersionCtx(ctx context.Context, s string) (Version, error) {
	parts := strings.SplitN(s, ".", 2)
	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Version{}, i18n.NewError(ctx, abimsgs.MsgInvalidVersion, s)
	}
	minor := 0
	if len(parts) == 2 {
		minor, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return Version{}, i18n.NewError(ctx, abimsgs.MsgInvalidVersion, s)
		}
	}
	return Version{Major: major, Minor: minor}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= (major, minor).
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// UsesMaxAccounting reports whether chain packing (§4.3.1) and layout
// validation (§4.4) account against a type's declared maximum footprint
// (ABI >= 2.2) rather than the footprint actually produced (ABI < 2.2).
func (v Version) UsesMaxAccounting() bool {
	return v.AtLeast(2, 2)
}

// AllowsHeader reports whether a non-empty header array is legal. Only ABI
// 1.0 forbids it.
func (v Version) AllowsHeader() bool {
	return v.Major != 1
}

// SupportsFields reports whether the contract schema's "fields" (storage
// layout) array is legal.
func (v Version) SupportsFields() bool {
	return v.AtLeast(2, 1)
}

// SupportsInit reports whether storage fields may carry a per-field "init"
// flag, and whether ContractSpec exposes the init-subset accessor.
func (v Version) SupportsInit() bool {
	return v.AtLeast(2, 4)
}

// SupportsDataMap reports whether the legacy initial-data dictionary
// ("data" array, keyed by a per-entry u64) is legal. ABI >= 2.4 removes it
// in favor of "fields" with "init".
func (v Version) SupportsDataMap() bool {
	return !v.AtLeast(2, 4)
}

// SignaturePreludeKind enumerates the three ways an input body's head can be
// reserved for signing material.
type SignaturePreludeKind int

const (
	// PreludeSignatureRef reserves one reference to hold the signature
	// (ABI 1.0).
	PreludeSignatureRef SignaturePreludeKind = iota
	// PreludeMaybeBit writes a one-bit "maybe-signature" flag, followed by
	// 512 reserved bits when set (ABI 2.0-2.2).
	PreludeMaybeBit
	// PreludeAddress reserves the destination address's max-bit field in
	// place of a signature-maybe flag (ABI >= 2.3).
	PreludeAddress
)

// SignaturePrelude reports which prelude framing this version uses.
func (v Version) SignaturePrelude() SignaturePreludeKind {
	switch {
	case v.Major == 1:
		return PreludeSignatureRef
	case v.AtLeast(2, 3):
		return PreludeAddress
	default:
		return PreludeMaybeBit
	}
}
