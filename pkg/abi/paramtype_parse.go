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
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
)

// ParseParamTypeCtx parses a contract schema's "type" string into a
// ParamType. Tuple resolves to an empty-components Tuple; the caller fills
// Components from the schema's separate "components" array via
// ParamType.SetComponents, the same two-step shape the contract JSON uses
// (spec.md §6.1).
func ParseParamTypeCtx(ctx context.Context, name string) (ParamType, error) {
	if strings.HasSuffix(name, "]") {
		open := strings.LastIndex(name, "[")
		if open < 0 {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		inner, err := ParseParamTypeCtx(ctx, name[:open])
		if err != nil {
			return ParamType{}, err
		}
		numStr := name[open+1 : len(name)-1]
		if numStr == "" {
			return ArrayType(inner), nil
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return FixedArrayType(inner, n), nil
	}

	switch {
	case name == "bool":
		return BoolType(), nil
	case name == "tuple":
		return TupleType(nil), nil
	case name == "cell":
		return CellType(), nil
	case name == "address":
		return AddressType(), nil
	case name == "token" || name == "gram":
		return TokenType(), nil
	case name == "bytes":
		return BytesType(), nil
	case name == "time":
		return TimeType(), nil
	case name == "expire":
		return ExpireType(), nil
	case name == "pubkey":
		return PublicKeyType(), nil
	case name == "string":
		return StringType(), nil
	case strings.HasPrefix(name, "int"):
		n, err := strconv.Atoi(name[3:])
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return IntType(n), nil
	case strings.HasPrefix(name, "uint"):
		n, err := strconv.Atoi(name[4:])
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return UintType(n), nil
	case strings.HasPrefix(name, "varuint"):
		m, err := strconv.Atoi(name[7:])
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return VarUintType(m), nil
	case strings.HasPrefix(name, "varint"):
		m, err := strconv.Atoi(name[6:])
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return VarIntType(m), nil
	case strings.HasPrefix(name, "fixedbytes"):
		n, err := strconv.Atoi(name[10:])
		if err != nil {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		return FixedBytesType(n), nil
	case strings.HasPrefix(name, "map(") && strings.HasSuffix(name, ")"):
		parts := strings.SplitN(name[4:len(name)-1], ",", 2)
		if len(parts) != 2 {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
		}
		kt, err := ParseParamTypeCtx(ctx, strings.TrimSpace(parts[0]))
		if err != nil {
			return ParamType{}, err
		}
		vt, err := ParseParamTypeCtx(ctx, strings.TrimSpace(parts[1]))
		if err != nil {
			return ParamType{}, err
		}
		if !kt.IsValidMapKey() {
			return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidMapKeyType, kt.TypeSignature())
		}
		return MapType(kt, vt), nil
	case strings.HasPrefix(name, "optional(") && strings.HasSuffix(name, ")"):
		inner, err := ParseParamTypeCtx(ctx, name[9:len(name)-1])
		if err != nil {
			return ParamType{}, err
		}
		return OptionalType(inner), nil
	case strings.HasPrefix(name, "ref(") && strings.HasSuffix(name, ")"):
		inner, err := ParseParamTypeCtx(ctx, name[4:len(name)-1])
		if err != nil {
			return ParamType{}, err
		}
		return RefType(inner), nil
	default:
		return ParamType{}, i18n.NewError(ctx, abimsgs.MsgInvalidTypeName, name)
	}
}
