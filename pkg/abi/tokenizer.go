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
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// TokenizeParamsCtx tokenizes a JSON object against an ordered parameter
// list - the shape every function input/output/header list, and every
// Tuple, is tokenized with. Missing keys fail (spec.md §4.2).
func TokenizeParamsCtx(ctx context.Context, params []Param, obj map[string]interface{}) ([]NamedToken, error) {
	out := make([]NamedToken, len(params))
	for i, p := range params {
		raw, ok := obj[p.Name]
		if !ok {
			return nil, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, p.Name, p.Type.TypeSignature(), nil)
		}
		tv, err := TokenizeCtx(ctx, p.Type, p.Name, raw)
		if err != nil {
			return nil, err
		}
		out[i] = NamedToken{Name: p.Name, Value: tv}
	}
	return out, nil
}

// TokenizeCtx converts a single JSON value into a TokenValue under pt,
// enforcing the range/shape rules of spec.md §4.2. name is used only for
// error context.
func TokenizeCtx(ctx context.Context, pt ParamType, name string, raw interface{}) (TokenValue, error) {
	switch pt.Tag {
	case TagUint, TagInt, TagVarUint, TagVarInt, TagToken, TagTime, TagExpire:
		return tokenizeInt(ctx, pt, name, raw)
	case TagBool:
		return tokenizeBool(ctx, name, raw)
	case TagBytes:
		b, err := tokenizeHexString(ctx, name, raw)
		if err != nil {
			return TokenValue{}, err
		}
		return BytesToken(b), nil
	case TagFixedBytes:
		b, err := tokenizeHexString(ctx, name, raw)
		if err != nil {
			return TokenValue{}, err
		}
		if len(b) != pt.Width {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamLength, name, pt.Width, len(b))
		}
		return FixedBytesToken(b), nil
	case TagString:
		s, ok := raw.(string)
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "string", raw)
		}
		return StringToken(s), nil
	case TagCell:
		s, ok := raw.(string)
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "base64 cell", raw)
		}
		if s == "" {
			return CellToken(cell.NewCell(nil, 0, nil)), nil
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongDataFormat, name, err)
		}
		return CellToken(cell.NewCell(data, len(data)*8, nil)), nil
	case TagAddress:
		s, ok := raw.(string)
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "address", raw)
		}
		addr, err := cell.ParseAddress(s)
		if err != nil {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, err)
		}
		return AddressToken(addr), nil
	case TagPublicKey:
		s, ok := raw.(string)
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "pubkey hex", raw)
		}
		if s == "" {
			return TokenValue{Tag: TagPublicKey}, nil
		}
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil || len(b) != 32 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, raw)
		}
		return PublicKeyToken(b), nil
	case TagTuple:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "object", raw)
		}
		children, err := TokenizeParamsCtx(ctx, pt.Components, obj)
		if err != nil {
			return TokenValue{}, err
		}
		return TupleToken(children), nil
	case TagArray:
		arr, ok := raw.([]interface{})
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "array", raw)
		}
		items, err := tokenizeArrayItems(ctx, *pt.Inner, name, arr)
		if err != nil {
			return TokenValue{}, err
		}
		return ArrayToken(items), nil
	case TagFixedArray:
		arr, ok := raw.([]interface{})
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "array", raw)
		}
		if len(arr) != pt.ArrayLen {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamLength, name, pt.ArrayLen, len(arr))
		}
		items, err := tokenizeArrayItems(ctx, *pt.Inner, name, arr)
		if err != nil {
			return TokenValue{}, err
		}
		return FixedArrayToken(items), nil
	case TagMap:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "object", raw)
		}
		if !pt.Key.IsValidMapKey() {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidMapKeyType, pt.Key.TypeSignature())
		}
		entries := make([]MapEntry, 0, len(obj))
		for k, v := range obj {
			kt, err := TokenizeCtx(ctx, *pt.Key, name, keyLiteral(*pt.Key, k))
			if err != nil {
				return TokenValue{}, err
			}
			vt, err := TokenizeCtx(ctx, *pt.Inner, name, v)
			if err != nil {
				return TokenValue{}, err
			}
			entries = append(entries, MapEntry{Key: kt, Value: vt})
		}
		return MapToken(entries), nil
	case TagOptional:
		if raw == nil {
			return OptionalToken(nil), nil
		}
		inner, err := TokenizeCtx(ctx, *pt.Inner, name, raw)
		if err != nil {
			return TokenValue{}, err
		}
		return OptionalToken(&inner), nil
	case TagRef:
		inner, err := TokenizeCtx(ctx, *pt.Inner, name, raw)
		if err != nil {
			return TokenValue{}, err
		}
		return RefToken(inner), nil
	default:
		return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, pt.TypeSignature(), raw)
	}
}

// keyLiteral turns a JSON object's string key back into the raw form
// TokenizeCtx expects for the key's declared type (a plain string for
// addresses, the same numeric string otherwise).
func keyLiteral(kt ParamType, k string) interface{} {
	return k
}

func tokenizeArrayItems(ctx context.Context, elem ParamType, name string, arr []interface{}) ([]TokenValue, error) {
	out := make([]TokenValue, len(arr))
	for i, v := range arr {
		tv, err := TokenizeCtx(ctx, elem, fmt.Sprintf("%s[%d]", name, i), v)
		if err != nil {
			return nil, err
		}
		out[i] = tv
	}
	return out, nil
}

func tokenizeBool(ctx context.Context, name string, raw interface{}) (TokenValue, error) {
	switch v := raw.(type) {
	case bool:
		return BoolToken(v), nil
	case string:
		switch v {
		case "true":
			return BoolToken(true), nil
		case "false":
			return BoolToken(false), nil
		}
	}
	return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "bool", raw)
}

func tokenizeHexString(ctx context.Context, name string, raw interface{}) ([]byte, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "hex string", raw)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongDataFormat, name, err)
	}
	return b, nil
}

// tokenizeInt parses a JSON number or string (optionally "0x"/"-0x"
// prefixed) and range-checks it against pt's declared bit width.
func tokenizeInt(ctx context.Context, pt ParamType, name string, raw interface{}) (TokenValue, error) {
	v, err := parseBigInt(ctx, name, raw)
	if err != nil {
		return TokenValue{}, err
	}
	switch pt.Tag {
	case TagUint:
		max := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width))
		if v.Sign() < 0 || v.Cmp(max) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return UintToken(pt.Width, v), nil
	case TagInt:
		half := new(big.Int).Lsh(big.NewInt(1), uint(pt.Width-1))
		min := new(big.Int).Neg(half)
		if v.Cmp(min) < 0 || v.Cmp(half) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return IntToken(pt.Width, v), nil
	case TagVarUint:
		max := new(big.Int).Lsh(big.NewInt(1), uint((pt.Width-1)*8))
		if v.Sign() < 0 || v.Cmp(max) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return VarUintToken(v), nil
	case TagVarInt:
		half := new(big.Int).Lsh(big.NewInt(1), uint((pt.Width-1)*8-1))
		min := new(big.Int).Neg(half)
		if v.Cmp(min) < 0 || v.Cmp(half) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return VarIntToken(v), nil
	case TagToken:
		max := new(big.Int).Lsh(big.NewInt(1), 120)
		if v.Sign() < 0 || v.Cmp(max) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return TokenGramToken(v), nil
	case TagTime:
		if v.Sign() < 0 || !v.IsUint64() {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return TimeToken(v), nil
	case TagExpire:
		max := new(big.Int).Lsh(big.NewInt(1), 32)
		if v.Sign() < 0 || v.Cmp(max) >= 0 {
			return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgInvalidParamValue, name, v)
		}
		return ExpireToken(v), nil
	}
	return TokenValue{}, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, pt.TypeSignature(), raw)
}

func parseBigInt(ctx context.Context, name string, raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case float64:
		bi, _ := big.NewFloat(v).Int(nil)
		return bi, nil
	case string:
		neg := false
		s := v
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		}
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			base = 16
			s = s[2:]
		}
		bi, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, i18n.NewError(ctx, abimsgs.MsgWrongDataFormat, name, v)
		}
		if neg {
			bi.Neg(bi)
		}
		return bi, nil
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, name, "number", raw)
	}
}

// DefaultHeaderValueCtx returns the default value for a header parameter
// omitted from the call, per spec.md §4.2: Time defaults to current
// wall-clock milliseconds, Expire to max u32, PublicKey to absent. Every
// other type has no default.
func DefaultHeaderValueCtx(ctx context.Context, pt ParamType) (TokenValue, bool, error) {
	switch pt.Tag {
	case TagTime:
		return TimeToken(big.NewInt(time.Now().UnixMilli())), true, nil
	case TagExpire:
		return ExpireToken(big.NewInt(0xFFFFFFFF)), true, nil
	case TagPublicKey:
		return TokenValue{Tag: TagPublicKey}, true, nil
	default:
		return TokenValue{}, false, nil
	}
}
