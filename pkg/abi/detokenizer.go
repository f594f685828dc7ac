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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
)

// DetokenizeParamsCtx renders a tokenized parameter list back to a JSON
// object keyed by parameter name, the inverse of TokenizeParamsCtx.
func DetokenizeParamsCtx(ctx context.Context, params []NamedToken) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(params))
	for _, nt := range params {
		v, err := walkOutput(ctx, nt.Name, nt.Value)
		if err != nil {
			return nil, err
		}
		out[nt.Name] = v
	}
	return out, nil
}

// DetokenizeCtx renders a single TokenValue to its JSON form.
func DetokenizeCtx(ctx context.Context, name string, tv TokenValue) (interface{}, error) {
	return walkOutput(ctx, name, tv)
}

// walkOutput is the single dispatch point every TokenValue tag flows
// through on the way to JSON; container tags recurse into it rather than
// each growing their own traversal.
func walkOutput(ctx context.Context, breadcrumb string, tv TokenValue) (interface{}, error) {
	switch tv.Tag {
	case TagUint:
		return formatInt(tv.Int, tv.Width), nil
	case TagInt:
		return formatInt(tv.Int, tv.Width), nil
	case TagVarUint, TagVarInt, TagToken, TagTime, TagExpire:
		return tv.Int.String(), nil
	case TagBool:
		return tv.Bool, nil
	case TagBytes, TagFixedBytes:
		return hex.EncodeToString(tv.Bytes), nil
	case TagString:
		return tv.Str, nil
	case TagCell:
		if tv.CellVal == nil {
			return "", nil
		}
		return base64.StdEncoding.EncodeToString(tv.CellVal.Data()), nil
	case TagAddress:
		return tv.Addr.String(), nil
	case TagPublicKey:
		if tv.Bytes == nil {
			return "", nil
		}
		return hex.EncodeToString(tv.Bytes), nil
	case TagTuple:
		out := make(map[string]interface{}, len(tv.Tuple))
		for _, nt := range tv.Tuple {
			v, err := walkOutput(ctx, breadcrumb+"."+nt.Name, nt.Value)
			if err != nil {
				return nil, err
			}
			out[nt.Name] = v
		}
		return out, nil
	case TagArray, TagFixedArray:
		out := make([]interface{}, len(tv.Array))
		for i, item := range tv.Array {
			v, err := walkOutput(ctx, fmt.Sprintf("%s[%d]", breadcrumb, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case TagMap:
		out := make(map[string]interface{}, len(tv.Map))
		for _, e := range tv.Map {
			k, err := walkOutput(ctx, breadcrumb, e.Key)
			if err != nil {
				return nil, err
			}
			v, err := walkOutput(ctx, breadcrumb, e.Value)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprintf("%v", k)] = v
		}
		return out, nil
	case TagOptional:
		if tv.Inner == nil {
			return nil, nil
		}
		return walkOutput(ctx, breadcrumb, *tv.Inner)
	case TagRef:
		return walkOutput(ctx, breadcrumb, *tv.Inner)
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongParameterType, breadcrumb, "known type", tv.Tag)
	}
}

// formatInt applies spec.md §4.2's large-integer rule: 256-bit-wide values
// render as zero-padded 0x-prefixed hex, everything else as decimal.
func formatInt(v *big.Int, width int) string {
	if width != 256 {
		return v.String()
	}
	u := v
	if v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 256)
		u = new(big.Int).Add(v, mod)
	}
	hexDigits := u.Text(16)
	if len(hexDigits) < 64 {
		hexDigits = strings.Repeat("0", 64-len(hexDigits)) + hexDigits
	}
	return "0x" + hexDigits
}
