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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// EventSpec is one contract event: an ordered parameter list and a cached
// selector ID derived from its signature, the same way a function's input
// selector is derived (spec.md §3.4, §4.5).
type EventSpec struct {
	Name    string
	Version Version
	Inputs  []Param
	ID      uint32
}

// NewEventSpecCtx builds an EventSpec, computing its selector from the
// canonical signature unless explicitID overrides it.
func NewEventSpecCtx(ctx context.Context, name string, version Version, inputs []Param, explicitID *uint32) (*EventSpec, error) {
	e := &EventSpec{Name: name, Version: version, Inputs: inputs}
	if explicitID != nil {
		e.ID = *explicitID
		return e, nil
	}
	id, err := calcSelector(e.Signature())
	if err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
	}
	e.ID = id
	return e, nil
}

// Signature renders an event's canonical signature: name(inputSig)v<major>.
// Events carry no outputs and no ABI-1.0 header quirk.
func (e *EventSpec) Signature() string {
	return fmt.Sprintf("%s(%s)v%d", e.Name, Signature(e.Inputs), e.Version.Major)
}

func (e *EventSpec) String() string { return e.Signature() }

// EncodeCtx builds an event body: the 32-bit selector followed by the
// event's parameters, chain packed.
func (e *EventSpec) EncodeCtx(ctx context.Context, values map[string]interface{}) (*cell.Cell, error) {
	tokens, err := TokenizeParamsCtx(ctx, e.Inputs, values)
	if err != nil {
		return nil, err
	}
	selectorSV, err := serializeSelector(e.ID)
	if err != nil {
		return nil, err
	}
	inSV, err := SerializeParamsCtx(ctx, e.Version, e.Inputs, tokens)
	if err != nil {
		return nil, err
	}
	all := append([]*SerializedValue{selectorSV}, inSV...)
	b, err := PackChain(ctx, e.Version, nil, all)
	if err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// DecodeCtx reads an event body back into named tokens.
func (e *EventSpec) DecodeCtx(ctx context.Context, body *cell.Cell, allowPartial bool) ([]NamedToken, error) {
	cur := NewCursor(body)
	id, err := cur.Slice.LoadUint(32)
	if err != nil {
		return nil, err
	}
	if uint32(id) != e.ID {
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongID, id)
	}
	cur.MaxBitsUsed = 32
	return DeserializeParamsCtx(ctx, e.Version, e.Inputs, cur, allowPartial)
}

// IsMyMessage reports whether id matches this event's selector.
func (e *EventSpec) IsMyMessage(id uint32) bool { return id == e.ID }
