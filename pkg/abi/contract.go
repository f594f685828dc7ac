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
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// dataMapKeyBits is the bit width of the legacy initial-data dictionary's
// key (spec.md §6.1, grounded on original_source's DATA_MAP_KEYLEN).
const dataMapKeyBits = 64

// pubkeyDataKey is the reserved initial-data key that carries the account's
// public key.
const pubkeyDataKey = 0

// DataItem is one entry of the legacy (ABI < 2.4) initial-data dictionary:
// a fixed u64 key paired with the parameter describing its value.
type DataItem struct {
	Key   uint64
	Param Param
}

// ContractSpec is the top-level registry parsed from a contract's ABI JSON:
// every function and event by name, the initial-data dictionary or storage
// fields (depending on version), and the shared header template copied into
// every function's FunctionSpec.Header (spec.md §4.6).
type ContractSpec struct {
	Version Version
	SetTime bool
	Header  []Param
	Data    map[string]DataItem
	Fields  []Param

	functions map[string]*FunctionSpec
	events    map[string]*EventSpec
}

type rawParam struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Components []rawParam `json:"components,omitempty"`
	Init       bool       `json:"init,omitempty"`
}

// UnmarshalJSON accepts both the bare-string form ("uint256") and the
// object form ({"name":..., "type":..., "components":...}) spec.md §6.1
// describes for a Param.
func (r *rawParam) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		r.Name = asString
		r.Type = asString
		return nil
	}
	type alias rawParam
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = rawParam(a)
	return nil
}

func (r rawParam) toParamCtx(ctx context.Context) (Param, error) {
	pt, err := ParseParamTypeCtx(ctx, r.Type)
	if err != nil {
		return Param{}, err
	}
	children := make([]Param, len(r.Components))
	for i, c := range r.Components {
		p, err := c.toParamCtx(ctx)
		if err != nil {
			return Param{}, err
		}
		children[i] = p
	}
	if pt.Tag == TagTuple || len(children) > 0 {
		if err := pt.SetComponents(ctx, children); err != nil {
			return Param{}, err
		}
	}
	return Param{Name: r.Name, Type: pt, Init: r.Init}, nil
}

func toParamsCtx(ctx context.Context, raw []rawParam) ([]Param, error) {
	out := make([]Param, len(raw))
	for i, r := range raw {
		p, err := r.toParamCtx(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

type rawFunction struct {
	Name    string     `json:"name"`
	Inputs  []rawParam `json:"inputs"`
	Outputs []rawParam `json:"outputs"`
	ID      *uint32    `json:"id,omitempty"`
}

type rawEvent struct {
	Name   string     `json:"name"`
	Inputs []rawParam `json:"inputs"`
	ID     *uint32    `json:"id,omitempty"`
}

type rawDataItem struct {
	Key        uint64     `json:"key"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Components []rawParam `json:"components,omitempty"`
}

type rawContract struct {
	ABIVersion  json.Number   `json:"ABI version"`
	Version     string        `json:"version,omitempty"`
	SetTime     *bool         `json:"setTime,omitempty"`
	Header      []rawParam    `json:"header,omitempty"`
	Functions   []rawFunction `json:"functions"`
	Events      []rawEvent    `json:"events,omitempty"`
	Data        []rawDataItem `json:"data,omitempty"`
	Fields      []rawParam    `json:"fields,omitempty"`
}

var metaSchema *jsonschema.Schema
var metaSchemaOnce sync.Once

// contractMetaSchema is an embedded JSON-Schema document describing the
// top-level shape of a contract ABI file (spec.md §6.1): the fields this
// module reads, loosely typed so forward-compatible extra keys are ignored.
const contractMetaSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["ABI version", "functions"],
	"properties": {
		"ABI version": {"type": "integer"},
		"version": {"type": "string"},
		"setTime": {"type": "boolean"},
		"header": {"type": "array"},
		"functions": {"type": "array"},
		"events": {"type": "array"},
		"data": {"type": "array"},
		"fields": {"type": "array"}
	}
}`

func loadMetaSchema() (*jsonschema.Schema, error) {
	var err error
	metaSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if addErr := c.AddResource("contract.json", bytes.NewReader([]byte(contractMetaSchema))); addErr != nil {
			err = addErr
			return
		}
		metaSchema, err = c.Compile("contract.json")
	})
	return metaSchema, err
}

// LoadContractSpecCtx parses and validates a contract ABI JSON document,
// building every FunctionSpec and EventSpec it declares.
func LoadContractSpecCtx(ctx context.Context, data []byte) (*ContractSpec, error) {
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
	}
	schema, err := loadMetaSchema()
	if err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgSchemaValidation, err)
	}

	var raw rawContract
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
	}

	var version Version
	if raw.Version != "" {
		version, err = ParseVersionCtx(ctx, raw.Version)
	} else {
		version, err = ParseVersionCtx(ctx, raw.ABIVersion.String())
	}
	if err != nil {
		return nil, err
	}

	header, err := toParamsCtx(ctx, raw.Header)
	if err != nil {
		return nil, err
	}
	if len(header) > 0 && !version.AllowsHeader() {
		return nil, i18n.NewError(ctx, abimsgs.MsgHeaderForbidden)
	}
	if err := checkDuplicateNames(ctx, header); err != nil {
		return nil, err
	}

	// ABI 1.0's implicit time header (spec.md §6.1) predates Time's normal
	// minimum-version gate; it is injected directly rather than going
	// through ParseParamTypeCtx/IsSupported.
	setTime := raw.SetTime == nil || *raw.SetTime
	if version.Major == 1 && setTime {
		header = append([]Param{{Name: "time", Type: TimeType()}}, header...)
	}

	cs := &ContractSpec{
		Version:   version,
		SetTime:   setTime,
		Header:    header,
		Data:      map[string]DataItem{},
		functions: map[string]*FunctionSpec{},
		events:    map[string]*EventSpec{},
	}

	for _, rf := range raw.Functions {
		inputs, err := toParamsCtx(ctx, rf.Inputs)
		if err != nil {
			return nil, err
		}
		outputs, err := toParamsCtx(ctx, rf.Outputs)
		if err != nil {
			return nil, err
		}
		f, err := NewFunctionSpecCtx(ctx, rf.Name, version, header, inputs, outputs, rf.ID)
		if err != nil {
			return nil, err
		}
		cs.functions[f.Name] = f
		log.L(ctx).Debugf("registered function %s (in=%08x out=%08x)", f.Name, f.InputID, f.OutputID)
	}

	for _, re := range raw.Events {
		inputs, err := toParamsCtx(ctx, re.Inputs)
		if err != nil {
			return nil, err
		}
		e, err := NewEventSpecCtx(ctx, re.Name, version, inputs, re.ID)
		if err != nil {
			return nil, err
		}
		cs.events[e.Name] = e
		log.L(ctx).Debugf("registered event %s (id=%08x)", e.Name, e.ID)
	}

	if len(raw.Data) > 0 {
		if !version.SupportsDataMap() {
			return nil, i18n.NewError(ctx, abimsgs.MsgDataMapNotSupported, version.String())
		}
		for _, rd := range raw.Data {
			p, err := (rawParam{Name: rd.Name, Type: rd.Type, Components: rd.Components}).toParamCtx(ctx)
			if err != nil {
				return nil, err
			}
			cs.Data[p.Name] = DataItem{Key: rd.Key, Param: p}
		}
	}

	if len(raw.Fields) > 0 {
		if !version.SupportsFields() {
			return nil, i18n.NewError(ctx, abimsgs.MsgStorageNotSupported, version.String())
		}
		fields, err := toParamsCtx(ctx, raw.Fields)
		if err != nil {
			return nil, err
		}
		if !version.SupportsInit() {
			for _, f := range fields {
				if f.Init {
					return nil, i18n.NewError(ctx, abimsgs.MsgStorageNotSupported, version.String())
				}
			}
		}
		cs.Fields = fields
	}

	return cs, nil
}

func checkDuplicateNames(ctx context.Context, params []Param) error {
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.Name] {
			return i18n.NewError(ctx, abimsgs.MsgDuplicateHeaderName, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// FunctionByName returns the function registered under name.
func (cs *ContractSpec) FunctionByName(ctx context.Context, name string) (*FunctionSpec, error) {
	f, ok := cs.functions[name]
	if !ok {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidName, name)
	}
	return f, nil
}

// FunctionByID does the linear scan original_source's Contract::function_by_id
// performs, over input or output selectors depending on input.
func (cs *ContractSpec) FunctionByID(ctx context.Context, id uint32, input bool) (*FunctionSpec, error) {
	for _, f := range cs.functions {
		if (input && f.InputID == id) || (!input && f.OutputID == id) {
			return f, nil
		}
	}
	return nil, i18n.NewError(ctx, abimsgs.MsgInvalidFunctionID, id)
}

// EventByID does the linear scan original_source's Contract::event_by_id
// performs.
func (cs *ContractSpec) EventByID(ctx context.Context, id uint32) (*EventSpec, error) {
	for _, e := range cs.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, i18n.NewError(ctx, abimsgs.MsgInvalidFunctionID, id)
}

// Functions returns the function registry.
func (cs *ContractSpec) Functions() map[string]*FunctionSpec { return cs.functions }

// Events returns the event registry.
func (cs *ContractSpec) Events() map[string]*EventSpec { return cs.events }

// DecodedMessage is the result of decoding a body whose function or event is
// not known ahead of time.
type DecodedMessage struct {
	Name   string
	Tokens []NamedToken
}

// DecodeUnknownInputCtx reads a function's 32-bit input selector first,
// looks up the matching function, then decodes the rest of the body.
func (cs *ContractSpec) DecodeUnknownInputCtx(ctx context.Context, body *cell.Cell, allowPartial bool) (*DecodedMessage, error) {
	id, err := cs.peekSelector(ctx, body)
	if err != nil {
		return nil, err
	}
	f, err := cs.FunctionByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	_, inputs, err := f.DecodeInputCtx(ctx, body, allowPartial)
	if err != nil {
		return nil, err
	}
	return &DecodedMessage{Name: f.Name, Tokens: inputs}, nil
}

// DecodeUnknownOutputCtx reads an output body whose function id is not known
// ahead of time: it may belong to a function's output, or to an event.
func (cs *ContractSpec) DecodeUnknownOutputCtx(ctx context.Context, body *cell.Cell, allowPartial bool) (*DecodedMessage, error) {
	cur := NewCursor(body)
	id, err := cur.Slice.LoadUint(32)
	if err != nil {
		return nil, err
	}
	cur.MaxBitsUsed = 32
	if f, ferr := cs.FunctionByID(ctx, uint32(id), false); ferr == nil {
		tokens, err := DeserializeParamsCtx(ctx, cs.Version, f.Outputs, cur, allowPartial)
		if err != nil {
			return nil, err
		}
		return &DecodedMessage{Name: f.Name, Tokens: tokens}, nil
	}
	e, err := cs.EventByID(ctx, uint32(id))
	if err != nil {
		return nil, err
	}
	tokens, err := DeserializeParamsCtx(ctx, cs.Version, e.Inputs, cur, allowPartial)
	if err != nil {
		return nil, err
	}
	return &DecodedMessage{Name: e.Name, Tokens: tokens}, nil
}

// peekSelector reads an input body's 32-bit selector on a fresh cursor: it
// strips the signature prelude, then - since every function in a contract
// shares the same header shape (cs.Header) - skips the header before
// reading the id, mirroring FunctionSpec.bodyValues's ordering.
func (cs *ContractSpec) peekSelector(ctx context.Context, body *cell.Cell) (uint32, error) {
	cur := NewCursor(body)
	switch cs.Version.SignaturePrelude() {
	case PreludeSignatureRef:
		if _, err := cur.Slice.LoadRef(); err != nil {
			return 0, err
		}
	case PreludeMaybeBit:
		signed, err := cur.Slice.LoadBit()
		if err != nil {
			return 0, err
		}
		if signed {
			if _, err := cur.Slice.LoadRaw(512); err != nil {
				return 0, err
			}
		}
	}

	if cs.Version.Major == 1 {
		id, err := cur.Slice.LoadUint(32)
		return uint32(id), err
	}
	if _, err := DeserializeParamsCtx(ctx, cs.Version, cs.Header, cur, true); err != nil {
		return 0, err
	}
	id, err := cur.Slice.LoadUint(32)
	return uint32(id), err
}

// UpdateDataCtx rewrites named entries of the legacy initial-data
// dictionary (ABI < 2.4), mirroring original_source's Contract::update_data.
func (cs *ContractSpec) UpdateDataCtx(ctx context.Context, data *cell.Cell, values map[string]interface{}) (*cell.Cell, error) {
	existing, err := cell.ParseHashmapE(data.BeginParse(), dataMapKeyBits)
	if err != nil {
		return nil, err
	}
	entries := map[string]cell.DictEntry{}
	for _, d := range existing {
		entries[d.Key.String()] = cell.DictEntry{Key: d.Key, Value: sliceToBuilder(d.Value)}
	}
	for name, raw := range values {
		item, ok := cs.Data[name]
		if !ok {
			return nil, i18n.NewError(ctx, abimsgs.MsgUnknownDataItem, name)
		}
		tv, err := TokenizeCtx(ctx, item.Param.Type, name, raw)
		if err != nil {
			return nil, err
		}
		sv, err := SerializeValueCtx(ctx, cs.Version, item.Param.Type, tv)
		if err != nil {
			return nil, err
		}
		key := big.NewInt(0).SetUint64(item.Key)
		entries[key.String()] = cell.DictEntry{Key: key, Value: sv.Builder}
	}
	list := make([]cell.DictEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	present, root, err := cell.BuildHashmapE(dataMapKeyBits, list)
	if err != nil {
		return nil, err
	}
	out := cell.NewBuilder()
	if err := out.StoreBit(present); err != nil {
		return nil, err
	}
	if present {
		if err := out.StoreRef(root); err != nil {
			return nil, err
		}
	}
	return out.EndCell(), nil
}

// InsertPubkeyCtx sets the public key entry (reserved key 0) of the legacy
// initial-data dictionary, mirroring original_source's
// Contract::insert_pubkey.
func (cs *ContractSpec) InsertPubkeyCtx(ctx context.Context, data *cell.Cell, pubkey []byte) (*cell.Cell, error) {
	existing, err := cell.ParseHashmapE(data.BeginParse(), dataMapKeyBits)
	if err != nil {
		return nil, err
	}
	entries := map[string]cell.DictEntry{}
	for _, d := range existing {
		entries[d.Key.String()] = cell.DictEntry{Key: d.Key, Value: sliceToBuilder(d.Value)}
	}
	b := cell.NewBuilder()
	if err := b.StoreRaw(pubkey, len(pubkey)*8); err != nil {
		return nil, err
	}
	key := big.NewInt(pubkeyDataKey)
	entries[key.String()] = cell.DictEntry{Key: key, Value: b}
	list := make([]cell.DictEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	present, root, err := cell.BuildHashmapE(dataMapKeyBits, list)
	if err != nil {
		return nil, err
	}
	out := cell.NewBuilder()
	if err := out.StoreBit(present); err != nil {
		return nil, err
	}
	if present {
		if err := out.StoreRef(root); err != nil {
			return nil, err
		}
	}
	return out.EndCell(), nil
}

// DecodeDataCtx renders the legacy initial-data dictionary back to named
// tokens, per its declared parameter types.
func (cs *ContractSpec) DecodeDataCtx(ctx context.Context, data *cell.Cell) ([]NamedToken, error) {
	entries, err := cell.ParseHashmapE(data.BeginParse(), dataMapKeyBits)
	if err != nil {
		return nil, err
	}
	byKey := map[uint64]*cell.Slice{}
	for _, e := range entries {
		byKey[e.Key.Uint64()] = e.Value
	}
	var out []NamedToken
	for name, item := range cs.Data {
		s, ok := byKey[item.Key]
		if !ok {
			continue
		}
		cur := &Cursor{Slice: s}
		tv, err := DeserializeValueCtx(ctx, cs.Version, item.Param.Type, cur, name)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedToken{Name: name, Value: tv})
	}
	return out, nil
}

// EncodeStorageFieldsCtx serializes the contract's storage fields (ABI >= 2.1)
// as a flat tuple, used to build or verify full account storage.
func (cs *ContractSpec) EncodeStorageFieldsCtx(ctx context.Context, values map[string]interface{}) (*cell.Cell, error) {
	tokens, err := TokenizeParamsCtx(ctx, cs.Fields, values)
	if err != nil {
		return nil, err
	}
	svs, err := SerializeParamsCtx(ctx, cs.Version, cs.Fields, tokens)
	if err != nil {
		return nil, err
	}
	b, err := PackChain(ctx, cs.Version, nil, svs)
	if err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// DecodeStorageFieldsCtx reads storage fields back into named tokens.
func (cs *ContractSpec) DecodeStorageFieldsCtx(ctx context.Context, data *cell.Cell, allowPartial bool) ([]NamedToken, error) {
	cur := NewCursor(data)
	return DeserializeParamsCtx(ctx, cs.Version, cs.Fields, cur, allowPartial)
}

// InitFields returns the subset of storage fields marked as part of the
// deploy-time init data (ABI >= 2.4 only, spec.md §3.4).
func (cs *ContractSpec) InitFields() []Param {
	if !cs.Version.SupportsInit() {
		return nil
	}
	var out []Param
	for _, f := range cs.Fields {
		if f.Init {
			out = append(out, f)
		}
	}
	return out
}

func sliceToBuilder(s *cell.Slice) *cell.Builder {
	b := cell.NewBuilder()
	remaining := s.RemainingBits()
	if remaining > 0 {
		raw, err := s.LoadRaw(remaining)
		if err == nil {
			_ = b.StoreRaw(raw, remaining)
		}
	}
	for i := 0; i < s.RemainingRefs(); i++ {
		ref, err := s.LoadRef()
		if err == nil {
			_ = b.StoreRef(ref)
		}
	}
	return b
}
