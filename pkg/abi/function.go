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
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"golang.org/x/crypto/ed25519"

	"github.com/everx-labs/ever-abi/internal/abimsgs"
	"github.com/everx-labs/ever-abi/pkg/cell"
)

// FunctionSpec is one callable contract function: its header/input/output
// parameter lists and its cached selector IDs (spec.md §3.4, §9's "Selector
// cache" note - computed once at load, never rehashed per call).
type FunctionSpec struct {
	Name     string
	Version  Version
	Header   []Param
	Inputs   []Param
	Outputs  []Param
	InputID  uint32
	OutputID uint32
}

// NewFunctionSpecCtx builds a FunctionSpec, computing its selector from the
// canonical signature unless explicitID overrides it (spec.md §4.5: "an
// explicit id in the schema overrides both" input and output IDs).
func NewFunctionSpecCtx(ctx context.Context, name string, version Version, header, inputs, outputs []Param, explicitID *uint32) (*FunctionSpec, error) {
	f := &FunctionSpec{Name: name, Version: version, Header: header, Inputs: inputs, Outputs: outputs}
	var base uint32
	if explicitID != nil {
		base = *explicitID
	} else {
		id, err := calcSelector(f.Signature())
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, err)
		}
		base = id
	}
	f.InputID = base &^ (1 << 31)
	f.OutputID = base | (1 << 31)
	return f, nil
}

// Signature renders the full canonical signature used for selector hashing
// (spec.md §4.5): name(inputSig)(outputSig)v<major>. ABI 1.0 additionally
// prepends header types inside the input parentheses.
func (f *FunctionSpec) Signature() string {
	inSig := Signature(f.Inputs)
	if f.Version.Major == 1 && len(f.Header) > 0 {
		headerSig := Signature(f.Header)
		if inSig != "" {
			inSig = headerSig + "," + inSig
		} else {
			inSig = headerSig
		}
	}
	return fmt.Sprintf("%s(%s)(%s)v%d", f.Name, inSig, Signature(f.Outputs), f.Version.Major)
}

// String implements fmt.Stringer, logging (rather than failing) if the
// signature cannot be rendered - mirroring the teacher's convention of
// swallowing errors inside a Stringer for developer convenience only.
func (f *FunctionSpec) String() string {
	ctx := context.Background()
	sig := f.Signature()
	if sig == "" {
		log.L(ctx).Warnf("failed to render signature for function %s", f.Name)
	}
	return sig
}

// calcSelector hashes sig with SHA-256 and takes the first four bytes,
// big-endian, as the function's base ID (spec.md §4.5, §GLOSSARY).
func calcSelector(sig string) (uint32, error) {
	h := sha256.Sum256([]byte(sig))
	return binary.BigEndian.Uint32(h[:4]), nil
}

// resolveHeaderCtx fills in default values for header params omitted from
// supplied, and injects signerPub as a pubkey header when the caller
// supplied a signing key and the header does not already carry one
// (spec.md §4.5).
func (f *FunctionSpec) resolveHeaderCtx(ctx context.Context, supplied map[string]interface{}, signerPub []byte) ([]NamedToken, error) {
	out := make([]NamedToken, len(f.Header))
	havePubkey := false
	for i, p := range f.Header {
		if raw, ok := supplied[p.Name]; ok {
			if p.Type.Tag == TagPublicKey {
				havePubkey = true
			}
			tv, err := TokenizeCtx(ctx, p.Type, p.Name, raw)
			if err != nil {
				return nil, err
			}
			out[i] = NamedToken{Name: p.Name, Value: tv}
			continue
		}
		def, hasDefault, err := DefaultHeaderValueCtx(ctx, p.Type)
		if err != nil {
			return nil, err
		}
		if !hasDefault {
			return nil, i18n.NewError(ctx, abimsgs.MsgWrongParametersCount, len(f.Header), len(supplied))
		}
		out[i] = NamedToken{Name: p.Name, Value: def}
	}
	if signerPub != nil && !havePubkey {
		for i, p := range f.Header {
			if p.Type.Tag == TagPublicKey {
				out[i] = NamedToken{Name: p.Name, Value: PublicKeyToken(signerPub)}
			}
		}
	}
	return out, nil
}

// EncodeInputCtx builds a function call body: the signature prelude, header,
// selector and inputs, packed per spec.md §4.3.1/§4.5. When signer is
// non-nil the body is signed over the hash of its pre-image; destAddr is
// required for ABI >= 2.3's address-bound signing (§4.5.1).
func (f *FunctionSpec) EncodeInputCtx(ctx context.Context, headerValues, inputValues map[string]interface{}, destAddr *cell.Address, signer ed25519.PrivateKey) (*cell.Cell, error) {
	var signerPub []byte
	if signer != nil {
		signerPub = []byte(signer.Public().(ed25519.PublicKey))
	}
	headerTokens, err := f.resolveHeaderCtx(ctx, headerValues, signerPub)
	if err != nil {
		return nil, err
	}
	inputTokens, err := TokenizeParamsCtx(ctx, f.Inputs, inputValues)
	if err != nil {
		return nil, err
	}

	if f.Version.SignaturePrelude() == PreludeAddress && destAddr == nil {
		return nil, i18n.NewError(ctx, abimsgs.MsgAddressRequired, f.Version.String())
	}

	bodyValues, err := f.bodyValues(ctx, headerTokens, inputTokens)
	if err != nil {
		return nil, err
	}

	preimageValues := bodyValues
	if f.Version.SignaturePrelude() == PreludeAddress {
		addrSV, err := SerializeValueCtx(ctx, f.Version, AddressType(), AddressToken(destAddr))
		if err != nil {
			return nil, err
		}
		preimageValues = append([]*SerializedValue{addrSV}, bodyValues...)
	}
	preimageBuilder, err := PackChain(ctx, f.Version, nil, preimageValues)
	if err != nil {
		return nil, err
	}
	hash := preimageBuilder.EndCell().Hash()

	// The prelude is written into final before bodyValues are packed, and
	// PackChain is seeded with final directly - so the chain's first-cell
	// budget already excludes the prelude's bits/refs from the start,
	// mirroring original_source's create_unsigned_call inserting its
	// reserved signature builder into the cells vector ahead of
	// pack_values_into_chain, rather than appending the prelude afterwards.
	final := cell.NewBuilder()
	switch f.Version.SignaturePrelude() {
	case PreludeSignatureRef:
		if signer != nil {
			sig := ed25519.Sign(signer, hash)
			sigCell := cell.NewBuilder()
			if err := sigCell.StoreRaw(sig, 512); err != nil {
				return nil, err
			}
			if err := final.StoreRef(sigCell.EndCell()); err != nil {
				return nil, err
			}
		} else {
			if err := final.StoreRef(cell.NewCell(nil, 0, nil)); err != nil {
				return nil, err
			}
		}
	case PreludeMaybeBit:
		if signer != nil {
			sig := ed25519.Sign(signer, hash)
			if err := final.StoreBit(true); err != nil {
				return nil, err
			}
			if err := final.StoreRaw(sig, 512); err != nil {
				return nil, err
			}
		} else {
			if err := final.StoreBit(false); err != nil {
				return nil, err
			}
		}
	}
	packed, err := PackChain(ctx, f.Version, final, bodyValues)
	if err != nil {
		return nil, err
	}
	return packed.EndCell(), nil
}

// bodyValues assembles the flattened header+selector+input value list in
// version-appropriate order: ABI 1.0 places the selector before the header,
// every later version places it after.
func (f *FunctionSpec) bodyValues(ctx context.Context, headerTokens, inputTokens []NamedToken) ([]*SerializedValue, error) {
	selectorSV, err := serializeSelector(f.InputID)
	if err != nil {
		return nil, err
	}
	headerSV, err := SerializeParamsCtx(ctx, f.Version, f.Header, headerTokens)
	if err != nil {
		return nil, err
	}
	inputSV, err := SerializeParamsCtx(ctx, f.Version, f.Inputs, inputTokens)
	if err != nil {
		return nil, err
	}
	var out []*SerializedValue
	if f.Version.Major == 1 {
		out = append(out, selectorSV)
		out = append(out, headerSV...)
	} else {
		out = append(out, headerSV...)
		out = append(out, selectorSV)
	}
	out = append(out, inputSV...)
	return out, nil
}

func serializeSelector(id uint32) (*SerializedValue, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(id), 32); err != nil {
		return nil, err
	}
	return &SerializedValue{Builder: b, MaxBits: 32, MaxRefs: 0, ActualBits: 32, ActualRefs: 0}, nil
}

// DecodeInputCtx reads a function call body back into header and input
// token lists, per spec.md §4.5's decode ordering.
func (f *FunctionSpec) DecodeInputCtx(ctx context.Context, body *cell.Cell, allowPartial bool) (header []NamedToken, inputs []NamedToken, err error) {
	cur := NewCursor(body)
	switch f.Version.SignaturePrelude() {
	case PreludeSignatureRef:
		if _, err := cur.Slice.LoadRef(); err != nil {
			return nil, nil, i18n.NewError(ctx, abimsgs.MsgDeserializationError, "signature", err)
		}
		id, err := cur.Slice.LoadUint(32)
		if err != nil {
			return nil, nil, err
		}
		if uint32(id) != f.InputID {
			return nil, nil, i18n.NewError(ctx, abimsgs.MsgWrongID, id)
		}
		cur.MaxBitsUsed, cur.MaxRefsUsed = 32, 1
	case PreludeMaybeBit:
		signed, err := cur.Slice.LoadBit()
		if err != nil {
			return nil, nil, err
		}
		cur.MaxBitsUsed = 1
		if signed {
			if _, err := cur.Slice.LoadRaw(512); err != nil {
				return nil, nil, err
			}
			cur.MaxBitsUsed += 512
		}
	}

	header, err = DeserializeParamsCtx(ctx, f.Version, f.Header, cur, true)
	if err != nil {
		return nil, nil, err
	}
	if f.Version.SignaturePrelude() != PreludeSignatureRef {
		id, err := cur.Slice.LoadUint(32)
		if err != nil {
			return nil, nil, err
		}
		if uint32(id) != f.InputID {
			return nil, nil, i18n.NewError(ctx, abimsgs.MsgWrongID, id)
		}
		cur.MaxBitsUsed += 32
	}
	inputs, err = DeserializeParamsCtx(ctx, f.Version, f.Inputs, cur, allowPartial)
	if err != nil {
		return nil, nil, err
	}
	return header, inputs, nil
}

// EncodeOutputCtx builds an output body: the 32-bit output selector
// followed by the outputs, no signature prelude (spec.md §4.5).
func (f *FunctionSpec) EncodeOutputCtx(ctx context.Context, outputValues map[string]interface{}) (*cell.Cell, error) {
	tokens, err := TokenizeParamsCtx(ctx, f.Outputs, outputValues)
	if err != nil {
		return nil, err
	}
	selectorSV, err := serializeSelector(f.OutputID)
	if err != nil {
		return nil, err
	}
	outSV, err := SerializeParamsCtx(ctx, f.Version, f.Outputs, tokens)
	if err != nil {
		return nil, err
	}
	values := append([]*SerializedValue{selectorSV}, outSV...)
	b, err := PackChain(ctx, f.Version, nil, values)
	if err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// DecodeOutputCtx reads an output body: the selector, then outputs.
func (f *FunctionSpec) DecodeOutputCtx(ctx context.Context, body *cell.Cell, allowPartial bool) ([]NamedToken, error) {
	cur := NewCursor(body)
	id, err := cur.Slice.LoadUint(32)
	if err != nil {
		return nil, err
	}
	if uint32(id) != f.OutputID {
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongID, id)
	}
	cur.MaxBitsUsed = 32
	return DeserializeParamsCtx(ctx, f.Version, f.Outputs, cur, allowPartial)
}

// IsMyInputMessage reports whether id matches this function's input selector.
func (f *FunctionSpec) IsMyInputMessage(id uint32) bool { return id == f.InputID }

// IsMyOutputMessage reports whether id matches this function's output selector.
func (f *FunctionSpec) IsMyOutputMessage(id uint32) bool { return id == f.OutputID }
