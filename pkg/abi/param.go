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

// Param is a single named, typed entry in a header/input/output/field list,
// or a Tuple's component.
type Param struct {
	Name string
	Type ParamType
	// Init marks a storage field as part of the deploy-time init subset
	// (ABI >= 2.4 only, spec.md §3.4/§6.1).
	Init bool
}

// Signature renders the comma-joined type signatures of params, without
// surrounding parentheses.
func Signature(params []Param) string {
	s := ""
	for i, p := range params {
		if i > 0 {
			s += ","
		}
		s += p.Type.TypeSignature()
	}
	return s
}
