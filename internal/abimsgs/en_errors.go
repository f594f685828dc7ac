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

package abimsgs

import (
	"golang.org/x/text/language"

	"github.com/hyperledger/firefly-common/pkg/i18n"
)

var ffe = func(key, translation string) i18n.ErrorMessageKey {
	return i18n.FFE(language.AmericanEnglish, key, translation)
}

//revive:disable
var (
	MsgInvalidVersion       = ffe("EV10001", "Invalid ABI version '%s'")
	MsgInvalidName          = ffe("EV10002", "No function or event with name '%s' in the contract")
	MsgInvalidFunctionID    = ffe("EV10003", "No function or event with id '%08x' in the contract")
	MsgNotSupported         = ffe("EV10004", "Type '%s' is not supported in ABI version %s")
	MsgWrongParametersCount = ffe("EV10005", "Wrong parameters count: expected %d, provided %d")
	MsgWrongParameterType   = ffe("EV10006", "Wrong type for parameter '%s': expected %s, got %T")
	MsgWrongDataFormat      = ffe("EV10007", "Wrong data format for parameter '%s': %v")
	MsgInvalidParamLength   = ffe("EV10008", "Invalid length for parameter '%s': expected %d, got %d")
	MsgInvalidParamValue    = ffe("EV10009", "Invalid value for parameter '%s': %v")
	MsgWrongID              = ffe("EV10010", "Wrong selector: decoded '%08x' does not match any known function or event")
	MsgIncompleteDecode     = ffe("EV10011", "Incomplete deserialization: %d bits and %d references remain unconsumed")
	MsgDeserializationError = ffe("EV10012", "Deserialization error reading '%s': %s")
	MsgWrongDataLayout      = ffe("EV10013", "Wrong data layout: '%s' crosses a cell boundary it would not have crossed on encode")
	MsgAddressRequired      = ffe("EV10014", "A destination address is required to sign a message under ABI version %s")
	MsgInvalidData          = ffe("EV10015", "Invalid data: %s")
	MsgInvalidInputData     = ffe("EV10016", "Invalid input data: %s")
	MsgEmptyComponents      = ffe("EV10017", "Type '%s' requires a non-empty 'components' array")
	MsgUnusedComponents     = ffe("EV10018", "Type '%s' does not accept a 'components' array")
	MsgDuplicateHeaderName  = ffe("EV10019", "Duplicate header parameter name '%s'")
	MsgInvalidMapKeyType    = ffe("EV10020", "Type '%s' cannot be used as a map key: only int, uint and address are permitted")
	MsgConstructorNotFound  = ffe("EV10021", "The contract schema defines no constructor-style function '%s'")
	MsgInvalidMapValue      = ffe("EV10022", "Map key '%s' did not tokenize to a JSON string")
	MsgSchemaValidation     = ffe("EV10023", "Contract schema failed validation against the ABI meta-schema: %s")
	MsgHeaderForbidden      = ffe("EV10024", "ABI version 1.0 does not support a non-empty 'header' array")
	MsgStorageNotSupported  = ffe("EV10025", "ABI version %s does not support contract 'fields'")
	MsgDataMapNotSupported  = ffe("EV10026", "ABI version %s does not support the initial-data dictionary; use 'fields' with 'init' instead")
	MsgUnknownDataItem      = ffe("EV10027", "Initial-data item '%s' is not declared in the contract schema")
	MsgInvalidTypeName      = ffe("EV10028", "'%s' is not a recognized ABI parameter type name")
)
