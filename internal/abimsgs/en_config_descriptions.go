// Copyright © 2022 Kaleido, Inc.
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

import "github.com/hyperledger/firefly-common/pkg/i18n"

var ffc = i18n.FFC

//revive:disable
var (
	ConfigContractValidateSchema = ffc("config.contract.validateSchema", "Whether to validate a loaded contract schema against the embedded ABI meta-schema before parsing it", "boolean")
	ConfigContractAllowPartial   = ffc("config.contract.allowPartialDecode", "Whether deserialization tolerates unconsumed trailing bits/references instead of failing", "boolean")
)
