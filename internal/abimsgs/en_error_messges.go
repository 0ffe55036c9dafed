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

var ffe = i18n.FFE

//revive:disable
var (
	MsgInvalidData            = ffe("TAB10001", "Invalid data: %s")
	MsgInvalidInputData       = ffe("TAB10002", "Invalid input data: %s")
	MsgWrongDataFormat        = ffe("TAB10003", "Wrong format for value '%v' of parameter '%s' - expected %s")
	MsgInvalidParameterValue  = ffe("TAB10004", "Invalid value '%v' for parameter '%s': %s")
	MsgInvalidParameterLength = ffe("TAB10005", "Invalid length: expected %v, got %v")
	MsgEmptyComponents        = ffe("TAB10006", "Tuple type '%s' must declare at least one component")
	MsgUnusedComponents       = ffe("TAB10007", "Type '%s' is not a container type and cannot accept components")
	MsgWrongParameterType     = ffe("TAB10008", "Value of kind '%s' does not match declared type %s")
	MsgWrongID                = ffe("TAB10009", "Wrong function ID 0x%08x")
	MsgAddressRequired        = ffe("TAB10010", "A destination address is required to sign external messages at ABI version %s")
	MsgDeserializationError   = ffe("TAB10011", "Failed to decode cell: %s")
	MsgUnsupportedInVersion   = ffe("TAB10012", "Type %s is not supported in ABI version %s")
	MsgBadTypeSignature       = ffe("TAB10013", "Unable to parse type signature '%s'")
	MsgCellOverflow           = ffe("TAB10014", "Cell capacity exceeded: %d bits / %d refs requested, %d bits / %d refs available")
	MsgSchemaParseFailed      = ffe("TAB10015", "Failed to parse ABI schema: %s")
	MsgUnknownHeaderParam     = ffe("TAB10016", "Unknown header parameter '%s'")
	MsgFunctionNotFound       = ffe("TAB10017", "Function '%s' not found in contract descriptor")
	MsgSigningRequiresKeyPair = ffe("TAB10018", "A key pair is required to produce a signed external message")
	MsgBadBase64BOC           = ffe("TAB10019", "Invalid base64 BOC string for cell value: %s")
	MsgInvalidABIVersion      = ffe("TAB10020", "Invalid ABI version '%s': expected 'major.minor'")
	MsgInvalidABIVersionPart  = ffe("TAB10021", "Invalid ABI version '%s': %s is not an integer")
)
