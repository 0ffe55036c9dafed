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
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// Version is a (major, minor) ABI version, total-ordered.
type Version struct {
	Major int
	Minor int
}

// Recognized ABI versions.
var (
	Version1_0 = Version{1, 0}
	Version2_0 = Version{2, 0}
	Version2_1 = Version{2, 1}
	Version2_2 = Version{2, 2}
	Version2_3 = Version{2, 3}
	Version2_4 = Version{2, 4}
	Version2_7 = Version{2, 7}
)

// ParseVersion parses a "major.minor" string, e.g. "2.3".
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return Version{}, i18n.NewError(context.Background(), abimsgs.MsgInvalidABIVersion, s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, i18n.NewError(context.Background(), abimsgs.MsgInvalidABIVersionPart, s, parts[0])
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, i18n.NewError(context.Background(), abimsgs.MsgInvalidABIVersionPart, s, parts[1])
	}
	return Version{Major: major, Minor: minor}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		if v.Major < o.Major {
			return -1
		}
		return 1
	}
	if v.Minor != o.Minor {
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	}
	return 0
}

// GTE reports whether v >= o.
func (v Version) GTE(o Version) bool { return v.Compare(o) >= 0 }

// LT reports whether v < o.
func (v Version) LT(o Version) bool { return v.Compare(o) < 0 }

// IsV1 reports whether this is an ABI 1.x version - the version family
// with the mandatory "final reference reserved for continuation" chain
// packing discipline, an ID header placed before the body rather than
// after it, and a reference-carried (not inline) signature.
func (v Version) IsV1() bool { return v.Major == 1 }

// UsesWorstCaseEnvelope reports whether pack_cells_into_chain should plan
// with each value's declared (max_bits, max_refs) envelope rather than its
// actual written size - true from ABI 2.2 onward.
func (v Version) UsesWorstCaseEnvelope() bool { return v.GTE(Version2_2) }
