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
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// Function is one callable entry of a Contract: name, header/input/output
// params, and the function IDs derived from its canonical signature unless
// the schema reader supplied explicit ones.
type Function struct {
	Name     string
	Header   []Param
	Inputs   []Param
	Outputs  []Param
	InputID  uint32
	OutputID uint32
}

// Event mirrors Function for an outbound event body: a name, an ordered
// field list, and its own id derived the same way as a function's output id.
type Event struct {
	Name   string
	Inputs []Param
	ID     uint32
}

// StorageField is one entry of a contract's persisted-storage layout.
// Init fields are supplied by the deployer at construction time; the rest
// are left at their type's default value until the contract writes them.
type StorageField struct {
	Name string
	Type *Type
	Init bool
}

// DataItem is one persisted-data key slot, addressed by a 64-bit key
// rather than by storage layout position.
type DataItem struct {
	Key   uint64
	Name  string
	Type  *Type
}

// GetterDescriptor is inert metadata about an off-chain read method; the
// core codec does not encode or decode getter calls, it only carries the
// declaration through from the schema.
type GetterDescriptor struct {
	Name    string
	Inputs  []Param
	Outputs []Param
}

// Contract aggregates everything a schema document supplies: the ABI
// version, the shared header param list, and the function/event/storage
// declarations. Contracts are immutable after construction.
type Contract struct {
	Version       Version
	Header        []Param
	Functions     []*Function
	Events        []*Event
	Data          []*DataItem
	Fields        []*StorageField
	Getters       []*GetterDescriptor
}

// FunctionByName looks up a declared function, or returns a FunctionNotFound
// error.
func (c *Contract) FunctionByName(name string) (*Function, error) {
	for _, f := range c.Functions {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, i18n.NewError(context.Background(), abimsgs.MsgFunctionNotFound, name)
}

// Signature returns the canonical signature string used to derive a
// function's id, per §3: header signatures are only included for ABI 1.x.
func (c *Contract) Signature(f *Function) (string, error) {
	var parts []string
	if c.Version.IsV1() {
		for _, h := range f.Header {
			s, err := h.Type.Signature()
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
	}
	for _, in := range f.Inputs {
		s, err := in.Type.Signature()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	var outParts []string
	for _, out := range f.Outputs {
		s, err := out.Type.Signature()
		if err != nil {
			return "", err
		}
		outParts = append(outParts, s)
	}
	return f.Name + "(" + strings.Join(parts, ",") + ")(" + strings.Join(outParts, ",") + ")v" + intToStr(c.Version.Major), nil
}

func intToStr(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// DeriveIDs computes sha256(signature)[0:4] big-endian and splits it into
// input_id (MSB cleared) and output_id (MSB set), per §3. Called by a
// schema reader when a function declares no explicit id.
func DeriveIDs(signature string) (inputID, outputID uint32) {
	h := sha256.Sum256([]byte(signature))
	id := binary.BigEndian.Uint32(h[0:4])
	return id &^ 0x80000000, id | 0x80000000
}

// FillIDs derives and assigns f's input/output ids from its canonical
// signature under c's version. It is a no-op if either id is already
// non-zero, allowing a schema reader to pass through explicit ids.
func (c *Contract) FillIDs(f *Function) error {
	if f.InputID != 0 || f.OutputID != 0 {
		return nil
	}
	sig, err := c.Signature(f)
	if err != nil {
		return err
	}
	f.InputID, f.OutputID = DeriveIDs(sig)
	return nil
}
