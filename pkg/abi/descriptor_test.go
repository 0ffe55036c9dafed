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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractSignatureIncludesHeaderOnlyForV1(t *testing.T) {
	f := &Function{
		Name:    "transfer",
		Header:  []Param{{Name: "time", Type: TTime()}},
		Inputs:  []Param{{Name: "to", Type: TAddressStd()}, {Name: "amount", Type: TUint(128)}},
		Outputs: []Param{{Name: "ok", Type: TBool()}},
	}
	c2 := &Contract{Version: Version2_2}
	sig2, err := c2.Signature(f)
	require.NoError(t, err)
	assert.Equal(t, "transfer(address_std,uint128)(bool)v2", sig2)

	c1 := &Contract{Version: Version1_0}
	sig1, err := c1.Signature(f)
	require.NoError(t, err)
	assert.Equal(t, "transfer(time,address_std,uint128)(bool)v1", sig1)
}

func TestDeriveIDsSplitsInputAndOutputByTopBit(t *testing.T) {
	inputID, outputID := DeriveIDs("constructor()()v2")
	assert.Equal(t, uint32(0), inputID&0x80000000, "input id must have the top bit clear")
	assert.Equal(t, uint32(0x80000000), outputID&0x80000000, "output id must have the top bit set")
	assert.Equal(t, inputID|0x80000000, outputID)
}

func TestDeriveIDsIsDeterministic(t *testing.T) {
	a1, a2 := DeriveIDs("foo(uint8)(bool)v2")
	b1, b2 := DeriveIDs("foo(uint8)(bool)v2")
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)

	c1, _ := DeriveIDs("bar(uint8)(bool)v2")
	assert.NotEqual(t, a1, c1)
}

func TestFillIDsIsNoOpWhenIDsAlreadySet(t *testing.T) {
	f := &Function{Name: "foo", InputID: 0x11111111, OutputID: 0x91111111}
	c := &Contract{Version: Version2_2}
	require.NoError(t, c.FillIDs(f))
	assert.Equal(t, uint32(0x11111111), f.InputID)
	assert.Equal(t, uint32(0x91111111), f.OutputID)
}

func TestFillIDsDerivesWhenBothZero(t *testing.T) {
	f := &Function{Name: "constructor"}
	c := &Contract{Version: Version2_2}
	require.NoError(t, c.FillIDs(f))
	assert.NotZero(t, f.InputID)
	assert.NotZero(t, f.OutputID)
}

func TestContractFunctionByName(t *testing.T) {
	f := &Function{Name: "foo"}
	c := &Contract{Functions: []*Function{f}}

	got, err := c.FunctionByName("foo")
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = c.FunctionByName("bar")
	assert.Error(t, err)
}
