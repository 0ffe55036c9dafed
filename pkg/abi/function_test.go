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
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleContract(ver Version) (*Contract, *Function) {
	f := &Function{
		Name:    "transfer",
		Header:  []Param{{Name: "expire", Type: TExpire()}},
		Inputs:  []Param{{Name: "to", Type: TUint(32)}, {Name: "amount", Type: TUint(128)}},
		Outputs: []Param{{Name: "ok", Type: TBool()}},
	}
	c := &Contract{Version: ver}
	_ = c.FillIDs(f)
	c.Functions = []*Function{f}
	return c, f
}

func TestEncodeDecodeInputInternalRoundTrip(t *testing.T) {
	c, f := simpleContract(Version2_2)
	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(7))},
		{Name: "amount", Value: VUint(big.NewInt(1000))},
	}
	root, err := EncodeInput(c, f, nil, inputs, true, nil, false, nil)
	require.NoError(t, err)

	header, decodedInputs, err := DecodeInput(c, f, root, true, false, false)
	require.NoError(t, err)
	assert.Empty(t, header, "internal calls never carry a header")
	require.Len(t, decodedInputs, 2)
	assert.Equal(t, 0, decodedInputs[0].Value.IntVal.Cmp(big.NewInt(7)))
	assert.Equal(t, 0, decodedInputs[1].Value.IntVal.Cmp(big.NewInt(1000)))
}

func TestEncodeDecodeInputExternalUnsignedRoundTrip(t *testing.T) {
	c, f := simpleContract(Version2_2)
	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(1))},
		{Name: "amount", Value: VUint(big.NewInt(2))},
	}
	headerValues := []NamedValue{{Name: "expire", Value: VExpire(big.NewInt(123))}}

	root, err := EncodeInput(c, f, headerValues, inputs, false, nil, false, nil)
	require.NoError(t, err)

	header, decodedInputs, err := DecodeInput(c, f, root, false, false, false)
	require.NoError(t, err)
	require.Len(t, header, 1)
	assert.Equal(t, 0, header[0].Value.IntVal.Cmp(big.NewInt(123)))
	assert.Equal(t, 0, decodedInputs[0].Value.IntVal.Cmp(big.NewInt(1)))
}

func TestEncodeDecodeInputExternalSignedRoundTrip(t *testing.T) {
	c, f := simpleContract(Version2_2)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := NewKeyPairSigner(priv)

	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(9))},
		{Name: "amount", Value: VUint(big.NewInt(40))},
	}
	headerValues := []NamedValue{{Name: "expire", Value: VExpire(big.NewInt(999))}}

	root, err := EncodeInput(c, f, headerValues, inputs, false, signer, true, nil)
	require.NoError(t, err)

	header, decodedInputs, err := DecodeInput(c, f, root, false, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, header[0].Value.IntVal.Cmp(big.NewInt(999)))
	assert.Equal(t, 0, decodedInputs[1].Value.IntVal.Cmp(big.NewInt(40)))

	_ = pub
}

func TestEncodeInputVersion1PlacesIDBeforeHeader(t *testing.T) {
	f := &Function{
		Name:   "foo",
		Header: []Param{{Name: "time", Type: TUint(64)}},
		Inputs: []Param{{Name: "x", Type: TUint(8)}},
	}
	c := &Contract{Version: Version1_0}
	require.NoError(t, c.FillIDs(f))

	inputs := []NamedValue{{Name: "x", Value: VUint(big.NewInt(1))}}
	headerValues := []NamedValue{{Name: "time", Value: VUint(big.NewInt(55))}}

	root, err := EncodeInput(c, f, headerValues, inputs, false, nil, false, nil)
	require.NoError(t, err)

	cursor := NewCursor(root.NewSlice())
	id, err := cursor.loadUint(context.Background(), 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(f.InputID), id, "ABI 1.x places the function id before the header")

	header, err := DecodeParamsWithCursor(cursor, f.Header, c.Version, false)
	require.NoError(t, err)
	require.Len(t, header, 1)
	assert.Equal(t, 0, header[0].Value.IntVal.Cmp(big.NewInt(55)))
}

func TestEncodeInputRequiresAddressAtABI23External(t *testing.T) {
	c, f := simpleContract(Version2_3)
	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(1))},
		{Name: "amount", Value: VUint(big.NewInt(2))},
	}
	_, err := EncodeInput(c, f, nil, inputs, false, nil, false, nil)
	assert.Error(t, err, "ABI >=2.3 external messages require a destination address")
}

func TestEncodeInputAddressPrefixedDigestChangesSignature(t *testing.T) {
	c, f := simpleContract(Version2_3)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub
	signer := NewKeyPairSigner(priv)

	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(1))},
		{Name: "amount", Value: VUint(big.NewInt(2))},
	}
	headerValues := []NamedValue{{Name: "expire", Value: VExpire(big.NewInt(1))}}

	addrA := &Address{Workchain: 0, Hash: [32]byte{1}}
	addrB := &Address{Workchain: 0, Hash: [32]byte{2}}

	rootA, err := EncodeInput(c, f, headerValues, inputs, false, signer, false, addrA)
	require.NoError(t, err)
	rootB, err := EncodeInput(c, f, headerValues, inputs, false, signer, false, addrB)
	require.NoError(t, err)

	assert.NotEqual(t, rootA.Hash(), rootB.Hash(), "signing against a different address must change the signature, hence the body")
}

func TestDecodeInputRejectsWrongFunctionID(t *testing.T) {
	c, f := simpleContract(Version2_2)
	inputs := []NamedValue{
		{Name: "to", Value: VUint(big.NewInt(1))},
		{Name: "amount", Value: VUint(big.NewInt(2))},
	}
	root, err := EncodeInput(c, f, nil, inputs, true, nil, false, nil)
	require.NoError(t, err)

	other := &Function{Name: "transfer", InputID: f.InputID ^ 0xFFFFFFFF, OutputID: f.OutputID}
	_, _, err = DecodeInput(c, other, root, true, false, false)
	assert.Error(t, err)
}

func TestDecodeOutputRoundTrip(t *testing.T) {
	c, f := simpleContract(Version2_2)
	outputSeq, err := SerializeValue(VBool(true), TBool(), c.Version)
	require.NoError(t, err)
	idVal := idSerializedValue(f.OutputID)
	root, err := PackCellsIntoChain([]*SerializedValue{idVal, outputSeq}, c.Version)
	require.NoError(t, err)

	outputs, err := DecodeOutput(c, f, root.Finalize(), false)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.True(t, outputs[0].Value.BoolVal)
}

func TestDecodeParamsWithCursorAllowPartialDefaultsRemaining(t *testing.T) {
	// A cell carrying only the first of two declared params; strict mode
	// fails, partial mode defaults everything from the failure point on.
	sv, err := SerializeValue(VUint(big.NewInt(5)), TUint(8), Version2_2)
	require.NoError(t, err)
	root, err := PackCellsIntoChain([]*SerializedValue{sv}, Version2_2)
	require.NoError(t, err)

	params := []Param{{Name: "a", Type: TUint(8)}, {Name: "b", Type: TBool()}}

	cursor := NewCursor(root.Finalize().NewSlice())
	_, err = DecodeParamsWithCursor(cursor, params, Version2_2, false)
	assert.Error(t, err)

	cursor2 := NewCursor(root.Finalize().NewSlice())
	out, err := DecodeParamsWithCursor(cursor2, params, Version2_2, true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Value.IntVal.Cmp(big.NewInt(5)))
	assert.False(t, out[1].Value.BoolVal)
}
