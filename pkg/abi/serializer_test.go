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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broxus/tvm-abi/pkg/cell"
)

// roundTrip serializes v as t at ver, packs it alone into a chain, and
// decodes it back - the basic property every scalar and container kind
// must satisfy.
func roundTrip(t *testing.T, v *Value, typ *Type, ver Version) *Value {
	t.Helper()
	sv, err := SerializeValue(v, typ, ver)
	require.NoError(t, err)
	root, err := PackCellsIntoChain([]*SerializedValue{sv}, ver)
	require.NoError(t, err)
	cursor := NewCursor(root.Finalize().NewSlice())
	got, err := DecodeValue(cursor, typ, ver)
	require.NoError(t, err)
	return got
}

func TestSerializeDecodeUintRoundTrip(t *testing.T) {
	v := VUint(big.NewInt(12345))
	got := roundTrip(t, v, TUint(32), Version2_2)
	assert.Equal(t, 0, v.IntVal.Cmp(got.IntVal))
}

func TestSerializeDecodeIntNegativeRoundTrip(t *testing.T) {
	v := VInt(big.NewInt(-12345))
	got := roundTrip(t, v, TInt(32), Version2_2)
	assert.Equal(t, 0, v.IntVal.Cmp(got.IntVal))
}

func TestSerializeDecodeVarUintRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 255, 65535} {
		v := VVarUint(big.NewInt(n))
		got := roundTrip(t, v, TVarUint(16), Version2_2)
		assert.Equal(t, 0, v.IntVal.Cmp(got.IntVal), "n=%d", n)
	}
}

func TestSerializeDecodeVarIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, -1, 127, -128} {
		v := VVarInt(big.NewInt(n))
		got := roundTrip(t, v, TVarInt(16), Version2_2)
		assert.Equal(t, 0, v.IntVal.Cmp(got.IntVal), "n=%d", n)
	}
}

func TestSerializeDecodeBoolRoundTrip(t *testing.T) {
	got := roundTrip(t, VBool(true), TBool(), Version2_2)
	assert.True(t, got.BoolVal)
	got = roundTrip(t, VBool(false), TBool(), Version2_2)
	assert.False(t, got.BoolVal)
}

func TestSerializeDecodeTupleRoundTrip(t *testing.T) {
	typ := TTuple(Param{Name: "a", Type: TUint(8)}, Param{Name: "b", Type: TBool()})
	v := VTuple(
		NamedValue{Name: "a", Value: VUint(big.NewInt(7))},
		NamedValue{Name: "b", Value: VBool(true)},
	)
	got := roundTrip(t, v, typ, Version2_2)
	assert.Equal(t, 0, got.Fields[0].Value.IntVal.Cmp(big.NewInt(7)))
	assert.True(t, got.Fields[1].Value.BoolVal)
}

func TestSerializeDecodeArrayRoundTrip(t *testing.T) {
	typ := TArray(TUint(32))
	v := VArray(VUint(big.NewInt(1)), VUint(big.NewInt(2)), VUint(big.NewInt(3)))
	got := roundTrip(t, v, typ, Version2_2)
	require.Len(t, got.Items, 3)
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, 0, got.Items[i].IntVal.Cmp(big.NewInt(want)))
	}
}

func TestSerializeDecodeEmptyArrayRoundTrip(t *testing.T) {
	typ := TArray(TUint(32))
	got := roundTrip(t, VArray(), typ, Version2_2)
	assert.Empty(t, got.Items)
}

func TestSerializeDecodeFixedArrayRoundTrip(t *testing.T) {
	typ := TFixedArray(TBool(), 2)
	v := VFixedArray(VBool(true), VBool(false))
	got := roundTrip(t, v, typ, Version2_2)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].BoolVal)
	assert.False(t, got.Items[1].BoolVal)
}

func TestSerializeDecodeMapRoundTrip(t *testing.T) {
	typ := TMap(TUint(16), TBool())
	v := VMap(
		MapEntry{Key: VUint(big.NewInt(1)), Value: VBool(true)},
		MapEntry{Key: VUint(big.NewInt(2)), Value: VBool(false)},
	)
	got := roundTrip(t, v, typ, Version2_2)
	require.Len(t, got.Entries, 2)
}

func TestSerializeDecodeEmptyMapRoundTrip(t *testing.T) {
	typ := TMap(TUint(16), TBool())
	got := roundTrip(t, VMap(), typ, Version2_2)
	assert.Empty(t, got.Entries)
}

func TestSerializeDecodeAddressRoundTrip(t *testing.T) {
	addr := &Address{Workchain: -1, Hash: [32]byte{1, 2, 3}}
	got := roundTrip(t, VAddressStd(addr), TAddressStd(), Version2_2)
	assert.Equal(t, addr.Workchain, got.AddrVal.Workchain)
	assert.Equal(t, addr.Hash, got.AddrVal.Hash)
}

func TestSerializeDecodeAddressNoneRoundTrip(t *testing.T) {
	got := roundTrip(t, VAddress(&Address{None: true}), TAddress(), Version2_2)
	assert.True(t, got.AddrVal.None)
}

func TestSerializeDecodeBytesChainRoundTrip(t *testing.T) {
	data := make([]byte, bytesChunkCap*2+5)
	for i := range data {
		data[i] = byte(i)
	}
	got := roundTrip(t, VBytes(data), TBytes(), Version2_2)
	assert.Equal(t, data, got.BytesVal)
}

func TestSerializeDecodeBytesChainHeadCellModuloRule(t *testing.T) {
	// A payload that is an exact multiple of bytesChunkCap takes a full
	// chunk in the head cell, not a zero-length one.
	data := make([]byte, bytesChunkCap*2)
	for i := range data {
		data[i] = byte(i)
	}
	got := roundTrip(t, VBytes(data), TBytes(), Version2_2)
	assert.Equal(t, data, got.BytesVal)
}

func TestSerializeDecodeStringRoundTrip(t *testing.T) {
	got := roundTrip(t, VString("hello, tvm-abi"), TString(), Version2_2)
	assert.Equal(t, "hello, tvm-abi", got.StrVal)
}

func TestSerializeDecodeCellRoundTrip(t *testing.T) {
	b := cell.NewBuilder()
	require.NoError(t, b.AppendUint(7, 4))
	c := b.Finalize()
	got := roundTrip(t, VCell(c), TCell(), Version2_2)
	assert.Equal(t, c.Hash(), got.CellVal.Hash())
}

func TestSerializeDecodePublicKeyRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	got := roundTrip(t, VPublicKey(key), TPublicKey(), Version2_2)
	assert.Equal(t, key, got.PubKey)

	got = roundTrip(t, VPublicKey(nil), TPublicKey(), Version2_2)
	assert.Nil(t, got.PubKey)
}

func TestSerializeDecodeOptionalRoundTrip(t *testing.T) {
	typ := TOptional(TUint(8))
	got := roundTrip(t, VOptional(nil), typ, Version2_2)
	assert.Nil(t, got.OptVal)

	got = roundTrip(t, VOptional(VUint(big.NewInt(9))), typ, Version2_2)
	require.NotNil(t, got.OptVal)
	assert.Equal(t, 0, got.OptVal.IntVal.Cmp(big.NewInt(9)))
}

func TestSerializeDecodeOptionalLargeInnerEscapesToRef(t *testing.T) {
	innerType := TTuple(Param{Name: "a", Type: TUint(600)}, Param{Name: "b", Type: TUint(600)})
	typ := TOptional(innerType)
	inner := VTuple(
		NamedValue{Name: "a", Value: VUint(big.NewInt(1))},
		NamedValue{Name: "b", Value: VUint(big.NewInt(2))},
	)
	sv, err := SerializeValue(VOptional(inner), typ, Version2_2)
	require.NoError(t, err)
	assert.Equal(t, 1, sv.Data.RefsUsed(), "large optional must escape to a single reference")

	got := roundTrip(t, VOptional(inner), typ, Version2_2)
	require.NotNil(t, got.OptVal)
	assert.Equal(t, 0, got.OptVal.Fields[1].Value.IntVal.Cmp(big.NewInt(2)))
}

func TestSerializeDecodeRefRoundTrip(t *testing.T) {
	typ := TRef(TUint(16))
	got := roundTrip(t, VRef(VUint(big.NewInt(42))), typ, Version2_4)
	assert.Equal(t, 0, got.RefVal.IntVal.Cmp(big.NewInt(42)))
}

func TestWriteUnsignedRejectsOutOfRangeValue(t *testing.T) {
	_, err := SerializeValue(VUint(big.NewInt(256)), TUint(8), Version2_2)
	assert.Error(t, err)
}

func TestPackCellsIntoChainSplitsWhenOverCapacity(t *testing.T) {
	// Two values whose combined envelope exceeds a single cell must land
	// in separate, reference-linked cells.
	a, err := SerializeValue(VUint(big.NewInt(1)), TUint(600), Version2_2)
	require.NoError(t, err)
	b, err := SerializeValue(VUint(big.NewInt(2)), TUint(600), Version2_2)
	require.NoError(t, err)

	head, err := PackCellsIntoChain([]*SerializedValue{a, b}, Version2_2)
	require.NoError(t, err)
	finalized := head.Finalize()
	assert.Equal(t, 600, finalized.BitLen())
	require.Equal(t, 1, finalized.RefsCount())
	assert.Equal(t, 600, finalized.Ref(0).BitLen())
}

func TestPackCellsIntoChainInlinesWhenItFits(t *testing.T) {
	a, err := SerializeValue(VUint(big.NewInt(1)), TUint(8), Version2_2)
	require.NoError(t, err)
	b, err := SerializeValue(VUint(big.NewInt(2)), TUint(8), Version2_2)
	require.NoError(t, err)

	head, err := PackCellsIntoChain([]*SerializedValue{a, b}, Version2_2)
	require.NoError(t, err)
	finalized := head.Finalize()
	assert.Equal(t, 16, finalized.BitLen())
	assert.Equal(t, 0, finalized.RefsCount())
}

func TestPackCellsIntoChainEmptySequence(t *testing.T) {
	head, err := PackCellsIntoChain(nil, Version2_2)
	require.NoError(t, err)
	assert.Equal(t, 0, head.BitsUsed())
}
