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

package cell

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderAppendUintLoadUintRoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AppendUint(0xABCD, 16))
	require.NoError(t, b.AppendUint(1, 1))
	require.NoError(t, b.AppendUint(0, 1))
	c := b.Finalize()
	assert.Equal(t, 18, c.BitLen())

	s := c.NewSlice()
	v, err := s.LoadUint(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xABCD), v)

	bit, err := s.LoadBit()
	require.NoError(t, err)
	assert.True(t, bit)

	bit, err = s.LoadBit()
	require.NoError(t, err)
	assert.False(t, bit)

	assert.Equal(t, 0, s.RemainingBits())
}

func TestBuilderAppendBigUintRoundTrip(t *testing.T) {
	n := new(big.Int).SetUint64(1<<40 + 7)
	b := NewBuilder()
	require.NoError(t, b.AppendBigUint(n, 64))
	c := b.Finalize()

	got, err := c.NewSlice().LoadBigUint(64)
	require.NoError(t, err)
	assert.Equal(t, 0, n.Cmp(got))
}

func TestBuilderAppendBytesRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xFF}
	b := NewBuilder()
	require.NoError(t, b.AppendBytes(data))
	c := b.Finalize()

	got, err := c.NewSlice().LoadBytes(len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBuilderOverflowRejectsExcessBits(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < MaxBits; i++ {
		require.NoError(t, b.AppendBit(false))
	}
	err := b.AppendBit(true)
	assert.Error(t, err)
}

func TestBuilderOverflowRejectsExcessRefs(t *testing.T) {
	b := NewBuilder()
	leaf := NewBuilder().Finalize()
	for i := 0; i < MaxRefs; i++ {
		require.NoError(t, b.AppendRef(leaf))
	}
	err := b.AppendRef(leaf)
	assert.Error(t, err)
}

func TestSliceLoadFailsWhenExhausted(t *testing.T) {
	c := NewBuilder().Finalize()
	s := c.NewSlice()
	_, err := s.LoadBit()
	assert.Error(t, err)
	_, err = s.LoadRef()
	assert.Error(t, err)
}

func TestBuilderAppendBuilderInlinesBitsAndRefs(t *testing.T) {
	inner := NewBuilder()
	require.NoError(t, inner.AppendUint(0b101, 3))
	require.NoError(t, inner.AppendRef(NewBuilder().Finalize()))

	outer := NewBuilder()
	require.NoError(t, outer.AppendBit(true))
	require.NoError(t, outer.AppendBuilder(inner))

	c := outer.Finalize()
	assert.Equal(t, 4, c.BitLen())
	assert.Equal(t, 1, c.RefsCount())

	s := c.NewSlice()
	bit, err := s.LoadBit()
	require.NoError(t, err)
	assert.True(t, bit)
	v, err := s.LoadUint(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b101), v)
}

func TestBuilderCloneIsIndependent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AppendUint(1, 1))
	clone := b.Clone()
	require.NoError(t, clone.AppendUint(0, 1))

	assert.Equal(t, 1, b.BitsUsed())
	assert.Equal(t, 2, clone.BitsUsed())
}

func TestBuilderTruncateBits(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AppendUint(0xFF, 8))
	b.TruncateBits(4)
	c := b.Finalize()
	assert.Equal(t, 4, c.BitLen())

	v, err := c.NewSlice().LoadUint(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xF), v)
}

func TestBuilderTruncateLastRef(t *testing.T) {
	b := NewBuilder()
	leaf := NewBuilder().Finalize()
	require.NoError(t, b.AppendRef(leaf))
	require.NoError(t, b.AppendRef(leaf))
	b.TruncateLastRef()
	assert.Equal(t, 1, b.RefsUsed())
}

func TestCellHashIsDeterministicAndStructureSensitive(t *testing.T) {
	b1 := NewBuilder()
	require.NoError(t, b1.AppendUint(42, 8))
	c1 := b1.Finalize()

	b2 := NewBuilder()
	require.NoError(t, b2.AppendUint(42, 8))
	c2 := b2.Finalize()

	assert.Equal(t, c1.Hash(), c2.Hash())

	b3 := NewBuilder()
	require.NoError(t, b3.AppendUint(43, 8))
	c3 := b3.Finalize()
	assert.NotEqual(t, c1.Hash(), c3.Hash())

	parent := NewBuilder()
	require.NoError(t, parent.AppendRef(c1))
	parentAgain := NewBuilder()
	require.NoError(t, parentAgain.AppendRef(c2))
	assert.Equal(t, parent.Finalize().Hash(), parentAgain.Finalize().Hash())
}
