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

// Package cell is the cell-tree primitive the ABI codec is built on: a
// bit-addressable node with up to MaxBits of payload and up to MaxRefs
// ordered references to child cells.
//
// The codec treats this primitive as an external collaborator (bit
// appending, reference appending, finalization, hashing) - this package
// is a minimal, internally-consistent standalone implementation of that
// contract, not a bit-exact reproduction of any particular chain's wire
// format. Callers outside this module should not depend on Hash() or
// the BOC helpers matching any external chain's encoding.
package cell

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

const (
	// MaxBits is the maximum number of payload bits a single cell may hold.
	MaxBits = 1023
	// MaxRefs is the maximum number of child references a single cell may hold.
	MaxRefs = 4
)

// Cell is a finalized, immutable node: up to MaxBits of payload and up to
// MaxRefs references to child cells.
type Cell struct {
	data   []byte
	bitLen int
	refs   []*Cell
}

// BitLen returns the number of payload bits in this cell.
func (c *Cell) BitLen() int { return c.bitLen }

// RefsCount returns the number of child references in this cell.
func (c *Cell) RefsCount() int { return len(c.refs) }

// Ref returns the i'th child reference.
func (c *Cell) Ref(i int) *Cell { return c.refs[i] }

// Data returns the raw packed payload bytes (MSB-first, zero padded in the
// final byte beyond BitLen).
func (c *Cell) Data() []byte { return c.data }

// NewSlice returns a read cursor positioned at the start of this cell.
func (c *Cell) NewSlice() *Slice {
	return &Slice{cell: c}
}

// Hash returns this cell's representation hash: sha256 over the bit length,
// payload bytes and the (recursively hashed) child references, in order.
// This is the "cell's representation hash" referenced by the function
// assembler (signing message digest); it is a self-consistent digest, not a
// reproduction of any specific chain's cell hashing algorithm.
func (c *Cell) Hash() [32]byte {
	h := sha256.New()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(c.bitLen))
	h.Write(lenBuf[:])
	h.Write(c.data)
	for _, r := range c.refs {
		rh := r.Hash()
		h.Write(rh[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Builder is an in-progress, writable cell.
type Builder struct {
	data   []byte
	bitLen int
	refs   []*Cell
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BitsUsed returns the number of bits written so far.
func (b *Builder) BitsUsed() int { return b.bitLen }

// RefsUsed returns the number of references appended so far.
func (b *Builder) RefsUsed() int { return len(b.refs) }

// RemainingBits returns how many more payload bits this builder can accept.
func (b *Builder) RemainingBits() int { return MaxBits - b.bitLen }

// RemainingRefs returns how many more references this builder can accept.
func (b *Builder) RemainingRefs() int { return MaxRefs - len(b.refs) }

func (b *Builder) ensureCapacity(bits, refs int) error {
	if bits > b.RemainingBits() || refs > b.RemainingRefs() {
		return i18n.NewError(context.Background(), abimsgs.MsgCellOverflow, bits, refs, b.RemainingBits(), b.RemainingRefs())
	}
	return nil
}

// AppendBit appends a single bit.
func (b *Builder) AppendBit(bit bool) error {
	if err := b.ensureCapacity(1, 0); err != nil {
		return err
	}
	b.growTo(b.bitLen + 1)
	if bit {
		byteIdx := b.bitLen / 8
		bitIdx := uint(7 - b.bitLen%8)
		b.data[byteIdx] |= 1 << bitIdx
	}
	b.bitLen++
	return nil
}

// AppendUint appends the low n bits of v, MSB first.
func (b *Builder) AppendUint(v uint64, n int) error {
	if n < 0 || n > 64 {
		return i18n.NewError(context.Background(), abimsgs.MsgInvalidData, "bit width out of range for AppendUint")
	}
	if err := b.ensureCapacity(n, 0); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		_ = b.AppendBit((v>>uint(i))&1 == 1)
	}
	return nil
}

// AppendBigUint appends the low n bits of the (non-negative) magnitude of v,
// MSB first, zero-padded on the left.
func (b *Builder) AppendBigUint(v *big.Int, n int) error {
	if err := b.ensureCapacity(n, 0); err != nil {
		return err
	}
	bytes := make([]byte, (n+7)/8)
	v.FillBytes(bytes)
	offset := len(bytes)*8 - n
	for i := 0; i < n; i++ {
		byteIdx := (offset + i) / 8
		bitIdx := uint(7 - (offset+i)%8)
		bit := (bytes[byteIdx]>>bitIdx)&1 == 1
		_ = b.AppendBit(bit)
	}
	return nil
}

// AppendBytes appends the full byte slice, MSB first, 8 bits per byte.
func (b *Builder) AppendBytes(data []byte) error {
	if err := b.ensureCapacity(len(data)*8, 0); err != nil {
		return err
	}
	for _, by := range data {
		_ = b.AppendUint(uint64(by), 8)
	}
	return nil
}

// AppendRef appends a child cell reference.
func (b *Builder) AppendRef(c *Cell) error {
	if err := b.ensureCapacity(0, 1); err != nil {
		return err
	}
	b.refs = append(b.refs, c)
	return nil
}

// AppendBuilder inlines the bits and refs of another (not-yet-finalized)
// builder into this one. Used when packing values whose envelope fit inline.
func (b *Builder) AppendBuilder(other *Builder) error {
	if err := b.ensureCapacity(other.bitLen, len(other.refs)); err != nil {
		return err
	}
	for i := 0; i < other.bitLen; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		bit := (other.data[byteIdx]>>bitIdx)&1 == 1
		_ = b.AppendBit(bit)
	}
	b.refs = append(b.refs, other.refs...)
	return nil
}

func (b *Builder) growTo(bits int) {
	needed := (bits + 7) / 8
	for len(b.data) < needed {
		b.data = append(b.data, 0)
	}
}

// Finalize packs the builder's bits and refs into an immutable Cell.
func (b *Builder) Finalize() *Cell {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	refs := make([]*Cell, len(b.refs))
	copy(refs, b.refs)
	return &Cell{data: data, bitLen: b.bitLen, refs: refs}
}

// Clone returns a deep copy of the builder's current contents.
func (b *Builder) Clone() *Builder {
	nb := &Builder{bitLen: b.bitLen}
	nb.data = append([]byte(nil), b.data...)
	nb.refs = append([]*Cell(nil), b.refs...)
	return nb
}

// TruncateLastRef drops the last appended reference, if any. The codec
// itself does not call it: signing digests are taken from a separately
// packed unsigned body rather than by stripping a placeholder.
func (b *Builder) TruncateLastRef() {
	if len(b.refs) > 0 {
		b.refs = b.refs[:len(b.refs)-1]
	}
}

// TruncateBits drops the builder back to n bits (n <= BitsUsed()).
func (b *Builder) TruncateBits(n int) {
	if n < 0 || n > b.bitLen {
		return
	}
	b.bitLen = n
	b.data = b.data[:(n+7)/8]
	if n%8 != 0 {
		// zero out the trailing partial byte bits beyond n
		lastIdx := len(b.data) - 1
		mask := byte(0xFF) << uint(8-n%8)
		b.data[lastIdx] &= mask
	}
}

// Slice is a read cursor over a finalized cell's bits and references.
type Slice struct {
	cell   *Cell
	bitPos int
	refPos int
}

// RemainingBits returns how many unread payload bits remain in the current cell.
func (s *Slice) RemainingBits() int { return s.cell.bitLen - s.bitPos }

// RemainingRefs returns how many unread references remain in the current cell.
func (s *Slice) RemainingRefs() int { return len(s.cell.refs) - s.refPos }

// LoadBit reads a single bit.
func (s *Slice) LoadBit() (bool, error) {
	if s.RemainingBits() < 1 {
		return false, i18n.NewError(context.Background(), abimsgs.MsgDeserializationError, "not enough bits to load 1 bit")
	}
	byteIdx := s.bitPos / 8
	bitIdx := uint(7 - s.bitPos%8)
	bit := (s.cell.data[byteIdx]>>bitIdx)&1 == 1
	s.bitPos++
	return bit, nil
}

// LoadUint reads n (<=64) bits MSB-first as an unsigned integer.
func (s *Slice) LoadUint(n int) (uint64, error) {
	if s.RemainingBits() < n {
		return 0, i18n.NewError(context.Background(), abimsgs.MsgDeserializationError, "not enough bits to load uint")
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit, _ := s.LoadBit()
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// LoadBigUint reads n bits MSB-first as a non-negative big.Int magnitude.
func (s *Slice) LoadBigUint(n int) (*big.Int, error) {
	if s.RemainingBits() < n {
		return nil, i18n.NewError(context.Background(), abimsgs.MsgDeserializationError, "not enough bits to load integer")
	}
	bytes := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		bit, _ := s.LoadBit()
		if bit {
			byteIdx := i / 8
			bitIdx := uint(7 - i%8)
			bytes[byteIdx] |= 1 << bitIdx
		}
	}
	// The bits were written left-aligned in bytes; shift down to the true magnitude.
	full := new(big.Int).SetBytes(bytes)
	pad := len(bytes)*8 - n
	full.Rsh(full, uint(pad))
	return full, nil
}

// LoadBytes reads n whole bytes (8*n bits).
func (s *Slice) LoadBytes(n int) ([]byte, error) {
	v, err := s.LoadBigUint(n * 8)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	v.FillBytes(out)
	return out, nil
}

// LoadRef reads the next child reference.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RemainingRefs() < 1 {
		return nil, i18n.NewError(context.Background(), abimsgs.MsgDeserializationError, "not enough references to load")
	}
	r := s.cell.refs[s.refPos]
	s.refPos++
	return r, nil
}

// Cell returns the cell this slice reads from.
func (s *Slice) Cell() *Cell { return s.cell }
