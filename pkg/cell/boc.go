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
	"context"
	"encoding/base64"
	"encoding/binary"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// EncodeBOC flattens a cell tree, depth-first, into a "bag of cells" byte
// stream and returns it as base64. The empty cell (0 bits, 0 refs) encodes
// to the empty string.
func EncodeBOC(c *Cell) string {
	if c.bitLen == 0 && len(c.refs) == 0 {
		return ""
	}
	order, index := flattenCells(c)
	buf := make([]byte, 0, 256)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(order)))
	buf = append(buf, countBuf[:]...)
	for _, cc := range order {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], uint32(cc.bitLen))
		buf = append(buf, hdr[:]...)
		buf = append(buf, cc.data...)
		buf = append(buf, byte(len(cc.refs)))
		for _, r := range cc.refs {
			var ri [4]byte
			binary.BigEndian.PutUint32(ri[:], uint32(index[r]))
			buf = append(buf, ri[:]...)
		}
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeBOC parses a base64 bag-of-cells stream produced by EncodeBOC. An
// empty string decodes to the empty cell.
func DecodeBOC(s string) (*Cell, error) {
	if s == "" {
		return NewBuilder().Finalize(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, i18n.WrapError(context.Background(), err, abimsgs.MsgBadBase64BOC, s)
	}
	if len(raw) < 4 {
		return nil, i18n.NewError(context.Background(), abimsgs.MsgBadBase64BOC, s)
	}
	count := int(binary.BigEndian.Uint32(raw[0:4]))
	pos := 4
	type rawCell struct {
		bitLen int
		data   []byte
		refIdx []int
	}
	raws := make([]rawCell, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(raw) {
			return nil, i18n.NewError(context.Background(), abimsgs.MsgBadBase64BOC, s)
		}
		bitLen := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
		pos += 4
		dataLen := (bitLen + 7) / 8
		if pos+dataLen > len(raw) {
			return nil, i18n.NewError(context.Background(), abimsgs.MsgBadBase64BOC, s)
		}
		data := append([]byte(nil), raw[pos:pos+dataLen]...)
		pos += dataLen
		if pos >= len(raw) {
			return nil, i18n.NewError(context.Background(), abimsgs.MsgBadBase64BOC, s)
		}
		refCount := int(raw[pos])
		pos++
		refIdx := make([]int, refCount)
		for j := 0; j < refCount; j++ {
			if pos+4 > len(raw) {
				return nil, i18n.NewError(context.Background(), abimsgs.MsgBadBase64BOC, s)
			}
			refIdx[j] = int(binary.BigEndian.Uint32(raw[pos : pos+4]))
			pos += 4
		}
		raws[i] = rawCell{bitLen: bitLen, data: data, refIdx: refIdx}
	}
	cells := make([]*Cell, count)
	// Cells are written parent-before-child (the root at index 0), so
	// building in reverse index order guarantees every reference is
	// already built.
	for i := count - 1; i >= 0; i-- {
		refs := make([]*Cell, len(raws[i].refIdx))
		for j, idx := range raws[i].refIdx {
			refs[j] = cells[idx]
		}
		cells[i] = &Cell{data: raws[i].data, bitLen: raws[i].bitLen, refs: refs}
	}
	return cells[0], nil
}

// flattenCells walks the tree depth-first (children before the cells that
// reference them) and assigns each distinct cell an index.
func flattenCells(root *Cell) ([]*Cell, map[*Cell]int) {
	index := map[*Cell]int{}
	var order []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		for _, r := range c.refs {
			if _, ok := index[r]; !ok {
				visit(r)
			}
		}
		if _, ok := index[c]; !ok {
			index[c] = len(order)
			order = append(order, c)
		}
	}
	visit(root)
	// Children were appended before their parents; reverse so index 0 is
	// always the root, matching what DecodeBOC expects to find there.
	n := len(order)
	reversed := make([]*Cell, n)
	for i, c := range order {
		reversed[n-1-i] = c
		index[c] = n - 1 - i
	}
	return reversed, index
}
