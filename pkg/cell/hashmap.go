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
	"sort"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// Dict is the "hashmap with extra info" keyed dictionary primitive the
// array/map serializer builds on: a fixed-key-length binary trie over
// slices. Like Cell itself, this is assumed external by the codec's design
// and reimplemented here in simplified (non edge-compressed) form, solely
// so the module is self-contained: each key bit costs one fork cell until a
// branch holds a single entry, a branch holding no entry is an empty cell,
// and no label compression is applied.
type Dict struct {
	keyBits int
	entries map[string]*Builder
	order   []string
}

// NewDict returns an empty dictionary keyed by fixed-length bitstrings of
// keyBits bits.
func NewDict(keyBits int) *Dict {
	return &Dict{keyBits: keyBits, entries: map[string]*Builder{}}
}

// Set stores value (already serialized, to be inlined or ref'd by the
// caller) under the big-endian key bits of key, truncated/padded to keyBits.
func (d *Dict) Set(key []byte, value *Builder) {
	bits := bytesToBitString(key, d.keyBits)
	if _, exists := d.entries[bits]; !exists {
		d.order = append(d.order, bits)
	}
	d.entries[bits] = value
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Build finalizes the dictionary into a cell. An empty dictionary returns
// (nil, nil): callers encode the "dictionary present" bit themselves.
func (d *Dict) Build() (*Cell, error) {
	if len(d.order) == 0 {
		return nil, nil
	}
	keys := append([]string(nil), d.order...)
	sort.Strings(keys)
	b, err := buildDictNode(keys, d.entries, d.keyBits)
	if err != nil {
		return nil, err
	}
	return b.Finalize(), nil
}

func buildDictNode(keys []string, values map[string]*Builder, remaining int) (*Builder, error) {
	b := NewBuilder()
	if len(keys) == 0 {
		// The empty side of a fork: an empty cell.
		return b, nil
	}
	if len(keys) == 1 {
		if err := b.AppendBit(true); err != nil {
			return nil, err
		}
		for _, bit := range keys[0] {
			if err := b.AppendBit(bit == '1'); err != nil {
				return nil, err
			}
		}
		if err := b.AppendBuilder(values[keys[0]]); err != nil {
			return nil, err
		}
		return b, nil
	}
	if err := b.AppendBit(false); err != nil {
		return nil, err
	}
	var left, right []string
	for _, k := range keys {
		if k[0] == '0' {
			left = append(left, k[1:])
		} else {
			right = append(right, k[1:])
		}
	}
	leftNode, err := buildDictNode(left, shiftKeys(values, left, keys, true), remaining-1)
	if err != nil {
		return nil, err
	}
	rightNode, err := buildDictNode(right, shiftKeys(values, right, keys, false), remaining-1)
	if err != nil {
		return nil, err
	}
	if err := b.AppendRef(leftNode.Finalize()); err != nil {
		return nil, err
	}
	if err := b.AppendRef(rightNode.Finalize()); err != nil {
		return nil, err
	}
	return b, nil
}

// shiftKeys rebuilds a values map keyed by the already-stripped-one-bit
// suffixes used in the recursive call, for the branch (left if fromLeft)
// whose original (un-stripped) keys matched origKeys.
func shiftKeys(values map[string]*Builder, stripped []string, origKeys []string, fromLeft bool) map[string]*Builder {
	out := make(map[string]*Builder, len(stripped))
	si := 0
	for _, k := range origKeys {
		isLeft := k[0] == '0'
		if isLeft != fromLeft {
			continue
		}
		out[stripped[si]] = values[k]
		si++
	}
	return out
}

// KeyBits renders key as the same MSB-first bitstring LoadDict reports its
// entries under, so a caller holding a raw key (e.g. a big-endian array
// index) can look up the matching entry in LoadDict's result map.
func KeyBits(key []byte, bits int) string {
	return bytesToBitString(key, bits)
}

func bytesToBitString(b []byte, bits int) string {
	out := make([]byte, bits)
	for i := 0; i < bits; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		bit := byte('0')
		if byteIdx < len(b) && (b[byteIdx]>>bitIdx)&1 == 1 {
			bit = '1'
		}
		out[i] = bit
	}
	return string(out)
}

// LoadDict reads a dictionary of the given key width from a slice that is
// positioned directly at its root cell (i.e. the caller has already
// consumed any "dictionary present" bit and, if present, loaded the root
// reference). It returns each key's raw bits (MSB-first, keyBits wide) and
// a slice cursor positioned at the start of that key's value.
func LoadDict(root *Cell, keyBits int) (map[string]*Slice, error) {
	out := map[string]*Slice{}
	if err := walkDictNode(root.NewSlice(), "", keyBits, out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkDictNode(s *Slice, prefix string, remaining int, out map[string]*Slice) error {
	if s.RemainingBits() == 0 && s.RemainingRefs() == 0 {
		// An empty fork branch holds no entries.
		return nil
	}
	isLeaf, err := s.LoadBit()
	if err != nil {
		return i18n.WrapError(context.Background(), err, abimsgs.MsgDeserializationError, "dictionary node")
	}
	if isLeaf {
		keyBits := make([]byte, 0, remaining)
		for i := 0; i < remaining; i++ {
			bit, err := s.LoadBit()
			if err != nil {
				return err
			}
			b := byte('0')
			if bit {
				b = '1'
			}
			keyBits = append(keyBits, b)
		}
		out[prefix+string(keyBits)] = s
		return nil
	}
	left, err := s.LoadRef()
	if err != nil {
		return err
	}
	right, err := s.LoadRef()
	if err != nil {
		return err
	}
	if err := walkDictNode(left.NewSlice(), prefix+"0", remaining-1, out); err != nil {
		return err
	}
	return walkDictNode(right.NewSlice(), prefix+"1", remaining-1, out)
}
