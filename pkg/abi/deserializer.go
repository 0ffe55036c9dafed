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
	"math/big"
	"sort"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// Cursor walks a cell slice across chain continuation boundaries: whenever
// a read needs more bits or references than remain in the current cell, and
// the current cell still has an unread reference, that reference is the
// chain's continuation and the cursor transparently jumps into it.
type Cursor struct {
	slice *cell.Slice
}

// NewCursor returns a cursor positioned at the start of s.
func NewCursor(s *cell.Slice) *Cursor {
	return &Cursor{slice: s}
}

func (c *Cursor) ensure(ctx context.Context, bits, refs int) error {
	for c.slice.RemainingBits() < bits || c.slice.RemainingRefs() < refs {
		if c.slice.RemainingRefs() < 1 {
			return i18n.NewError(ctx, abimsgs.MsgDeserializationError, "cell exhausted with no continuation reference")
		}
		next, err := c.slice.LoadRef()
		if err != nil {
			return err
		}
		c.slice = next.NewSlice()
	}
	return nil
}

func (c *Cursor) loadBit(ctx context.Context) (bool, error) {
	if err := c.ensure(ctx, 1, 0); err != nil {
		return false, err
	}
	return c.slice.LoadBit()
}

func (c *Cursor) loadUint(ctx context.Context, n int) (uint64, error) {
	if err := c.ensure(ctx, n, 0); err != nil {
		return 0, err
	}
	return c.slice.LoadUint(n)
}

func (c *Cursor) loadBigUint(ctx context.Context, n int) (*big.Int, error) {
	if err := c.ensure(ctx, n, 0); err != nil {
		return nil, err
	}
	return c.slice.LoadBigUint(n)
}

func (c *Cursor) loadBytes(ctx context.Context, n int) ([]byte, error) {
	if err := c.ensure(ctx, n*8, 0); err != nil {
		return nil, err
	}
	return c.slice.LoadBytes(n)
}

func (c *Cursor) loadRef(ctx context.Context) (*cell.Cell, error) {
	if err := c.ensure(ctx, 0, 1); err != nil {
		return nil, err
	}
	return c.slice.LoadRef()
}

// DecodeValue is the inverse of SerializeValue: it reads a value of type t
// at ABI version ver from cursor.
func DecodeValue(cursor *Cursor, t *Type, ver Version) (*Value, error) {
	ctx := context.Background()
	switch t.Kind {
	case KindUint:
		n, err := cursor.loadBigUint(ctx, t.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindUint, IntVal: n}, nil
	case KindInt:
		n, err := decodeSigned(ctx, cursor, t.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindInt, IntVal: n}, nil
	case KindVarUint:
		n, err := decodeVarUint(ctx, cursor, t.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindVarUint, IntVal: n}, nil
	case KindVarInt:
		n, err := decodeVarInt(ctx, cursor, t.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindVarInt, IntVal: n}, nil
	case KindToken:
		n, err := decodeVarUint(ctx, cursor, 16)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindToken, IntVal: n}, nil
	case KindTime:
		n, err := cursor.loadBigUint(ctx, 64)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindTime, IntVal: n}, nil
	case KindExpire:
		n, err := cursor.loadBigUint(ctx, 32)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindExpire, IntVal: n}, nil
	case KindBool:
		b, err := cursor.loadBit(ctx)
		if err != nil {
			return nil, err
		}
		return VBool(b), nil
	case KindTuple:
		fields := make([]NamedValue, len(t.Fields))
		for i, f := range t.Fields {
			v, err := DecodeValue(cursor, f.Type, ver)
			if err != nil {
				return nil, err
			}
			fields[i] = NamedValue{Name: f.Name, Value: v}
		}
		return VTuple(fields...), nil
	case KindArray:
		return decodeArray(ctx, cursor, t.Inner, ver, false, 0)
	case KindFixedArray:
		return decodeArray(ctx, cursor, t.Inner, ver, true, t.Width)
	case KindCell:
		c, err := cursor.loadRef(ctx)
		if err != nil {
			return nil, err
		}
		return VCell(c), nil
	case KindMap:
		return decodeMap(ctx, cursor, t.Key, t.Inner, ver)
	case KindAddress:
		a, err := decodeAddress(ctx, cursor, true)
		if err != nil {
			return nil, err
		}
		return VAddress(a), nil
	case KindAddressStd:
		a, err := decodeAddress(ctx, cursor, false)
		if err != nil {
			return nil, err
		}
		return VAddressStd(a), nil
	case KindBytes:
		b, err := decodeBytesChain(ctx, cursor)
		if err != nil {
			return nil, err
		}
		return VBytes(b), nil
	case KindFixedBytes:
		if ver.GTE(Version2_4) {
			b, err := cursor.loadBytes(ctx, t.Width)
			if err != nil {
				return nil, err
			}
			return VFixedBytes(b), nil
		}
		b, err := decodeBytesChain(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Width {
			return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterLength, t.Width, len(b))
		}
		return VFixedBytes(b), nil
	case KindString:
		b, err := decodeBytesChain(ctx, cursor)
		if err != nil {
			return nil, err
		}
		return VString(string(b)), nil
	case KindPublicKey:
		present, err := cursor.loadBit(ctx)
		if err != nil {
			return nil, err
		}
		if !present {
			return VPublicKey(nil), nil
		}
		b, err := cursor.loadBytes(ctx, 32)
		if err != nil {
			return nil, err
		}
		return VPublicKey(b), nil
	case KindOptional:
		present, err := cursor.loadBit(ctx)
		if err != nil {
			return nil, err
		}
		if !present {
			return VOptional(nil), nil
		}
		if isLarge(t.Inner, ver) {
			r, err := cursor.loadRef(ctx)
			if err != nil {
				return nil, err
			}
			inner, err := DecodeValue(NewCursor(r.NewSlice()), t.Inner, ver)
			if err != nil {
				return nil, err
			}
			return VOptional(inner), nil
		}
		inner, err := DecodeValue(cursor, t.Inner, ver)
		if err != nil {
			return nil, err
		}
		return VOptional(inner), nil
	case KindRef:
		r, err := cursor.loadRef(ctx)
		if err != nil {
			return nil, err
		}
		inner, err := DecodeValue(NewCursor(r.NewSlice()), t.Inner, ver)
		if err != nil {
			return nil, err
		}
		return VRef(inner), nil
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, "unsupported type in deserializer")
	}
}

func decodeSigned(ctx context.Context, cursor *Cursor, n int) (*big.Int, error) {
	mag, err := cursor.loadBigUint(ctx, n)
	if err != nil {
		return nil, err
	}
	half := new(big.Int).Lsh(big.NewInt(1), uint(n-1))
	if mag.Cmp(half) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
		mag.Sub(mag, mod)
	}
	return mag, nil
}

func decodeVarUint(ctx context.Context, cursor *Cursor, maxLen int) (*big.Int, error) {
	prefixBits := varLenPrefixBits(maxLen)
	l, err := cursor.loadUint(ctx, prefixBits)
	if err != nil {
		return nil, err
	}
	if l == 0 {
		return big.NewInt(0), nil
	}
	return cursor.loadBigUint(ctx, int(l)*8)
}

func decodeVarInt(ctx context.Context, cursor *Cursor, maxLen int) (*big.Int, error) {
	prefixBits := varLenPrefixBits(maxLen)
	l, err := cursor.loadUint(ctx, prefixBits)
	if err != nil {
		return nil, err
	}
	if l == 0 {
		return big.NewInt(0), nil
	}
	return decodeSigned(ctx, cursor, int(l)*8)
}

func decodeAddress(ctx context.Context, cursor *Cursor, allowNone bool) (*Address, error) {
	tag, err := cursor.loadUint(ctx, 2)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		if !allowNone {
			return nil, i18n.NewError(ctx, abimsgs.MsgDeserializationError, "address_std cannot be none")
		}
		return &Address{None: true}, nil
	}
	if tag != 0b10 {
		return nil, i18n.NewError(ctx, abimsgs.MsgDeserializationError, "unsupported address tag")
	}
	if _, err := cursor.loadBit(ctx); err != nil { // anycast flag, unsupported
		return nil, err
	}
	wc, err := cursor.loadUint(ctx, 8)
	if err != nil {
		return nil, err
	}
	h, err := cursor.loadBytes(ctx, 32)
	if err != nil {
		return nil, err
	}
	var hash [32]byte
	copy(hash[:], h)
	return &Address{Workchain: int8(wc), Hash: hash}, nil
}

// decodeBytesChain reads the reference attached by writeBytesChain and
// concatenates every cell's payload along the chain, head first.
func decodeBytesChain(ctx context.Context, cursor *Cursor) ([]byte, error) {
	head, err := cursor.loadRef(ctx)
	if err != nil {
		return nil, err
	}
	var out []byte
	c := head
	for {
		s := c.NewSlice()
		b, err := s.LoadBytes(c.BitLen() / 8)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		if s.RemainingRefs() == 0 {
			break
		}
		c, err = s.LoadRef()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeArray(ctx context.Context, cursor *Cursor, elemType *Type, ver Version, fixed bool, fixedLen int) (*Value, error) {
	length := fixedLen
	if !fixed {
		l, err := cursor.loadUint(ctx, arrayIndexBits)
		if err != nil {
			return nil, err
		}
		length = int(l)
	}
	present, err := cursor.loadBit(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Value, 0, length)
	if length == 0 {
		if fixed {
			return &Value{Kind: KindFixedArray, Items: items}, nil
		}
		return &Value{Kind: KindArray, Items: items}, nil
	}
	if !present {
		return nil, i18n.NewError(ctx, abimsgs.MsgDeserializationError, "array dictionary missing for non-empty array")
	}
	root, err := cursor.loadRef(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := cell.LoadDict(root, arrayIndexBits)
	if err != nil {
		return nil, err
	}
	elemMaxBits := elemType.MaxBitSize(ver)
	byValue := hashmapLeafOverheadBits+arrayIndexBits+elemMaxBits <= cell.MaxBits
	for i := 0; i < length; i++ {
		key := []byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)}
		s, ok := entries[cell.KeyBits(key, arrayIndexBits)]
		if !ok {
			return nil, i18n.NewError(ctx, abimsgs.MsgDeserializationError, "missing array index in dictionary")
		}
		v, err := decodeDictElement(ctx, s, elemType, ver, byValue)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if fixed {
		return &Value{Kind: KindFixedArray, Items: items}, nil
	}
	return &Value{Kind: KindArray, Items: items}, nil
}

func decodeDictElement(ctx context.Context, s *cell.Slice, elemType *Type, ver Version, byValue bool) (*Value, error) {
	if byValue {
		return DecodeValue(NewCursor(s), elemType, ver)
	}
	ref, err := s.LoadRef()
	if err != nil {
		return nil, err
	}
	return DecodeValue(NewCursor(ref.NewSlice()), elemType, ver)
}

func decodeMap(ctx context.Context, cursor *Cursor, keyType, valType *Type, ver Version) (*Value, error) {
	present, err := cursor.loadBit(ctx)
	if err != nil {
		return nil, err
	}
	if !present {
		return &Value{Kind: KindMap}, nil
	}
	root, err := cursor.loadRef(ctx)
	if err != nil {
		return nil, err
	}
	keyBits := mapKeyBits(keyType)
	entries, err := cell.LoadDict(root, keyBits)
	if err != nil {
		return nil, err
	}
	valMaxBits := valType.MaxBitSize(ver)
	byValue := hashmapLeafOverheadBits+keyBits+valMaxBits <= cell.MaxBits
	out := make([]MapEntry, 0, len(entries))
	for bits, s := range entries {
		key, err := decodeMapKey(ctx, bits, keyType)
		if err != nil {
			return nil, err
		}
		val, err := decodeDictElement(ctx, s, valType, ver, byValue)
		if err != nil {
			return nil, err
		}
		out = append(out, MapEntry{Key: key, Value: val})
	}
	// cell.LoadDict walks the dictionary's binary trie into a Go map, whose
	// iteration order is not defined - sort back into the canonical order
	// before handing entries to the caller.
	sort.Slice(out, func(i, j int) bool {
		return CompareMapKeys(out[i].Key, out[j].Key) < 0
	})
	return VMap(out...), nil
}

// decodeMapKey reconstructs the key Value from the raw bit-string a
// dictionary entry is indexed under, by replaying it through a temporary
// cell built bit-for-bit from that string.
func decodeMapKey(ctx context.Context, bits string, keyType *Type) (*Value, error) {
	b := cell.NewBuilder()
	for _, ch := range bits {
		if err := b.AppendBit(ch == '1'); err != nil {
			return nil, err
		}
	}
	s := b.Finalize().NewSlice()
	cursor := NewCursor(s)
	switch keyType.Kind {
	case KindUint:
		n, err := cursor.loadBigUint(ctx, keyType.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindUint, IntVal: n}, nil
	case KindInt:
		n, err := decodeSigned(ctx, cursor, keyType.Width)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindInt, IntVal: n}, nil
	default:
		a, err := decodeAddress(ctx, cursor, false)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: keyType.Kind, AddrVal: a}, nil
	}
}
