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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// bytesChunkCap is the number of whole bytes a non-head cell of a
// bytes/string chain holds: floor(1023/8).
const bytesChunkCap = cell.MaxBits / 8

// arrayIndexBits is the key width used to address elements of Array and
// FixedArray values in their backing dictionary.
const arrayIndexBits = 32

// addressStdBits is the standard (non-anycast) address encoding this codec
// writes and the only form it accepts for Map keys: a 2-bit tag, a 1-bit
// anycast flag (always clear - this codec does not support anycast
// addresses), an 8-bit workchain, and a 256-bit account hash.
const addressStdBits = 2 + 1 + 8 + 256

// hashmapLeafOverheadBits is the per-leaf bit budget a hashmap (dictionary)
// node reserves beyond the key and value bits themselves - label length
// prefix and branch tags - before a leaf is judged to still fit in-cell.
// Matches the reference implementation's MAX_HASH_MAP_INFO_ABOUT_KEY.
const hashmapLeafOverheadBits = 12

// SerializedValue is a value written to its own builder together with the
// envelope - the (max_bits, max_refs) pair declared by its type - that
// pack_cells_into_chain plans layout with, independent of how many bits the
// builder actually used.
type SerializedValue struct {
	Data    *cell.Builder
	MaxBits int
	MaxRefs int
}

// SerializeValue writes v (assumed to already satisfy TypeCheck(v, t)) into
// a fresh builder and tags it with t's envelope at ABI version ver.
func SerializeValue(v *Value, t *Type, ver Version) (*SerializedValue, error) {
	ctx := context.Background()
	b := cell.NewBuilder()
	sv := &SerializedValue{Data: b, MaxBits: t.MaxBitSize(ver), MaxRefs: t.MaxRefsCount(ver)}

	switch t.Kind {
	case KindUint:
		if err := writeUnsigned(ctx, b, v.IntVal, t.Width); err != nil {
			return nil, err
		}
	case KindInt:
		if err := writeSigned(ctx, b, v.IntVal, t.Width); err != nil {
			return nil, err
		}
	case KindVarUint:
		if err := writeVarUint(ctx, b, v.IntVal, t.Width); err != nil {
			return nil, err
		}
	case KindVarInt:
		if err := writeVarInt(ctx, b, v.IntVal, t.Width); err != nil {
			return nil, err
		}
	case KindToken:
		if err := writeVarUint(ctx, b, v.IntVal, 16); err != nil {
			return nil, err
		}
	case KindTime:
		if err := writeUnsigned(ctx, b, v.IntVal, 64); err != nil {
			return nil, err
		}
	case KindExpire:
		if err := writeUnsigned(ctx, b, v.IntVal, 32); err != nil {
			return nil, err
		}
	case KindBool:
		if err := b.AppendBit(v.BoolVal); err != nil {
			return nil, err
		}
	case KindTuple:
		for i, f := range t.Fields {
			child, err := SerializeValue(v.Fields[i].Value, f.Type, ver)
			if err != nil {
				return nil, err
			}
			if err := b.AppendBuilder(child.Data); err != nil {
				return nil, err
			}
		}
	case KindArray:
		if err := writeArray(ctx, b, v.Items, t.Inner, ver, false); err != nil {
			return nil, err
		}
	case KindFixedArray:
		if err := writeArray(ctx, b, v.Items, t.Inner, ver, true); err != nil {
			return nil, err
		}
	case KindCell:
		if v.CellVal != nil {
			if err := b.AppendRef(v.CellVal); err != nil {
				return nil, err
			}
		} else {
			if err := b.AppendRef(cell.NewBuilder().Finalize()); err != nil {
				return nil, err
			}
		}
	case KindMap:
		if err := writeMap(ctx, b, v.Entries, t.Key, t.Inner, ver); err != nil {
			return nil, err
		}
	case KindAddress:
		if err := writeAddress(ctx, b, v.AddrVal, true); err != nil {
			return nil, err
		}
	case KindAddressStd:
		if err := writeAddress(ctx, b, v.AddrVal, false); err != nil {
			return nil, err
		}
	case KindBytes:
		if err := writeBytesChain(ctx, b, v.BytesVal, ver); err != nil {
			return nil, err
		}
	case KindFixedBytes:
		if ver.GTE(Version2_4) {
			if err := b.AppendBytes(v.BytesVal); err != nil {
				return nil, err
			}
		} else if err := writeBytesChain(ctx, b, v.BytesVal, ver); err != nil {
			return nil, err
		}
	case KindString:
		if err := writeBytesChain(ctx, b, []byte(v.StrVal), ver); err != nil {
			return nil, err
		}
	case KindPublicKey:
		if len(v.PubKey) == 0 {
			if err := b.AppendBit(false); err != nil {
				return nil, err
			}
		} else {
			if err := b.AppendBit(true); err != nil {
				return nil, err
			}
			if err := b.AppendBytes(v.PubKey); err != nil {
				return nil, err
			}
		}
	case KindOptional:
		if err := writeOptional(ctx, b, v.OptVal, t.Inner, ver); err != nil {
			return nil, err
		}
	case KindRef:
		inner, err := SerializeValue(v.RefVal, t.Inner, ver)
		if err != nil {
			return nil, err
		}
		if err := b.AppendRef(inner.Data.Finalize()); err != nil {
			return nil, err
		}
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, "unsupported type in serializer")
	}
	return sv, nil
}

// writeUnsigned writes the low n bits of v's magnitude, MSB-first. Range
// checking already happened at tokenize time; this rejects anything that
// slipped through so the cell never silently truncates a value.
func writeUnsigned(ctx context.Context, b *cell.Builder, v *big.Int, n int) error {
	if v.Sign() < 0 || v.BitLen() > n {
		return i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, v.String(), "uint", "out of range for declared width")
	}
	return b.AppendBigUint(v, n)
}

// writeSigned writes v's n-bit two's complement representation. Taking v
// mod 2^n with Go's Euclidean big.Int.Mod (always non-negative for a
// positive modulus) produces exactly that bit pattern for both positive and
// negative v, so no separate sign-extension branch is needed.
func writeSigned(ctx context.Context, b *cell.Builder, v *big.Int, n int) error {
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(n-1)))
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n-1)), big.NewInt(1))
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, v.String(), "int", "out of range for declared width")
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
	twos := new(big.Int).Mod(v, mod)
	return b.AppendBigUint(twos, n)
}

func varUintByteLen(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	return (v.BitLen() + 7) / 8
}

func varIntByteLen(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	n := 1
	for {
		bits := 8 * n
		min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
		max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
		if v.Cmp(min) >= 0 && v.Cmp(max) <= 0 {
			return n
		}
		n++
	}
}

// writeVarUint emits the ceil(log2(maxLen))-bit length prefix, then that
// many bytes of big-endian magnitude.
func writeVarUint(ctx context.Context, b *cell.Builder, v *big.Int, maxLen int) error {
	n := varUintByteLen(v)
	if n > maxLen-1 {
		return i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, v.String(), "varuint", "magnitude too large for declared length")
	}
	prefixBits := varLenPrefixBits(maxLen)
	if err := b.AppendUint(uint64(n), prefixBits); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return b.AppendBigUint(v, n*8)
}

func writeVarInt(ctx context.Context, b *cell.Builder, v *big.Int, maxLen int) error {
	n := varIntByteLen(v)
	if n > maxLen-1 {
		return i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, v.String(), "varint", "magnitude too large for declared length")
	}
	prefixBits := varLenPrefixBits(maxLen)
	if err := b.AppendUint(uint64(n), prefixBits); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
	twos := new(big.Int).Mod(v, mod)
	return b.AppendBigUint(twos, n*8)
}

// chunkBytes splits data into a head chunk of headLen bytes followed by
// zero or more full bytesChunkCap-byte chunks.
func chunkBytes(data []byte, headLen int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	chunks := [][]byte{data[:headLen]}
	rest := data[headLen:]
	for len(rest) > 0 {
		n := bytesChunkCap
		if n > len(rest) {
			n = len(rest)
		}
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return chunks
}

// writeBytesChain builds the reverse-chained sub-cell sequence for a
// Bytes/String/pre-2.4-FixedBytes value and attaches it as a single
// reference from b. The head cell holds the capacity-modulo remainder from
// ABI 2.0 on (a zero remainder takes a full chunk, matching scenario S7),
// and simply up to a full chunk's worth of bytes in ABI 1.0.
func writeBytesChain(ctx context.Context, b *cell.Builder, data []byte, ver Version) error {
	var headLen int
	if len(data) == 0 {
		headLen = 0
	} else if ver.IsV1() {
		headLen = len(data)
		if headLen > bytesChunkCap {
			headLen = bytesChunkCap
		}
	} else {
		headLen = len(data) % bytesChunkCap
		if headLen == 0 {
			headLen = bytesChunkCap
		}
		if headLen > len(data) {
			headLen = len(data)
		}
	}
	chunks := chunkBytes(data, headLen)
	var next *cell.Cell
	for i := len(chunks) - 1; i >= 0; i-- {
		cb := cell.NewBuilder()
		if err := cb.AppendBytes(chunks[i]); err != nil {
			return err
		}
		if next != nil {
			if err := cb.AppendRef(next); err != nil {
				return err
			}
		}
		next = cb.Finalize()
	}
	if next == nil {
		next = cell.NewBuilder().Finalize()
	}
	return b.AppendRef(next)
}

// writeAddress writes the 2-bit tag, anycast flag, workchain and hash of a
// standard address, or (for the Address type only) the 2-bit "none" tag.
func writeAddress(ctx context.Context, b *cell.Builder, a *Address, allowNone bool) error {
	if a == nil {
		a = &Address{None: true}
	}
	if a.None {
		if !allowNone {
			return i18n.NewError(ctx, abimsgs.MsgAddressRequired, "address_std")
		}
		return b.AppendUint(0, 2)
	}
	if err := b.AppendUint(0b10, 2); err != nil {
		return err
	}
	if err := b.AppendBit(false); err != nil { // anycast: unsupported, always absent
		return err
	}
	if err := b.AppendUint(uint64(uint8(a.Workchain)), 8); err != nil {
		return err
	}
	return b.AppendBytes(a.Hash[:])
}

// writeOptional writes the presence bit and, when present, either the
// inlined inner value or a reference to it, per the "large" rule of §4.D.
func writeOptional(ctx context.Context, b *cell.Builder, inner *Value, innerType *Type, ver Version) error {
	if inner == nil {
		return b.AppendBit(false)
	}
	if err := b.AppendBit(true); err != nil {
		return err
	}
	if isLarge(innerType, ver) && innerType.Kind == KindTuple {
		// A large tuple is chain-packed field by field behind the reference.
		seq := make([]*SerializedValue, len(innerType.Fields))
		for i, f := range innerType.Fields {
			fsv, err := SerializeValue(inner.Fields[i].Value, f.Type, ver)
			if err != nil {
				return err
			}
			seq[i] = fsv
		}
		chain, err := PackCellsIntoChain(seq, ver)
		if err != nil {
			return err
		}
		return b.AppendRef(chain.Finalize())
	}
	sv, err := SerializeValue(inner, innerType, ver)
	if err != nil {
		return err
	}
	if isLarge(innerType, ver) {
		return b.AppendRef(sv.Data.Finalize())
	}
	return b.AppendBuilder(sv.Data)
}

// writeArray lays out an Array/FixedArray value through an auxiliary
// dictionary keyed by big-endian element index. An element is stored
// by-value in the dictionary when its leaf overhead, key width and max bit
// size together still fit a cell; otherwise the dictionary leaf holds a
// single reference to a separately finalized element cell.
func writeArray(ctx context.Context, b *cell.Builder, items []*Value, elemType *Type, ver Version, fixed bool) error {
	if !fixed {
		if err := b.AppendUint(uint64(len(items)), arrayIndexBits); err != nil {
			return err
		}
	}
	dict := cell.NewDict(arrayIndexBits)
	elemMaxBits := elemType.MaxBitSize(ver)
	for i, item := range items {
		sv, err := SerializeValue(item, elemType, ver)
		if err != nil {
			return err
		}
		key := make([]byte, 4)
		key[0] = byte(i >> 24)
		key[1] = byte(i >> 16)
		key[2] = byte(i >> 8)
		key[3] = byte(i)
		if hashmapLeafOverheadBits+arrayIndexBits+elemMaxBits <= cell.MaxBits {
			dict.Set(key, sv.Data)
		} else {
			ref := cell.NewBuilder()
			if err := ref.AppendRef(sv.Data.Finalize()); err != nil {
				return err
			}
			dict.Set(key, ref)
		}
	}
	root, err := dict.Build()
	if err != nil {
		return err
	}
	if root == nil {
		return b.AppendBit(false)
	}
	if err := b.AppendBit(true); err != nil {
		return err
	}
	return b.AppendRef(root)
}

// writeMap mirrors writeArray's by-value/by-reference threshold, keyed by
// the map's declared key type instead of a positional index.
func writeMap(ctx context.Context, b *cell.Builder, entries []MapEntry, keyType, valType *Type, ver Version) error {
	keyBits := mapKeyBits(keyType)
	valMaxBits := valType.MaxBitSize(ver)
	dict := cell.NewDict(keyBits)
	for _, e := range entries {
		keyBytes, err := encodeMapKey(ctx, e.Key, keyType, keyBits)
		if err != nil {
			return err
		}
		sv, err := SerializeValue(e.Value, valType, ver)
		if err != nil {
			return err
		}
		if hashmapLeafOverheadBits+keyBits+valMaxBits <= cell.MaxBits {
			dict.Set(keyBytes, sv.Data)
		} else {
			ref := cell.NewBuilder()
			if err := ref.AppendRef(sv.Data.Finalize()); err != nil {
				return err
			}
			dict.Set(keyBytes, ref)
		}
	}
	root, err := dict.Build()
	if err != nil {
		return err
	}
	if root == nil {
		return b.AppendBit(false)
	}
	if err := b.AppendBit(true); err != nil {
		return err
	}
	return b.AppendRef(root)
}

func mapKeyBits(keyType *Type) int {
	switch keyType.Kind {
	case KindUint, KindInt:
		return keyType.Width
	default: // Address, AddressStd
		return addressStdBits
	}
}

// encodeMapKey renders a map key value as fixed-width big-endian bits for
// dictionary storage. Signed keys use the same two's-complement bit
// pattern as writeSigned; this preserves lookup consistency within this
// codec's own dictionary but, like the dictionary itself, is not a
// reproduction of any real chain's canonical key ordering.
func encodeMapKey(ctx context.Context, key *Value, keyType *Type, keyBits int) ([]byte, error) {
	b := cell.NewBuilder()
	switch keyType.Kind {
	case KindUint:
		if err := writeUnsigned(ctx, b, key.IntVal, keyBits); err != nil {
			return nil, err
		}
	case KindInt:
		if err := writeSigned(ctx, b, key.IntVal, keyBits); err != nil {
			return nil, err
		}
	default:
		if err := writeAddress(ctx, b, key.AddrVal, false); err != nil {
			return nil, err
		}
	}
	c := b.Finalize()
	out := make([]byte, (keyBits+7)/8)
	copy(out, c.Data())
	return out, nil
}

// PackCellsIntoChain lays an ordered sequence of serialized values into a
// chain of cell builders under the capacity rules of §4.D, returning the
// head builder. From ABI 2.2 on, each value's declared (max_bits, max_refs)
// envelope - not its actual written size - is what layout decisions use;
// before 2.2, the builder's actual usage is used instead.
func PackCellsIntoChain(values []*SerializedValue, ver Version) (*cell.Builder, error) {
	if len(values) == 0 {
		return cell.NewBuilder(), nil
	}
	worstCase := ver.UsesWorstCaseEnvelope()
	var chain []*cell.Builder
	current := cell.NewBuilder()
	usedBits, usedRefs := 0, 0

	seal := func() {
		chain = append(chain, current)
		current = cell.NewBuilder()
		usedBits, usedRefs = 0, 0
	}
	place := func(v *SerializedValue) error {
		if err := current.AppendBuilder(v.Data); err != nil {
			return err
		}
		if worstCase {
			usedBits += v.MaxBits
			usedRefs += v.MaxRefs
		} else {
			usedBits = current.BitsUsed()
			usedRefs = current.RefsUsed()
		}
		return nil
	}

	for i, v := range values {
		vb, vr := v.MaxBits, v.MaxRefs
		freeBits := cell.MaxBits - usedBits
		freeRefs := cell.MaxRefs - usedRefs
		switch {
		case freeBits < vb || freeRefs < vr:
			seal()
			if err := place(v); err != nil {
				return nil, err
			}
		case vr > 0 && vr == freeRefs:
			restBits, restRefs := 0, 0
			for _, rest := range values[i+1:] {
				restBits += rest.MaxBits
				restRefs += rest.MaxRefs
			}
			safeInline := !ver.IsV1() && restRefs == 0 && restBits+vb <= freeBits
			if !safeInline {
				seal()
			}
			if err := place(v); err != nil {
				return nil, err
			}
		default:
			if err := place(v); err != nil {
				return nil, err
			}
		}
	}
	chain = append(chain, current)

	for i := len(chain) - 2; i >= 0; i-- {
		succ := chain[i+1].Finalize()
		if err := chain[i].AppendRef(succ); err != nil {
			return nil, err
		}
	}
	return chain[0], nil
}
