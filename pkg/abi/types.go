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
	"fmt"
	"math/bits"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// Kind is the closed set of ABI type variants. There is no open extension:
// the serializer and deserializer dispatch on Kind, never on an interface
// a caller could implement.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindVarUint
	KindVarInt
	KindBool
	KindTuple
	KindArray
	KindFixedArray
	KindCell
	KindMap
	KindAddress
	KindAddressStd
	KindBytes
	KindFixedBytes
	KindString
	KindToken
	KindTime
	KindExpire
	KindPublicKey
	KindOptional
	KindRef
)

// Param is a named, typed field - of a tuple, a function's inputs/outputs,
// or a function's header.
type Param struct {
	Name string
	Type *Type
}

// Type is the closed tagged variant described in spec §3/§4.A. Only the
// fields relevant to Kind are meaningful; Width is reused across the
// several kinds that carry a single numeric parameter (Uint/Int's bit
// width M, VarUint/VarInt's max byte length N, FixedBytes/FixedArray's K).
type Type struct {
	Kind        Kind
	Width       int     // Uint/Int: M bits. VarUint/VarInt: N max bytes. FixedBytes: K bytes. FixedArray: K length.
	Key         *Type   // Map key type
	Inner       *Type   // Array/FixedArray/Map-value/Optional/Ref element type
	Fields      []Param // Tuple fields
}

func TUint(m int) *Type         { return &Type{Kind: KindUint, Width: m} }
func TInt(m int) *Type          { return &Type{Kind: KindInt, Width: m} }
func TVarUint(n int) *Type      { return &Type{Kind: KindVarUint, Width: n} }
func TVarInt(n int) *Type       { return &Type{Kind: KindVarInt, Width: n} }
func TBool() *Type              { return &Type{Kind: KindBool} }
func TTuple(fields ...Param) *Type {
	return &Type{Kind: KindTuple, Fields: fields}
}
func TArray(inner *Type) *Type           { return &Type{Kind: KindArray, Inner: inner} }
func TFixedArray(inner *Type, k int) *Type {
	return &Type{Kind: KindFixedArray, Inner: inner, Width: k}
}
func TCell() *Type        { return &Type{Kind: KindCell} }
func TMap(key, value *Type) *Type {
	return &Type{Kind: KindMap, Key: key, Inner: value}
}
func TAddress() *Type     { return &Type{Kind: KindAddress} }
func TAddressStd() *Type  { return &Type{Kind: KindAddressStd} }
func TBytes() *Type       { return &Type{Kind: KindBytes} }
func TFixedBytes(k int) *Type { return &Type{Kind: KindFixedBytes, Width: k} }
func TString() *Type      { return &Type{Kind: KindString} }
func TToken() *Type       { return &Type{Kind: KindToken} }
func TTime() *Type        { return &Type{Kind: KindTime} }
func TExpire() *Type      { return &Type{Kind: KindExpire} }
func TPublicKey() *Type   { return &Type{Kind: KindPublicKey} }
func TOptional(inner *Type) *Type { return &Type{Kind: KindOptional, Inner: inner} }
func TRef(inner *Type) *Type     { return &Type{Kind: KindRef, Inner: inner} }

// IsSupported reports whether this type may be used at the given ABI
// version, per the gating invariants of spec §3.
func (t *Type) IsSupported(v Version) bool {
	switch t.Kind {
	case KindTime, KindExpire, KindPublicKey:
		if !v.GTE(Version2_0) {
			return false
		}
	case KindString, KindOptional, KindVarInt, KindVarUint:
		if !v.GTE(Version2_1) {
			return false
		}
	case KindRef:
		if !v.GTE(Version2_4) {
			return false
		}
	}
	switch t.Kind {
	case KindTuple:
		for _, f := range t.Fields {
			if !f.Type.IsSupported(v) {
				return false
			}
		}
	case KindArray, KindFixedArray, KindOptional, KindRef:
		return t.Inner.IsSupported(v)
	case KindMap:
		return t.Key.IsSupported(v) && t.Inner.IsSupported(v)
	}
	return true
}

// SetComponents fills the inner type list of a container variant, for use
// by a schema reader that parses component lists after the top-level type
// string. It is an error to supply non-empty components to a non-container
// type, or to supply an empty list to Tuple.
func (t *Type) SetComponents(components []Param) error {
	switch t.Kind {
	case KindTuple:
		if len(components) == 0 {
			return i18n.NewError(context.Background(), abimsgs.MsgEmptyComponents, t.signatureUnsafe())
		}
		t.Fields = components
		return nil
	case KindArray, KindFixedArray:
		if len(components) != 1 {
			return i18n.NewError(context.Background(), abimsgs.MsgUnusedComponents, t.signatureUnsafe())
		}
		t.Inner = components[0].Type
		return nil
	default:
		if len(components) != 0 {
			return i18n.NewError(context.Background(), abimsgs.MsgUnusedComponents, t.signatureUnsafe())
		}
		return nil
	}
}

func (t *Type) signatureUnsafe() string {
	s, _ := t.Signature()
	return s
}

// Signature returns the canonical per-type signature token, per spec §3's
// grammar table.
func (t *Type) Signature() (string, error) {
	if t == nil {
		return "", i18n.NewError(context.Background(), abimsgs.MsgBadTypeSignature, "")
	}
	switch t.Kind {
	case KindUint:
		return fmt.Sprintf("uint%d", t.Width), nil
	case KindInt:
		return fmt.Sprintf("int%d", t.Width), nil
	case KindVarUint:
		return fmt.Sprintf("varuint%d", t.Width), nil
	case KindVarInt:
		return fmt.Sprintf("varint%d", t.Width), nil
	case KindBool:
		return "bool", nil
	case KindTuple:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			s, err := f.Type.Signature()
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ",") + ")", nil
	case KindArray:
		s, err := t.Inner.Signature()
		if err != nil {
			return "", err
		}
		return s + "[]", nil
	case KindFixedArray:
		s, err := t.Inner.Signature()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", s, t.Width), nil
	case KindCell:
		return "cell", nil
	case KindMap:
		k, err := t.Key.Signature()
		if err != nil {
			return "", err
		}
		v, err := t.Inner.Signature()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("map(%s,%s)", k, v), nil
	case KindAddress:
		return "address", nil
	case KindAddressStd:
		return "address_std", nil
	case KindBytes:
		return "bytes", nil
	case KindFixedBytes:
		return fmt.Sprintf("fixedbytes%d", t.Width), nil
	case KindString:
		return "string", nil
	case KindToken:
		return "gram", nil
	case KindTime:
		return "time", nil
	case KindExpire:
		return "expire", nil
	case KindPublicKey:
		return "pubkey", nil
	case KindOptional:
		s, err := t.Inner.Signature()
		if err != nil {
			return "", err
		}
		return "optional(" + s + ")", nil
	case KindRef:
		s, err := t.Inner.Signature()
		if err != nil {
			return "", err
		}
		return "ref(" + s + ")", nil
	default:
		return "", i18n.NewError(context.Background(), abimsgs.MsgBadTypeSignature, "<unknown kind>")
	}
}

// isLarge reports whether an Optional's inner type must be reference-escaped:
// its inline bit envelope (plus the presence bit) would not fit a cell, or
// it already needs all 4 reference slots.
func isLarge(inner *Type, v Version) bool {
	return inner.MaxBitSize(v)+1 >= cell.MaxBits || inner.MaxRefsCount(v)+1 > cell.MaxRefs
}

// MaxBitSize returns the upper bound on bits a value of this type
// contributes to its local cell, per spec §4.A.
func (t *Type) MaxBitSize(v Version) int {
	switch t.Kind {
	case KindUint, KindInt:
		return t.Width
	case KindVarUint, KindVarInt:
		lenBits := varLenPrefixBits(t.Width)
		return lenBits + (t.Width-1)*8
	case KindBool:
		return 1
	case KindTuple:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.MaxBitSize(v)
		}
		return total
	case KindArray:
		return 33 // 32-bit length + 1-bit dictionary head
	case KindFixedArray:
		return 1 // dictionary head only, length is static
	case KindCell:
		return 0
	case KindMap:
		return 1
	case KindAddress:
		return 591
	case KindAddressStd:
		return 2 + 1 + 5 + 30 + 8 + 256
	case KindBytes, KindString:
		return 0 // always escaped to a referenced chain
	case KindFixedBytes:
		if v.GTE(Version2_4) {
			return t.Width * 8
		}
		return 0
	case KindToken:
		return varLenPrefixBits(16) + 15*8
	case KindTime:
		return 64
	case KindExpire:
		return 32
	case KindPublicKey:
		return 1 + 256
	case KindOptional:
		if isLarge(t.Inner, v) {
			return 1
		}
		return 1 + t.Inner.MaxBitSize(v)
	case KindRef:
		return 0
	default:
		return 0
	}
}

// MaxRefsCount returns the number of reference slots a value of this type
// consumes in its local cell, per spec §4.A.
func (t *Type) MaxRefsCount(v Version) int {
	switch t.Kind {
	case KindTuple:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.MaxRefsCount(v)
		}
		return total
	case KindArray, KindMap, KindFixedArray, KindCell:
		return 1
	case KindBytes, KindString:
		return 1
	case KindFixedBytes:
		if v.GTE(Version2_4) {
			return 0
		}
		return 1
	case KindOptional:
		if isLarge(t.Inner, v) {
			return 1
		}
		return t.Inner.MaxRefsCount(v)
	case KindRef:
		return 1
	default:
		return 0
	}
}

// varLenPrefixBits is ceil(log2(n)): the number of bits needed to encode a
// length value in [0, n-1], used by VarUint/VarInt/Token's length prefix.
func varLenPrefixBits(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
