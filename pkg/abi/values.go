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
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// Clock is the process-wide wall-clock read used to default an omitted
// Time header to "now". Tests that need deterministic output replace it
// with a fixed-time stub rather than reading the real clock.
var Clock = func() time.Time { return time.Now() }

// Address is the value-model representation shared by the Address and
// AddressStd types: a workchain id plus a 256-bit account hash, or the
// distinguished "no address" value (Address type only).
type Address struct {
	None      bool
	Workchain int8
	Hash      [32]byte
}

// NamedValue pairs a tuple field's name with its value, mirroring Param.
type NamedValue struct {
	Name  string
	Value *Value
}

// MapEntry is one key/value pair of a Map value. Entries are not required
// to be pre-sorted; CompareMapKeys below defines the canonical order in
// which decoded map entries are returned.
type MapEntry struct {
	Key   *Value
	Value *Value
}

// Value is the closed tagged variant parallel to Type, per spec §3's value
// model. Exactly one field group is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	BoolVal bool
	IntVal  *big.Int // Uint, Int, VarUint, VarInt, Token, Time, Expire

	Fields []NamedValue // Tuple
	Items  []*Value     // Array, FixedArray

	CellVal *cell.Cell // Cell

	Entries []MapEntry // Map

	AddrVal *Address // Address, AddressStd

	BytesVal []byte // Bytes, FixedBytes
	StrVal   string // String

	PubKey []byte // PublicKey: nil or exactly 32 bytes

	OptVal *Value // Optional: nil means None
	RefVal *Value // Ref
}

func VBool(b bool) *Value                    { return &Value{Kind: KindBool, BoolVal: b} }
func VUint(n *big.Int) *Value                { return &Value{Kind: KindUint, IntVal: n} }
func VInt(n *big.Int) *Value                 { return &Value{Kind: KindInt, IntVal: n} }
func VVarUint(n *big.Int) *Value             { return &Value{Kind: KindVarUint, IntVal: n} }
func VVarInt(n *big.Int) *Value              { return &Value{Kind: KindVarInt, IntVal: n} }
func VToken(n *big.Int) *Value               { return &Value{Kind: KindToken, IntVal: n} }
func VTime(n *big.Int) *Value                { return &Value{Kind: KindTime, IntVal: n} }
func VExpire(n *big.Int) *Value              { return &Value{Kind: KindExpire, IntVal: n} }
func VTuple(fields ...NamedValue) *Value     { return &Value{Kind: KindTuple, Fields: fields} }
func VArray(items ...*Value) *Value          { return &Value{Kind: KindArray, Items: items} }
func VFixedArray(items ...*Value) *Value     { return &Value{Kind: KindFixedArray, Items: items} }
func VCell(c *cell.Cell) *Value              { return &Value{Kind: KindCell, CellVal: c} }
func VMap(entries ...MapEntry) *Value        { return &Value{Kind: KindMap, Entries: entries} }
func VAddress(a *Address) *Value             { return &Value{Kind: KindAddress, AddrVal: a} }
func VAddressStd(a *Address) *Value          { return &Value{Kind: KindAddressStd, AddrVal: a} }
func VBytes(b []byte) *Value                 { return &Value{Kind: KindBytes, BytesVal: b} }
func VFixedBytes(b []byte) *Value            { return &Value{Kind: KindFixedBytes, BytesVal: b} }
func VString(s string) *Value                { return &Value{Kind: KindString, StrVal: s} }
func VPublicKey(k []byte) *Value             { return &Value{Kind: KindPublicKey, PubKey: k} }
func VOptional(inner *Value) *Value          { return &Value{Kind: KindOptional, OptVal: inner} }
func VRef(inner *Value) *Value               { return &Value{Kind: KindRef, RefVal: inner} }

// TypeCheck reports whether v structurally matches t: same Kind, and for
// container kinds, every nested value recursively matches the corresponding
// nested type. It does not check numeric range - that is the serializer's
// job, since the legal range depends on the type's bit width.
func TypeCheck(v *Value, t *Type) error {
	if v == nil {
		return i18n.NewError(context.Background(), abimsgs.MsgWrongParameterType, "<nil>", t.signatureUnsafe())
	}
	if v.Kind != t.Kind {
		return i18n.NewError(context.Background(), abimsgs.MsgWrongParameterType, kindName(v.Kind), t.signatureUnsafe())
	}
	switch t.Kind {
	case KindTuple:
		if len(v.Fields) != len(t.Fields) {
			return i18n.NewError(context.Background(), abimsgs.MsgInvalidParameterLength, len(t.Fields), len(v.Fields))
		}
		for i, f := range t.Fields {
			if err := TypeCheck(v.Fields[i].Value, f.Type); err != nil {
				return err
			}
		}
	case KindArray:
		for _, item := range v.Items {
			if err := TypeCheck(item, t.Inner); err != nil {
				return err
			}
		}
	case KindFixedArray:
		if len(v.Items) != t.Width {
			return i18n.NewError(context.Background(), abimsgs.MsgInvalidParameterLength, t.Width, len(v.Items))
		}
		for _, item := range v.Items {
			if err := TypeCheck(item, t.Inner); err != nil {
				return err
			}
		}
	case KindMap:
		for _, e := range v.Entries {
			if err := TypeCheck(e.Key, t.Key); err != nil {
				return err
			}
			if err := TypeCheck(e.Value, t.Inner); err != nil {
				return err
			}
		}
	case KindFixedBytes:
		if len(v.BytesVal) != t.Width {
			return i18n.NewError(context.Background(), abimsgs.MsgInvalidParameterLength, t.Width, len(v.BytesVal))
		}
	case KindOptional:
		if v.OptVal != nil {
			if err := TypeCheck(v.OptVal, t.Inner); err != nil {
				return err
			}
		}
	case KindRef:
		if err := TypeCheck(v.RefVal, t.Inner); err != nil {
			return err
		}
	}
	return nil
}

// DefaultValue returns the zero value of t: zero integers, false, empty
// containers, the none address, and None for Optional.
func DefaultValue(t *Type) *Value {
	switch t.Kind {
	case KindUint, KindVarUint, KindToken, KindTime, KindExpire:
		return &Value{Kind: t.Kind, IntVal: big.NewInt(0)}
	case KindInt, KindVarInt:
		return &Value{Kind: t.Kind, IntVal: big.NewInt(0)}
	case KindBool:
		return VBool(false)
	case KindTuple:
		fields := make([]NamedValue, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = NamedValue{Name: f.Name, Value: DefaultValue(f.Type)}
		}
		return VTuple(fields...)
	case KindArray:
		return &Value{Kind: KindArray}
	case KindFixedArray:
		items := make([]*Value, t.Width)
		for i := range items {
			items[i] = DefaultValue(t.Inner)
		}
		return &Value{Kind: KindFixedArray, Items: items}
	case KindCell:
		return VCell(nil)
	case KindMap:
		return &Value{Kind: KindMap}
	case KindAddress:
		return VAddress(&Address{None: true})
	case KindAddressStd:
		return VAddressStd(&Address{})
	case KindBytes:
		return VBytes(nil)
	case KindFixedBytes:
		return VFixedBytes(make([]byte, t.Width))
	case KindString:
		return VString("")
	case KindPublicKey:
		return VPublicKey(nil)
	case KindOptional:
		return VOptional(nil)
	case KindRef:
		return VRef(DefaultValue(t.Inner))
	default:
		return &Value{Kind: t.Kind}
	}
}

// HeaderDefaultValue returns the value a function call header falls back
// to when the caller omits it, which for Time and Expire is not the
// generic zero DefaultValue produces: Time defaults to the current wall
// clock (via Clock) and Expire to the all-ones "never expires" sentinel.
// Every other header kind still defaults through DefaultValue.
func HeaderDefaultValue(t *Type) *Value {
	switch t.Kind {
	case KindExpire:
		return VExpire(new(big.Int).SetUint64(0xFFFFFFFF))
	case KindTime:
		return VTime(big.NewInt(Clock().UnixMilli()))
	default:
		return DefaultValue(t)
	}
}

// GetParamType infers the minimal Type a value could be tokenized against -
// used by callers that have a Value but no schema, e.g. when echoing a
// decoded Map key back out. Integer kinds infer the smallest standard width
// that holds the value's bit length.
func GetParamType(v *Value) *Type {
	switch v.Kind {
	case KindUint:
		return TUint(minUintWidth(v.IntVal))
	case KindInt:
		return TInt(minIntWidth(v.IntVal))
	case KindVarUint:
		return TVarUint(16)
	case KindVarInt:
		return TVarInt(16)
	case KindToken:
		return TToken()
	case KindTime:
		return TTime()
	case KindExpire:
		return TExpire()
	case KindBool:
		return TBool()
	case KindTuple:
		fields := make([]Param, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = Param{Name: f.Name, Type: GetParamType(f.Value)}
		}
		return TTuple(fields...)
	case KindArray:
		if len(v.Items) == 0 {
			return TArray(TUint(256))
		}
		return TArray(GetParamType(v.Items[0]))
	case KindFixedArray:
		if len(v.Items) == 0 {
			return TFixedArray(TUint(256), 0)
		}
		return TFixedArray(GetParamType(v.Items[0]), len(v.Items))
	case KindCell:
		return TCell()
	case KindMap:
		if len(v.Entries) == 0 {
			return TMap(TUint(256), TUint(256))
		}
		return TMap(GetParamType(v.Entries[0].Key), GetParamType(v.Entries[0].Value))
	case KindAddress:
		return TAddress()
	case KindAddressStd:
		return TAddressStd()
	case KindBytes:
		return TBytes()
	case KindFixedBytes:
		return TFixedBytes(len(v.BytesVal))
	case KindString:
		return TString()
	case KindPublicKey:
		return TPublicKey()
	case KindOptional:
		if v.OptVal == nil {
			return TOptional(TUint(256))
		}
		return TOptional(GetParamType(v.OptVal))
	case KindRef:
		return TRef(GetParamType(v.RefVal))
	default:
		return TUint(256)
	}
}

func minUintWidth(n *big.Int) int {
	if n == nil || n.Sign() == 0 {
		return 8
	}
	bl := n.BitLen()
	for _, w := range []int{8, 16, 32, 64, 128, 256} {
		if bl <= w {
			return w
		}
	}
	return bl
}

func minIntWidth(n *big.Int) int {
	if n == nil || n.Sign() == 0 {
		return 8
	}
	bl := n.BitLen() + 1
	for _, w := range []int{8, 16, 32, 64, 128, 256} {
		if bl <= w {
			return w
		}
	}
	return bl
}

func kindName(k Kind) string {
	names := map[Kind]string{
		KindUint: "uint", KindInt: "int", KindVarUint: "varuint", KindVarInt: "varint",
		KindBool: "bool", KindTuple: "tuple", KindArray: "array", KindFixedArray: "fixedarray",
		KindCell: "cell", KindMap: "map", KindAddress: "address", KindAddressStd: "address_std",
		KindBytes: "bytes", KindFixedBytes: "fixedbytes", KindString: "string", KindToken: "gram",
		KindTime: "time", KindExpire: "expire", KindPublicKey: "pubkey", KindOptional: "optional",
		KindRef: "ref",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// CompareMapKeys implements the total order decoded map entries are
// sorted into: numerically within the same kind, and by a fixed kind
// precedence (Uint < Int < Address) across kinds for the unusual case of
// a heterogeneous key set assembled programmatically. decodeMap
// (deserializer.go) applies this after reading a dictionary back, since
// cell.LoadDict's underlying Go map has no ordering guarantee of its own;
// writeMap does not need it; the dictionary's binary-trie structure is
// already insertion-order-independent on the wire.
func CompareMapKeys(a, b *Value) int {
	if a.Kind != b.Kind {
		return kindPrecedence(a.Kind) - kindPrecedence(b.Kind)
	}
	switch a.Kind {
	case KindUint, KindInt, KindVarUint, KindVarInt, KindToken, KindTime, KindExpire:
		return a.IntVal.Cmp(b.IntVal)
	case KindAddress, KindAddressStd:
		if a.AddrVal.Workchain != b.AddrVal.Workchain {
			return int(a.AddrVal.Workchain) - int(b.AddrVal.Workchain)
		}
		for i := range a.AddrVal.Hash {
			if a.AddrVal.Hash[i] != b.AddrVal.Hash[i] {
				return int(a.AddrVal.Hash[i]) - int(b.AddrVal.Hash[i])
			}
		}
		return 0
	default:
		return 0
	}
}

func kindPrecedence(k Kind) int {
	switch k {
	case KindUint, KindVarUint:
		return 0
	case KindInt, KindVarInt:
		return 1
	case KindAddress, KindAddressStd:
		return 2
	default:
		return 3
	}
}
