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
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// Tokenize converts a loosely-typed external value (the decoded shape of a
// JSON document: nil, bool, float64/json.Number/string, []any, map[string]any)
// into a validated Value of type t. This is the only place range and shape
// checks against user input happen; everything downstream assumes v already
// satisfies TypeCheck(v, t).
func Tokenize(name string, raw any, t *Type) (*Value, error) {
	ctx := context.Background()
	switch t.Kind {
	case KindBool:
		return tokenizeBool(ctx, name, raw)
	case KindUint, KindVarUint:
		return tokenizeUint(ctx, name, raw, t)
	case KindInt, KindVarInt:
		return tokenizeInt(ctx, name, raw, t)
	case KindToken:
		return tokenizeUnsignedRanged(ctx, name, raw, KindToken, big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), 120))
	case KindTime:
		return tokenizeUnsignedRanged(ctx, name, raw, KindTime, big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), 64))
	case KindExpire:
		return tokenizeUnsignedRanged(ctx, name, raw, KindExpire, big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), 32))
	case KindTuple:
		return tokenizeTuple(ctx, name, raw, t)
	case KindArray:
		return tokenizeArray(ctx, name, raw, t, false)
	case KindFixedArray:
		return tokenizeArray(ctx, name, raw, t, true)
	case KindCell:
		return tokenizeCell(ctx, name, raw)
	case KindMap:
		return tokenizeMap(ctx, name, raw, t)
	case KindAddress:
		return tokenizeAddress(ctx, name, raw, true)
	case KindAddressStd:
		return tokenizeAddress(ctx, name, raw, false)
	case KindBytes:
		return tokenizeBytes(ctx, name, raw, -1)
	case KindFixedBytes:
		return tokenizeBytes(ctx, name, raw, t.Width)
	case KindString:
		return tokenizeString(ctx, name, raw)
	case KindPublicKey:
		return tokenizePublicKey(ctx, name, raw)
	case KindOptional:
		if raw == nil {
			return VOptional(nil), nil
		}
		inner, err := Tokenize(name, raw, t.Inner)
		if err != nil {
			return nil, err
		}
		return VOptional(inner), nil
	case KindRef:
		inner, err := Tokenize(name, raw, t.Inner)
		if err != nil {
			return nil, err
		}
		return VRef(inner), nil
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongDataFormat, raw, name, t.signatureUnsafe())
	}
}

func wrongFormat(ctx context.Context, raw any, name, expected string) error {
	return i18n.NewError(ctx, abimsgs.MsgWrongDataFormat, raw, name, expected)
}

func tokenizeBool(ctx context.Context, name string, raw any) (*Value, error) {
	switch val := raw.(type) {
	case bool:
		return VBool(val), nil
	case string:
		switch val {
		case "true":
			return VBool(true), nil
		case "false":
			return VBool(false), nil
		}
	}
	return nil, wrongFormat(ctx, raw, name, "bool")
}

// parseIntString accepts decimal, 0x-prefixed hex, and a leading -0x for
// negative hex, per the tokenizer's integer-string grammar.
func parseIntString(s string) (*big.Int, error) {
	neg := false
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "-") {
		neg = true
		trimmed = trimmed[1:]
	}
	base := 10
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		base = 16
		trimmed = trimmed[2:]
	}
	n, ok := new(big.Int).SetString(trimmed, base)
	if !ok {
		return nil, i18n.NewError(context.Background(), abimsgs.MsgInvalidData, fmt.Sprintf("not an integer: %q", s))
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func numberToBigInt(raw any) (*big.Int, bool) {
	switch v := raw.(type) {
	case string:
		n, err := parseIntString(v)
		if err != nil {
			return nil, false
		}
		return n, true
	case float64:
		bi, _ := big.NewFloat(v).Int(nil)
		return bi, true
	case int:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	default:
		return nil, false
	}
}

func tokenizeUint(ctx context.Context, name string, raw any, t *Type) (*Value, error) {
	n, ok := numberToBigInt(raw)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "integer")
	}
	var max *big.Int
	if t.Kind == KindVarUint {
		max = new(big.Int).Lsh(big.NewInt(1), uint(8*(t.Width-1)))
	} else {
		max = new(big.Int).Lsh(big.NewInt(1), uint(t.Width))
	}
	if n.Sign() < 0 || n.Cmp(max) >= 0 {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, raw, name, "out of range")
	}
	return &Value{Kind: t.Kind, IntVal: n}, nil
}

// tokenizeInt checks the signed range [-2^(m-1), 2^(m-1)-1] exactly via
// big.Int bounds, which naturally applies the correction needed for the
// boundary value -2^(m-1): it requires exactly m-1 magnitude bits but is
// still in range, unlike +2^(m-1).
func tokenizeInt(ctx context.Context, name string, raw any, t *Type) (*Value, error) {
	n, ok := numberToBigInt(raw)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "integer")
	}
	var bits int
	if t.Kind == KindVarInt {
		bits = 8 * (t.Width - 1)
		if bits == 0 {
			if n.Sign() != 0 {
				return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, raw, name, "out of range")
			}
			return &Value{Kind: t.Kind, IntVal: n}, nil
		}
	} else {
		bits = t.Width
	}
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
	if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, raw, name, "out of range")
	}
	return &Value{Kind: t.Kind, IntVal: n}, nil
}

func tokenizeUnsignedRanged(ctx context.Context, name string, raw any, kind Kind, min, maxExclusive *big.Int) (*Value, error) {
	n, ok := numberToBigInt(raw)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "integer")
	}
	if n.Cmp(min) < 0 || n.Cmp(maxExclusive) >= 0 {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, raw, name, "out of range")
	}
	return &Value{Kind: kind, IntVal: n}, nil
}

func tokenizeTuple(ctx context.Context, name string, raw any, t *Type) (*Value, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "object")
	}
	fields := make([]NamedValue, len(t.Fields))
	for i, f := range t.Fields {
		child, err := Tokenize(f.Name, obj[f.Name], f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = NamedValue{Name: f.Name, Value: child}
	}
	return VTuple(fields...), nil
}

func tokenizeArray(ctx context.Context, name string, raw any, t *Type, fixed bool) (*Value, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "array")
	}
	if fixed && len(arr) != t.Width {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterLength, t.Width, len(arr))
	}
	items := make([]*Value, len(arr))
	for i, el := range arr {
		v, err := Tokenize(fmt.Sprintf("%s[%d]", name, i), el, t.Inner)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	if fixed {
		return &Value{Kind: KindFixedArray, Items: items}, nil
	}
	return &Value{Kind: KindArray, Items: items}, nil
}

func tokenizeCell(ctx context.Context, name string, raw any) (*Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "base64 BOC string")
	}
	if s == "" {
		return VCell(cell.NewBuilder().Finalize()), nil
	}
	c, err := cell.DecodeBOC(s)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgInvalidParameterValue, s, name, err)
	}
	return VCell(c), nil
}

func tokenizeBytes(ctx context.Context, name string, raw any, fixedLen int) (*Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "hex string")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgInvalidParameterValue, s, name, err)
	}
	if fixedLen >= 0 && len(b) != fixedLen {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterLength, fixedLen, len(b))
	}
	if fixedLen >= 0 {
		return VFixedBytes(b), nil
	}
	return VBytes(b), nil
}

func tokenizeString(ctx context.Context, name string, raw any) (*Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "string")
	}
	return VString(s), nil
}

func tokenizePublicKey(ctx context.Context, name string, raw any) (*Value, error) {
	if raw == nil {
		return VPublicKey(nil), nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "hex string")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgInvalidParameterValue, s, name, err)
	}
	if len(b) != 32 {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterLength, 32, len(b))
	}
	return VPublicKey(b), nil
}

// tokenizeAddress accepts a minimal structured form - {"workchain": n,
// "hash": "<64 hex chars>"}, "none" for Address's distinguished empty
// value, or null. The real chain's bounceable/raw/base64 address string
// grammar is explicitly out of this codec's scope; a caller-side address
// parser is expected to produce this structured form.
func tokenizeAddress(ctx context.Context, name string, raw any, allowNone bool) (*Value, error) {
	kind := KindAddressStd
	if allowNone {
		kind = KindAddress
	}
	if raw == nil || raw == "none" {
		if !allowNone {
			return nil, i18n.NewError(ctx, abimsgs.MsgInvalidInputData, fmt.Sprintf("parameter '%s' requires a standard address, got none", name))
		}
		return &Value{Kind: kind, AddrVal: &Address{None: true}}, nil
	}
	if s, ok := raw.(string); ok {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return nil, wrongFormat(ctx, raw, name, "wc:hex64 address")
		}
		wc, err := parseIntString(parts[0])
		if err != nil {
			return nil, i18n.WrapError(ctx, err, abimsgs.MsgInvalidParameterValue, s, name, err)
		}
		h, err := hex.DecodeString(parts[1])
		if err != nil || len(h) != 32 {
			return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, s, name, "expected 32-byte hex hash")
		}
		var hash [32]byte
		copy(hash[:], h)
		return &Value{Kind: kind, AddrVal: &Address{Workchain: int8(wc.Int64()), Hash: hash}}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "address object")
	}
	wcRaw, hashRaw := obj["workchain"], obj["hash"]
	wc, ok := numberToBigInt(wcRaw)
	if !ok {
		return nil, wrongFormat(ctx, wcRaw, name+".workchain", "integer")
	}
	hs, ok := hashRaw.(string)
	if !ok {
		return nil, wrongFormat(ctx, hashRaw, name+".hash", "hex string")
	}
	h, err := hex.DecodeString(strings.TrimPrefix(hs, "0x"))
	if err != nil || len(h) != 32 {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidParameterValue, hs, name, "expected 32-byte hex hash")
	}
	var hash [32]byte
	copy(hash[:], h)
	return &Value{Kind: kind, AddrVal: &Address{Workchain: int8(wc.Int64()), Hash: hash}}, nil
}

// tokenizeMap accepts an object whose string keys are tokenized per the
// map's key type - integers or addresses only, per the value model's
// key-kind restriction.
func tokenizeMap(ctx context.Context, name string, raw any, t *Type) (*Value, error) {
	switch t.Key.Kind {
	case KindUint, KindInt, KindAddress, KindAddressStd:
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidData, "map key type must be an integer or address")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, wrongFormat(ctx, raw, name, "object")
	}
	entries := make([]MapEntry, 0, len(obj))
	for k, v := range obj {
		var key *Value
		var err error
		switch t.Key.Kind {
		case KindUint, KindInt:
			key, err = Tokenize(name+".key", k, t.Key)
		default:
			key, err = tokenizeAddress(ctx, name+".key", k, t.Key.Kind == KindAddress)
		}
		if err != nil {
			return nil, err
		}
		val, err := Tokenize(name+"["+k+"]", v, t.Inner)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, Value: val})
	}
	return VMap(entries...), nil
}

// TokenizeAllParams requires an object and pulls each declared param by
// name; a missing key is tokenized as JSON null, which only Optional,
// Address (as none) and PublicKey (as absent) types accept.
func TokenizeAllParams(raw any, params []Param) ([]NamedValue, error) {
	ctx := context.Background()
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidInputData, "expected an object of named parameters")
	}
	out := make([]NamedValue, len(params))
	for i, p := range params {
		v, err := Tokenize(p.Name, obj[p.Name], p.Type)
		if err != nil {
			return nil, err
		}
		out[i] = NamedValue{Name: p.Name, Value: v}
	}
	return out, nil
}

// TokenizeOptionalParams is used for header params: missing keys are
// tolerated (the caller must fall back to a default for them), but any key
// in raw that doesn't name a declared param is rejected.
func TokenizeOptionalParams(raw any, params []Param) ([]NamedValue, error) {
	ctx := context.Background()
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, i18n.NewError(ctx, abimsgs.MsgInvalidInputData, "expected an object of named parameters")
	}
	byName := map[string]*Type{}
	for _, p := range params {
		byName[p.Name] = p.Type
	}
	for k := range obj {
		if _, known := byName[k]; !known {
			return nil, i18n.NewError(ctx, abimsgs.MsgUnknownHeaderParam, k)
		}
	}
	var out []NamedValue
	for _, p := range params {
		raw, present := obj[p.Name]
		if !present {
			continue
		}
		v, err := Tokenize(p.Name, raw, p.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedValue{Name: p.Name, Value: v})
	}
	return out, nil
}
