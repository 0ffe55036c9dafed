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
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// rawParam is one entry of a schema document's header/inputs/outputs/
// components array: either a bare type string, or an object carrying a
// name, a type string and (for tuples) nested components.
type rawParam struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Components []rawParam      `json:"components,omitempty"`
}

func (p *rawParam) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Type = s
		return nil
	}
	type alias rawParam
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = rawParam(a)
	return nil
}

type rawFunction struct {
	Name     string     `json:"name"`
	Header   []rawParam `json:"header,omitempty"`
	Inputs   []rawParam `json:"inputs"`
	Outputs  []rawParam `json:"outputs"`
	InputID  *uint32    `json:"id,omitempty"`
	OutputID *uint32    `json:"output_id,omitempty"`
}

type rawEvent struct {
	Name   string     `json:"name"`
	Inputs []rawParam `json:"inputs"`
	ID     *uint32    `json:"id,omitempty"`
}

type rawDataItem struct {
	Key  uint64 `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type rawField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Init bool   `json:"init,omitempty"`
}

type rawGetter struct {
	Name    string     `json:"name"`
	Inputs  []rawParam `json:"inputs"`
	Outputs []rawParam `json:"outputs"`
}

type rawSchema struct {
	ABIVersion string        `json:"ABI version,omitempty"`
	Version    string        `json:"version,omitempty"`
	Header     []rawParam    `json:"header,omitempty"`
	Functions  []rawFunction `json:"functions"`
	Events     []rawEvent    `json:"events,omitempty"`
	Data       []rawDataItem `json:"data,omitempty"`
	Fields     []rawField    `json:"fields,omitempty"`
	Getters    []rawGetter   `json:"getters,omitempty"`
}

// bareHeaderKinds are the only type names §6 allows header entries to
// spell as plain strings; every other header param must use the object
// form so it can carry a name.
var bareHeaderKinds = map[string]bool{"time": true, "expire": true, "pubkey": true}

// ParseSchema reads an ABI schema document (§6) into a Contract. Functions
// with no explicit id have theirs derived via FillIDs; events with no
// explicit id take the output-id half of DeriveIDs over name(inputs)vN.
func ParseSchema(doc []byte) (*Contract, error) {
	ctx := context.Background()
	var raw rawSchema
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgSchemaParseFailed, err.Error())
	}
	verStr := raw.ABIVersion
	if verStr == "" {
		verStr = raw.Version
	}
	ver, err := ParseVersion(verStr)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgSchemaParseFailed, err.Error())
	}

	header, err := parseParams(raw.Header, true)
	if err != nil {
		return nil, err
	}

	c := &Contract{Version: ver, Header: header}

	for _, rf := range raw.Functions {
		inputs, err := parseParams(rf.Inputs, false)
		if err != nil {
			return nil, err
		}
		outputs, err := parseParams(rf.Outputs, false)
		if err != nil {
			return nil, err
		}
		f := &Function{Name: rf.Name, Header: header, Inputs: inputs, Outputs: outputs}
		if rf.InputID != nil {
			f.InputID = *rf.InputID
		}
		if rf.OutputID != nil {
			f.OutputID = *rf.OutputID
		}
		if err := c.FillIDs(f); err != nil {
			return nil, err
		}
		c.Functions = append(c.Functions, f)
	}

	for _, re := range raw.Events {
		inputs, err := parseParams(re.Inputs, false)
		if err != nil {
			return nil, err
		}
		e := &Event{Name: re.Name, Inputs: inputs}
		if re.ID != nil {
			e.ID = *re.ID
		} else {
			var sigParts []string
			for _, in := range inputs {
				s, err := in.Type.Signature()
				if err != nil {
					return nil, err
				}
				sigParts = append(sigParts, s)
			}
			sig := re.Name + "(" + strings.Join(sigParts, ",") + ")v" + intToStr(ver.Major)
			_, e.ID = DeriveIDs(sig)
		}
		c.Events = append(c.Events, e)
	}

	for _, rd := range raw.Data {
		t, err := parseTypeString(rd.Type, nil)
		if err != nil {
			return nil, err
		}
		c.Data = append(c.Data, &DataItem{Key: rd.Key, Name: rd.Name, Type: t})
	}

	for _, rfd := range raw.Fields {
		t, err := parseTypeString(rfd.Type, nil)
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, &StorageField{Name: rfd.Name, Type: t, Init: rfd.Init})
	}

	for _, rg := range raw.Getters {
		inputs, err := parseParams(rg.Inputs, false)
		if err != nil {
			return nil, err
		}
		outputs, err := parseParams(rg.Outputs, false)
		if err != nil {
			return nil, err
		}
		c.Getters = append(c.Getters, &GetterDescriptor{Name: rg.Name, Inputs: inputs, Outputs: outputs})
	}

	return c, nil
}

func parseParams(raw []rawParam, isHeader bool) ([]Param, error) {
	out := make([]Param, len(raw))
	for i, rp := range raw {
		if isHeader && rp.Name == "" && !bareHeaderKinds[rp.Type] {
			return nil, i18n.NewError(context.Background(), abimsgs.MsgUnknownHeaderParam, rp.Type)
		}
		t, err := parseTypeString(rp.Type, rp.Components)
		if err != nil {
			return nil, err
		}
		out[i] = Param{Name: rp.Name, Type: t}
	}
	return out, nil
}

// parseTypeString parses one schema type string into a *Type, following
// the per-type signature grammar of §3 (the same token set Type.Signature
// produces, read back).
func parseTypeString(s string, components []rawParam) (*Type, error) {
	ctx := context.Background()
	switch {
	case s == "bool":
		return TBool(), nil
	case s == "cell":
		return TCell(), nil
	case s == "address":
		return TAddress(), nil
	case s == "address_std":
		return TAddressStd(), nil
	case s == "bytes":
		return TBytes(), nil
	case s == "string":
		return TString(), nil
	case s == "gram" || s == "token":
		return TToken(), nil
	case s == "time":
		return TTime(), nil
	case s == "expire":
		return TExpire(), nil
	case s == "pubkey":
		return TPublicKey(), nil
	case s == "tuple" || s == "":
		fields, err := parseParams(components, false)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, i18n.NewError(ctx, abimsgs.MsgEmptyComponents, s)
		}
		return TTuple(fields...), nil
	case strings.HasPrefix(s, "uint") && !strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[4:])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		return TUint(n), nil
	case strings.HasPrefix(s, "int") && !strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[3:])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		return TInt(n), nil
	case strings.HasPrefix(s, "varuint") && !strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[7:])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		return TVarUint(n), nil
	case strings.HasPrefix(s, "varint") && !strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[6:])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		return TVarInt(n), nil
	case strings.HasPrefix(s, "fixedbytes") && !strings.HasSuffix(s, "]"):
		n, err := strconv.Atoi(s[10:])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		return TFixedBytes(n), nil
	case strings.HasPrefix(s, "map(") && strings.HasSuffix(s, ")"):
		inner := s[4 : len(s)-1]
		parts := splitTopLevel(inner)
		if len(parts) != 2 {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		k, err := parseTypeString(parts[0], nil)
		if err != nil {
			return nil, err
		}
		v, err := parseTypeString(parts[1], components)
		if err != nil {
			return nil, err
		}
		return TMap(k, v), nil
	case strings.HasPrefix(s, "optional(") && strings.HasSuffix(s, ")"):
		inner, err := parseTypeString(s[9:len(s)-1], components)
		if err != nil {
			return nil, err
		}
		return TOptional(inner), nil
	case strings.HasPrefix(s, "ref(") && strings.HasSuffix(s, ")"):
		inner, err := parseTypeString(s[4:len(s)-1], components)
		if err != nil {
			return nil, err
		}
		return TRef(inner), nil
	case strings.HasSuffix(s, "[]"):
		inner, err := parseTypeString(s[:len(s)-2], components)
		if err != nil {
			return nil, err
		}
		return TArray(inner), nil
	case strings.HasSuffix(s, "]"):
		open := strings.LastIndex(s, "[")
		if open < 0 {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		k, err := strconv.Atoi(s[open+1 : len(s)-1])
		if err != nil {
			return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
		}
		inner, err := parseTypeString(s[:open], components)
		if err != nil {
			return nil, err
		}
		return TFixedArray(inner, k), nil
	default:
		return nil, i18n.NewError(ctx, abimsgs.MsgBadTypeSignature, s)
	}
}

// splitTopLevel splits s on commas that are not nested inside parens or
// brackets, for parsing map(K,V) where K or V may itself be map(...)/T[]/...
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}
