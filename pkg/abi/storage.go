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
	"github.com/broxus/tvm-abi/pkg/cell"
)

// EncodeStorageFields writes a contract's persisted-storage layout as a
// flat concatenation of its declared fields, in order - unlike a function
// body, storage fields are never chain-packed, only laid directly into one
// builder (per S5). A field absent from values (whether or not it is
// marked Init) falls back to its type's default.
func EncodeStorageFields(fields []*StorageField, values map[string]*Value, ver Version) (*cell.Builder, error) {
	b := cell.NewBuilder()
	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			v = DefaultValue(f.Type)
		}
		sv, err := SerializeValue(v, f.Type, ver)
		if err != nil {
			return nil, err
		}
		if err := b.AppendBuilder(sv.Data); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// DecodeStorageFields reads a contract's persisted-storage layout back into
// a name-keyed map, in declared field order.
func DecodeStorageFields(fields []*StorageField, cursor *Cursor, ver Version) (map[string]*Value, error) {
	out := make(map[string]*Value, len(fields))
	for _, f := range fields {
		v, err := DecodeValue(cursor, f.Type, ver)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}
