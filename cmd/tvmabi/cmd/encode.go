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

package cmd

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/broxus/tvm-abi/internal/types"
	"github.com/broxus/tvm-abi/pkg/abi"
	"github.com/broxus/tvm-abi/pkg/cell"
)

func loadContract(cmd *cobra.Command) (*abi.Contract, error) {
	path, err := readSchemaPath(cmd)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := abi.ParseSchema(data)
	if err != nil {
		return nil, err
	}
	if v := viper.GetString(flagVersion); v != "" {
		ver, err := abi.ParseVersion(v)
		if err != nil {
			return nil, err
		}
		c.Version = ver
	}
	return c, nil
}

// encodeResult is the CLI's JSON output for a successful encode: the
// finalized body as a BOC string, and the body cell's representation hash
// as 0x-prefixed hex via the kept hex/byte JSON helper.
type encodeResult struct {
	BodyBOC  string                 `json:"bodyBoc"`
	BodyHash types.HexBytes0xPrefix `json:"bodyHash"`
}

func encodeInputCmd() *cobra.Command {
	var functionName string
	var headerJSON string
	var inputsJSON string
	var internal bool
	var includePubKey bool
	var addressStr string

	c := &cobra.Command{
		Use:   "encode-input",
		Short: "Encode a function call body",
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := loadContract(cmd)
			if err != nil {
				return err
			}
			fn, err := contract.FunctionByName(functionName)
			if err != nil {
				return err
			}

			var headerRaw, inputsRaw any
			if headerJSON != "" {
				if err := json.Unmarshal([]byte(headerJSON), &headerRaw); err != nil {
					return fail("parsing --header: %w", err)
				}
			}
			if err := json.Unmarshal([]byte(inputsJSON), &inputsRaw); err != nil {
				return fail("parsing --inputs: %w", err)
			}

			headerValues, err := abi.TokenizeOptionalParams(headerRaw, fn.Header)
			if err != nil {
				return err
			}
			inputValues, err := abi.TokenizeAllParams(inputsRaw, fn.Inputs)
			if err != nil {
				return err
			}

			var signer abi.Signer
			if keyHex := viper.GetString(flagKeyHex); keyHex != "" {
				raw, err := hex.DecodeString(keyHex)
				if err != nil {
					return fail("parsing --key: %w", err)
				}
				signer = abi.NewKeyPairSigner(ed25519.PrivateKey(raw))
			}

			var address *abi.Address
			if addressStr != "" {
				v, err := abi.Tokenize("address", addressStr, abi.TAddressStd())
				if err != nil {
					return err
				}
				address = v.AddrVal
			}

			root, err := abi.EncodeInput(contract, fn, headerValues, inputValues, internal, signer, includePubKey, address)
			if err != nil {
				return err
			}

			hash := root.Hash()
			result := encodeResult{BodyBOC: cell.EncodeBOC(root), BodyHash: hash[:]}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	c.Flags().StringVar(&functionName, "function", "", "function name")
	c.Flags().StringVar(&headerJSON, "header", "", "header params as a JSON object")
	c.Flags().StringVar(&inputsJSON, "inputs", "{}", "input params as a JSON object")
	c.Flags().BoolVar(&internal, "internal", false, "encode as an internal message (no header, no signature)")
	c.Flags().BoolVar(&includePubKey, "include-pubkey", false, "attach the public key after the signature")
	c.Flags().StringVar(&addressStr, "address", "", "destination address (ABI >=2.3 external messages)")
	_ = c.MarkFlagRequired("function")
	return c
}
