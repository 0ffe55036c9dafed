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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/broxus/tvm-abi/pkg/abi"
	"github.com/broxus/tvm-abi/pkg/cell"
)

func namedValuesToJSON(values []abi.NamedValue) map[string]string {
	out := make(map[string]string, len(values))
	for _, v := range values {
		out[v.Name] = fmt.Sprintf("%+v", v.Value)
	}
	return out
}

func decodeInputCmd() *cobra.Command {
	var functionName, bodyBOC string
	var internal, includePubKey, allowPartial bool

	c := &cobra.Command{
		Use:   "decode-input",
		Short: "Decode a function call body",
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := loadContract(cmd)
			if err != nil {
				return err
			}
			fn, err := contract.FunctionByName(functionName)
			if err != nil {
				return err
			}
			root, err := cell.DecodeBOC(bodyBOC)
			if err != nil {
				return err
			}
			header, inputs, err := abi.DecodeInput(contract, fn, root, internal, includePubKey, allowPartial)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(struct {
				Header map[string]string `json:"header,omitempty"`
				Inputs map[string]string `json:"inputs"`
			}{namedValuesToJSON(header), namedValuesToJSON(inputs)}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	c.Flags().StringVar(&functionName, "function", "", "function name")
	c.Flags().StringVar(&bodyBOC, "body", "", "base64 BOC of the call body")
	c.Flags().BoolVar(&internal, "internal", false, "decode as an internal message")
	c.Flags().BoolVar(&includePubKey, "include-pubkey", false, "expect a public key attached after the signature")
	c.Flags().BoolVar(&allowPartial, "allow-partial", false, "default remaining params when the cell runs out")
	_ = c.MarkFlagRequired("function")
	_ = c.MarkFlagRequired("body")
	return c
}

func decodeOutputCmd() *cobra.Command {
	var functionName, bodyBOC string
	var allowPartial bool

	c := &cobra.Command{
		Use:   "decode-output",
		Short: "Decode a function's output body",
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := loadContract(cmd)
			if err != nil {
				return err
			}
			fn, err := contract.FunctionByName(functionName)
			if err != nil {
				return err
			}
			root, err := cell.DecodeBOC(bodyBOC)
			if err != nil {
				return err
			}
			outputs, err := abi.DecodeOutput(contract, fn, root, allowPartial)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(namedValuesToJSON(outputs), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	c.Flags().StringVar(&functionName, "function", "", "function name")
	c.Flags().StringVar(&bodyBOC, "body", "", "base64 BOC of the output body")
	c.Flags().BoolVar(&allowPartial, "allow-partial", false, "default remaining params when the cell runs out")
	_ = c.MarkFlagRequired("function")
	_ = c.MarkFlagRequired("body")
	return c
}
