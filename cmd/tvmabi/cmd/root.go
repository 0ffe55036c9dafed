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

// Package cmd wires the tvmabi CLI's cobra commands, following the same
// cobra+viper shape as ffsigner's root command: persistent --schema,
// --version and --key flags, a bound viper instance, logging set up before
// any subcommand runs.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagSchema  = "schema"
	flagVersion = "version"
	flagKeyHex  = "key"
)

var rootCmd = &cobra.Command{
	Use:   "tvmabi",
	Short: "Encode and decode TVM contract ABI call data",
	Long:  `tvmabi tokenizes, serializes and signs contract calls against a cell-oriented ABI schema, and decodes wire bodies back into JSON.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String(flagSchema, "", "path to the ABI schema JSON file")
	rootCmd.PersistentFlags().String(flagVersion, "", "ABI version override, e.g. 2.2 (defaults to the schema's own version)")
	rootCmd.PersistentFlags().String(flagKeyHex, "", "hex-encoded Ed25519 private key, for signing external messages")

	_ = viper.BindPFlag(flagSchema, rootCmd.PersistentFlags().Lookup(flagSchema))
	_ = viper.BindPFlag(flagVersion, rootCmd.PersistentFlags().Lookup(flagVersion))
	_ = viper.BindPFlag(flagKeyHex, rootCmd.PersistentFlags().Lookup(flagKeyHex))
	viper.SetEnvPrefix("TVMABI")
	viper.AutomaticEnv()

	rootCmd.AddCommand(encodeInputCmd())
	rootCmd.AddCommand(decodeInputCmd())
	rootCmd.AddCommand(decodeOutputCmd())
	rootCmd.AddCommand(watchSchemaCmd())
}

func setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
		logrus.SetLevel(lvl)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func fail(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func readSchemaPath(cmd *cobra.Command) (string, error) {
	path := viper.GetString(flagSchema)
	if path == "" {
		return "", fail("--%s is required", flagSchema)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fail("reading schema %s: %w", path, err)
	}
	return path, nil
}
