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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/broxus/tvm-abi/pkg/abi"
)

func watchSchemaCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "watch-schema",
		Short: "Watch an ABI schema file and reload it on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := readSchemaPath(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			watcher, err := abi.WatchSchema(ctx, path, func(err error) {
				logrus.Warnf("schema reload failed: %s", err)
			})
			if err != nil {
				return err
			}
			defer watcher.Close()

			fmt.Printf("watching %s (version %s, %d functions)\n", path, watcher.Current().Version, len(watcher.Current().Functions))

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			<-sigs
			return nil
		},
	}
	return c
}
