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

// Package abilog carries a logrus.FieldLogger on a context, the same
// pattern firefly-signer's internal packages use via firefly-common's
// pkg/log, kept local here so this module has no dependency on a server
// framework it does not otherwise need.
package abilog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var rootLogger = logrus.WithField("pkg", "tvm-abi")

// WithLogger attaches a logger to the context, to be retrieved with L.
func WithLogger(ctx context.Context, l *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// L returns the logger attached to ctx, or a package default if none was attached.
func L(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return l
		}
	}
	return rootLogger
}
