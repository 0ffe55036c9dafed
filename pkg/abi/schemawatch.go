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
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abilog"
	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// SchemaWatcher holds the most recently parsed Contract for a schema file
// on disk, reparsing it whenever the file changes, following the same
// fsnotify watch-and-reload shape as a filesystem-backed credential store:
// one watcher goroutine, a done channel signalling its exit, atomic access
// to the current value for readers.
type SchemaWatcher struct {
	path    string
	current atomic.Pointer[Contract]
	watcher *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
	onError func(error)
}

// WatchSchema loads path once synchronously and then starts a filesystem
// watch that reparses it on every write/create event. onError, if non-nil,
// is called (from the watcher goroutine) whenever a reload fails; the
// previously loaded Contract is kept in that case.
func WatchSchema(ctx context.Context, path string, onError func(error)) (*SchemaWatcher, error) {
	w := &SchemaWatcher{path: path, done: make(chan struct{}), onError: onError}
	if err := w.reload(ctx); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgSchemaParseFailed, err.Error())
	}
	w.watcher = watcher
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, i18n.WrapError(ctx, err, abimsgs.MsgSchemaParseFailed, err.Error())
	}
	go w.loop(ctx)
	return w, nil
}

func (w *SchemaWatcher) reload(ctx context.Context) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return i18n.WrapError(ctx, err, abimsgs.MsgSchemaParseFailed, err.Error())
	}
	c, err := ParseSchema(data)
	if err != nil {
		return err
	}
	w.current.Store(c)
	return nil
}

func (w *SchemaWatcher) loop(ctx context.Context) {
	defer close(w.done)
	log := abilog.L(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			err := w.reload(ctx)
			w.mu.Unlock()
			if err != nil {
				log.Warnf("Failed to reload ABI schema %s: %s", w.path, err)
				if w.onError != nil {
					w.onError(err)
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("ABI schema watcher error: %s", err)
		}
	}
}

// Current returns the most recently (successfully) parsed Contract.
func (w *SchemaWatcher) Current() *Contract {
	return w.current.Load()
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *SchemaWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
