// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"context"
	"fmt"
	"os"
	"sync"

	"dataproc-toolkit/pkg/logging"
)

// OperationFunc is the signature of a registered operation. Positional and
// keyword arguments come from the decoded work unit.
type OperationFunc func(ctx context.Context, args []string, kwargs map[string]string) error

// Registry maps operation names to functions. Programs embedding the toolkit
// register their operations at startup; the remote side resolves a decoded
// work unit against the same registrations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]OperationFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: map[string]OperationFunc{}}
}

// Register adds an operation under the given name. Registering the same name
// twice is an error.
func (r *Registry) Register(name string, fn OperationFunc) error {
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("operation %q has a nil function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %q is already registered", name)
	}
	r.ops[name] = fn
	return nil
}

// Invoke applies the work unit's environment overrides to the process
// environment and calls the registered operation with the unit's arguments.
func (r *Registry) Invoke(ctx context.Context, unit WorkUnit) error {
	r.mu.RLock()
	fn, ok := r.ops[unit.Operation]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("operation %q is not registered", unit.Operation)
	}

	for key, value := range unit.Env {
		logging.Debug("Setting env variable %q for operation %q", key, unit.Operation)
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env variable %q: %w", key, err)
		}
	}
	return fn(ctx, unit.Args, unit.Kwargs)
}

var defaultRegistry = NewRegistry()

// Register adds an operation to the default registry. It panics on conflict
// so misregistrations surface at startup, not mid-run.
func Register(name string, fn OperationFunc) {
	if err := defaultRegistry.Register(name, fn); err != nil {
		panic(err)
	}
}

// Invoke resolves a work unit against the default registry.
func Invoke(ctx context.Context, unit WorkUnit) error {
	return defaultRegistry.Invoke(ctx, unit)
}
