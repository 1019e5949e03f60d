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
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryInvoke(t *testing.T) {
	t.Setenv("DRIVER_TEST_ENV", "before")

	reg := NewRegistry()
	var gotArgs []string
	var gotKwargs map[string]string
	var gotEnv string
	err := reg.Register("record", func(ctx context.Context, args []string, kwargs map[string]string) error {
		gotArgs = args
		gotKwargs = kwargs
		gotEnv = os.Getenv("DRIVER_TEST_ENV")
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	unit := WorkUnit{
		Operation: "record",
		Args:      []string{"a", "b"},
		Kwargs:    map[string]string{"runtime": "2024-01-01 12:00:00"},
		Env:       map[string]string{"DRIVER_TEST_ENV": "after"},
	}
	if err := reg.Invoke(context.Background(), unit); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if diff := cmp.Diff(unit.Args, gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(unit.Kwargs, gotKwargs); diff != "" {
		t.Errorf("kwargs mismatch (-want +got):\n%s", diff)
	}
	if gotEnv != "after" {
		t.Errorf("env override not applied before invocation: got %q", gotEnv)
	}
}

func TestRegistryUnknownOperation(t *testing.T) {
	reg := NewRegistry()
	err := reg.Invoke(context.Background(), WorkUnit{Operation: "missing"})
	if err == nil {
		t.Fatal("expected error for unregistered operation")
	}
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	fn := func(ctx context.Context, args []string, kwargs map[string]string) error { return nil }
	if err := reg.Register("op", fn); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register("op", fn); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("", func(ctx context.Context, args []string, kwargs map[string]string) error { return nil }); err == nil {
		t.Error("expected error for empty operation name")
	}
	if err := reg.Register("nil-fn", nil); err == nil {
		t.Error("expected error for nil function")
	}
}
