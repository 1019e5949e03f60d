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

// Package driver packages a work unit into a self-executing driver script
// and resolves it back to a registered operation on the remote side.
package driver

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// WorkUnit names a registered operation together with its arguments and the
// environment-variable overrides to apply before invocation. Operations are
// resolved by name through a Registry on the remote side; no code objects
// ever travel over the wire.
type WorkUnit struct {
	Operation string
	Args      []string
	Kwargs    map[string]string
	Env       map[string]string
}

// EncodeWorkUnit serializes a work unit and encodes it into the text-safe
// base85 alphabet for embedding in a driver script.
func EncodeWorkUnit(unit WorkUnit) (string, error) {
	if unit.Operation == "" {
		return "", fmt.Errorf("work unit has no operation")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(unit); err != nil {
		return "", fmt.Errorf("failed to serialize work unit: %w", err)
	}
	return encodeBase85(buf.Bytes()), nil
}

// DecodeWorkUnit reverses EncodeWorkUnit.
func DecodeWorkUnit(payload string) (WorkUnit, error) {
	raw, err := decodeBase85(payload)
	if err != nil {
		return WorkUnit{}, fmt.Errorf("failed to decode work unit payload: %w", err)
	}
	var unit WorkUnit
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&unit); err != nil {
		return WorkUnit{}, fmt.Errorf("failed to deserialize work unit: %w", err)
	}
	return unit, nil
}
