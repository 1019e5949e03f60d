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
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// DriverScriptTemplate is the Go template for the generated driver script.
// The script is the job's main file on the cluster: it applies the
// environment overrides, then feeds the embedded payload to the toolkit
// runtime installed on every node, which decodes it and invokes the
// registered operation. The payload alphabet contains no quote characters,
// so the literal needs no escaping.
const DriverScriptTemplate = `# Generated by the dataproc-toolkit driver packager. Do not edit.
# Run {{.RunID}}: decode and invoke operation {{.Operation}}.
import os
import subprocess

{{range .EnvLines}}os.environ[{{.Key}}] = {{.Value}}
{{end}}
data = "{{.Payload}}"

subprocess.run(["dataproc-toolkit", "exec", "-"], input=data.encode("ascii"), check=True)
`

const payloadLinePrefix = `data = "`

type envLine struct {
	Key   string
	Value string
}

// GenerateScript renders the driver script for a work unit.
func GenerateScript(runID string, unit WorkUnit) (string, error) {
	payload, err := EncodeWorkUnit(unit)
	if err != nil {
		return "", err
	}

	envLines := make([]envLine, 0, len(unit.Env))
	for key, value := range unit.Env {
		envLines = append(envLines, envLine{
			Key:   strconv.Quote(key),
			Value: strconv.Quote(value),
		})
	}
	sort.Slice(envLines, func(i, j int) bool { return envLines[i].Key < envLines[j].Key })

	tmpl, err := template.New("driverScript").Parse(DriverScriptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse driver script template: %w", err)
	}

	data := struct {
		RunID     string
		Operation string
		Payload   string
		EnvLines  []envLine
	}{
		RunID:     runID,
		Operation: strconv.Quote(unit.Operation),
		Payload:   payload,
		EnvLines:  envLines,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute driver script template: %w", err)
	}
	return buf.String(), nil
}

// ParseScript extracts and decodes the payload literal from a generated
// driver script. It is the inverse of GenerateScript with respect to the
// embedded work unit.
func ParseScript(script string) (WorkUnit, error) {
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, payloadLinePrefix) {
			continue
		}
		literal := strings.TrimPrefix(line, payloadLinePrefix)
		if !strings.HasSuffix(literal, `"`) {
			return WorkUnit{}, fmt.Errorf("unterminated payload literal in driver script")
		}
		return DecodeWorkUnit(strings.TrimSuffix(literal, `"`))
	}
	return WorkUnit{}, fmt.Errorf("driver script contains no payload literal")
}
