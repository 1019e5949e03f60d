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

// Package resources reads project resource files referenced by a job
// descriptor.
package resources

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ReadRequirements parses a pip requirements file into a package list.
// Blank lines and comments are skipped; `-r other.txt` includes are followed
// relative to the including file.
func ReadRequirements(fs afero.Fs, path string) ([]string, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read requirements file %q", path)
	}

	var packages []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if included, ok := strings.CutPrefix(line, "-r "); ok {
			includedPath := filepath.Join(filepath.Dir(path), strings.TrimSpace(included))
			includedPackages, err := ReadRequirements(fs, includedPath)
			if err != nil {
				return nil, err
			}
			packages = append(packages, includedPackages...)
			continue
		}
		packages = append(packages, line)
	}
	return packages, nil
}
