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

// Package artifact drives the external build tool that turns a project
// source tree into a single distributable artifact.
package artifact

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"dataproc-toolkit/pkg/logging"
	"dataproc-toolkit/pkg/shell"
)

// creatingPattern matches the build tool's stdout line identifying the
// produced artifact, e.g. `creating 'dist/proj.egg' and adding ...`.
var creatingPattern = regexp.MustCompile(`creating '([^']*)'`)

// BuildError reports a failed or unparsable external build.
type BuildError struct {
	SetupFile string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("artifact build for %q failed: %v", e.SetupFile, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Builder invokes the external build process. Python is the zero value's
// build tool; tests swap the filesystem for an in-memory one.
type Builder struct {
	fs      afero.Fs
	command string
}

// NewBuilder returns a builder that runs `python <setup> bdist_egg` against
// the real filesystem.
func NewBuilder() *Builder {
	return &Builder{fs: afero.NewOsFs(), command: "python"}
}

// Build runs the build tool in the setup file's directory and returns the
// absolute path of the produced artifact. The artifact is located by the
// `creating '...'` marker in the tool's output; a missing marker is as fatal
// as a non-zero exit.
func (b *Builder) Build(setupFile string) (string, error) {
	setupFile, err := filepath.Abs(setupFile)
	if err != nil {
		return "", &BuildError{SetupFile: setupFile, Err: err}
	}
	workDir := filepath.Dir(setupFile)

	logging.Info("Building project artifact from %s", setupFile)
	cmd := shell.NewCommand(b.command, setupFile, "bdist_egg")
	cmd.SetDir(workDir)
	res := cmd.Execute()
	if res.ExitCode != 0 {
		return "", &BuildError{
			SetupFile: setupFile,
			Err:       fmt.Errorf("build process exited with code %d: %s\n%s", res.ExitCode, res.Stderr, res.Stdout),
		}
	}

	artifactPath, err := LocateArtifact(b.fs, workDir, res.Stdout+"\n"+res.Stderr)
	if err != nil {
		return "", &BuildError{SetupFile: setupFile, Err: err}
	}
	logging.Info("Built artifact %s", artifactPath)
	return artifactPath, nil
}

// LocateArtifact finds the produced artifact's path in the build tool's
// combined output and resolves it against the build working directory.
func LocateArtifact(fs afero.Fs, workDir, output string) (string, error) {
	m := creatingPattern.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("build output contains no 'creating' marker")
	}

	artifactPath := m[1]
	if !filepath.IsAbs(artifactPath) {
		artifactPath = filepath.Join(workDir, artifactPath)
	}
	exists, err := afero.Exists(fs, artifactPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to stat artifact %q", artifactPath)
	}
	if !exists {
		return "", fmt.Errorf("build output names %q, but no such file exists", artifactPath)
	}
	return artifactPath, nil
}
