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

// Package shell runs external commands and captures their output.
package shell

import (
	"bytes"
	"math/rand"
	"os/exec"
	"strings"
	"time"
)

// Result holds the captured outcome of an executed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command is an external command prepared for execution.
type Command struct {
	name  string
	args  []string
	dir   string
	input string
}

// NewCommand prepares a command without running it.
func NewCommand(name string, args ...string) *Command {
	return &Command{name: name, args: args}
}

// SetInput feeds the given string to the command's stdin.
func (c *Command) SetInput(input string) {
	c.input = input
}

// SetDir sets the working directory for the command.
func (c *Command) SetDir(dir string) {
	c.dir = dir
}

// Execute runs the command and captures stdout, stderr and the exit code.
// A command that could not be started at all is reported with exit code -1
// and the start error in Stderr.
func (c *Command) Execute() Result {
	cmd := exec.Command(c.name, c.args...)
	cmd.Dir = c.dir
	if c.input != "" {
		cmd.Stdin = strings.NewReader(c.input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
	}
	return result
}

// ExecuteCommand runs a command and returns its captured result.
func ExecuteCommand(name string, args ...string) Result {
	return NewCommand(name, args...).Execute()
}

const randomStringCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomString returns a random string of the given length drawn uniformly
// from lowercase letters and digits.
func RandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomStringCharset[seededRand.Intn(len(randomStringCharset))]
	}
	return string(b)
}
