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

package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dataproc-toolkit/pkg/driver"
	"dataproc-toolkit/pkg/logging"
)

func init() {
	rootCmd.AddCommand(execCmd)
}

var execCmd = &cobra.Command{
	Use:   "exec [payload-file]",
	Short: "Decodes a work unit payload and invokes its registered operation.",
	Long: `The 'exec' command is the remote half of 'run': the generated driver
script pipes the encoded work unit into it on a cluster node. It decodes the
payload, applies the environment overrides it carries, and invokes the
registered operation.

The payload is read from the named file, or from stdin when the argument is
'-' or absent.`,
	Args:         cobra.MaximumNArgs(1),
	Run:          runExecCmd,
	SilenceUsage: true,
}

func runExecCmd(cmd *cobra.Command, args []string) {
	payload, err := readPayload(args)
	if err != nil {
		logging.Fatal("Failed to read work unit payload: %v", err)
	}

	unit, err := driver.DecodeWorkUnit(strings.TrimSpace(string(payload)))
	if err != nil {
		logging.Fatal("Failed to decode work unit: %v", err)
	}

	logging.Info("Invoking operation %q", unit.Operation)
	if err := driver.Invoke(context.Background(), unit); err != nil {
		logging.Fatal("Operation %q failed: %v", unit.Operation, err)
	}
	logging.Info("Operation %q finished", unit.Operation)
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}
