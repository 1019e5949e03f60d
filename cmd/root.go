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

// Package cmd defines the command line interface of the toolkit.
package cmd

import (
	"dataproc-toolkit/pkg/logging"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "dataproc-toolkit",
	Short: "Runs packaged work units on ephemeral Dataproc clusters.",
	Long: `dataproc-toolkit packages a project, provisions a temporary Dataproc
cluster, runs a registered operation on it as a PySpark job, and destroys the
cluster afterward, whatever the outcome.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level output.")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
