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
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dataproc-toolkit/pkg/artifact"
	"dataproc-toolkit/pkg/dataproc"
	"dataproc-toolkit/pkg/dataproc/gcp"
	"dataproc-toolkit/pkg/logging"
)

var (
	jobID            string
	jobEnv           string
	operation        string
	operationArgs    []string
	operationKwargs  map[string]string
	projectID        string
	region           string
	bucketID         string
	setupFile        string
	requirementsFile string
	pipPackages      []string
	jarFileURIs      []string
	workerType       string
	workerCount      int64
	pollInterval     time.Duration
	watchTimeout     time.Duration
	jobFilePath      string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&jobID, "job-id", "", "Name of the job. Required unless set in the job file.")
	runCmd.Flags().StringVar(&jobEnv, "env", "", "Target environment tag propagated to the cluster (e.g., 'dev', 'prod').")
	runCmd.Flags().StringVar(&operation, "operation", "", "Name of the registered operation to run on the cluster. Required unless set in the job file.")
	runCmd.Flags().StringArrayVar(&operationArgs, "arg", nil, "Positional argument for the operation. Repeatable.")
	runCmd.Flags().StringToStringVar(&operationKwargs, "kwarg", nil, "Keyword argument for the operation as key=value. Repeatable.")
	runCmd.Flags().StringVarP(&projectID, "project", "p", "", "Google Cloud project ID. Required unless set in the job file.")
	runCmd.Flags().StringVar(&region, "region", "", "Dataproc region (e.g., 'europe-west1'). Required unless set in the job file.")
	runCmd.Flags().StringVar(&bucketID, "bucket", "", "Cloud Storage bucket for staging the driver script and project artifact. Required unless set in the job file.")
	runCmd.Flags().StringVar(&setupFile, "setup-file", "setup.py", "Path to the build descriptor of the project to package.")
	runCmd.Flags().StringVar(&requirementsFile, "requirements", "", "Path to a requirements file listing the packages to install on cluster nodes.")
	runCmd.Flags().StringArrayVar(&pipPackages, "pip-package", nil, "Package to install on cluster nodes (e.g., 'pandas==1.1.0'). Repeatable. Ignored when --requirements is set.")
	runCmd.Flags().StringArrayVar(&jarFileURIs, "jar-uri", nil, "Extra jar dependency staged onto the job. Repeatable.")
	runCmd.Flags().StringVar(&workerType, "worker-machine-type", "", "Machine type of the cluster workers.")
	runCmd.Flags().Int64Var(&workerCount, "worker-count", 0, "Number of cluster workers.")
	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Delay between job status polls. 0 uses the default.")
	runCmd.Flags().DurationVar(&watchTimeout, "watch-timeout", 0, "Upper bound on waiting for the job to finish. 0 uses the default.")
	runCmd.Flags().StringVarP(&jobFilePath, "job-file", "f", "", "Path to a YAML job descriptor. Flags override its values.")
}

var runCmd = &cobra.Command{
	Use:   "run [runtime]",
	Short: "Runs a registered operation on a freshly provisioned Dataproc cluster.",
	Long: `The 'run' command packages the project into a single artifact, uploads it
together with a generated driver script, provisions a temporary Dataproc
cluster, submits the work unit as a PySpark job, waits for it to finish and
prints its output log. The cluster is destroyed afterward on every path.

The optional runtime argument is passed to the operation as the 'runtime'
keyword argument; it defaults to the current time.`,
	Args:         cobra.MaximumNArgs(1),
	Run:          runRunCmd,
	SilenceUsage: true,
}

// jobFile is the YAML job descriptor. Field for field it mirrors the flags;
// any flag set on the command line wins over the file.
type jobFile struct {
	ID                 string            `yaml:"id"`
	Env                string            `yaml:"env"`
	Operation          string            `yaml:"operation"`
	Arguments          []string          `yaml:"arguments"`
	KeywordArguments   map[string]string `yaml:"keyword_arguments"`
	Project            string            `yaml:"project"`
	Region             string            `yaml:"region"`
	Bucket             string            `yaml:"bucket"`
	SetupFile          string            `yaml:"setup_file"`
	RequirementsFile   string            `yaml:"requirements_file"`
	PipPackages        []string          `yaml:"pip_packages"`
	JarFileURIs        []string          `yaml:"jar_file_uris"`
	WorkerMachineType  string            `yaml:"worker_machine_type"`
	WorkerNumInstances int64             `yaml:"worker_num_instances"`
}

func loadJobFile(path string) (*jobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, err
	}
	return &jf, nil
}

func runRunCmd(cmd *cobra.Command, args []string) {
	job := &dataproc.Job{}

	if jobFilePath != "" {
		jf, err := loadJobFile(jobFilePath)
		if err != nil {
			logging.Fatal("Failed to load job file %q: %v", jobFilePath, err)
		}
		job.ID = jf.ID
		job.Env = jf.Env
		job.Operation = jf.Operation
		job.Arguments = jf.Arguments
		job.KeywordArguments = jf.KeywordArguments
		job.ProjectID = jf.Project
		job.Region = jf.Region
		job.BucketID = jf.Bucket
		job.SetupFile = jf.SetupFile
		job.RequirementsFile = jf.RequirementsFile
		job.PipPackages = jf.PipPackages
		job.JarFileURIs = jf.JarFileURIs
		job.WorkerMachineType = jf.WorkerMachineType
		job.WorkerNumInstances = jf.WorkerNumInstances
	}

	flags := cmd.Flags()
	setIfChanged := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	setIfChanged("job-id", func() { job.ID = jobID })
	setIfChanged("env", func() { job.Env = jobEnv })
	setIfChanged("operation", func() { job.Operation = operation })
	setIfChanged("arg", func() { job.Arguments = operationArgs })
	setIfChanged("kwarg", func() { job.KeywordArguments = operationKwargs })
	setIfChanged("project", func() { job.ProjectID = projectID })
	setIfChanged("region", func() { job.Region = region })
	setIfChanged("bucket", func() { job.BucketID = bucketID })
	setIfChanged("requirements", func() { job.RequirementsFile = requirementsFile })
	setIfChanged("pip-package", func() { job.PipPackages = pipPackages })
	setIfChanged("jar-uri", func() { job.JarFileURIs = jarFileURIs })
	setIfChanged("worker-machine-type", func() { job.WorkerMachineType = workerType })
	setIfChanged("worker-count", func() { job.WorkerNumInstances = workerCount })
	if job.SetupFile == "" || flags.Changed("setup-file") {
		job.SetupFile = setupFile
	}
	job.PollInterval = pollInterval
	job.WatchTimeout = watchTimeout

	runtime := time.Now().Format("2006-01-02 15:04:05")
	if len(args) == 1 {
		runtime = args[0]
	}

	// Interrupts cancel provisioning and watching; teardown of an already
	// created cluster still runs to completion.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clusters, err := gcp.NewClusterClient(ctx, job.ProjectID, job.Region)
	if err != nil {
		logging.Fatal("Failed to create cluster client: %v", err)
	}
	jobs, err := gcp.NewJobClient(ctx, job.ProjectID, job.Region)
	if err != nil {
		logging.Fatal("Failed to create job client: %v", err)
	}
	blobs, err := gcp.NewBlobClient(ctx, job.BucketID)
	if err != nil {
		logging.Fatal("Failed to create storage client: %v", err)
	}
	job.Clusters = clusters
	job.Jobs = jobs
	job.Blobs = blobs
	job.Builder = artifact.NewBuilder()

	if err := job.Run(ctx, runtime); err != nil {
		logging.Fatal("Run failed: %v", err)
	}
}
