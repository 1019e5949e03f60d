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

// Package dataproc runs a packaged work unit on an ephemeral Dataproc
// cluster and guarantees the cluster is destroyed afterward, whatever the
// outcome.
package dataproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dataproc-toolkit/pkg/driver"
	"dataproc-toolkit/pkg/logging"
	"dataproc-toolkit/pkg/resources"
	"dataproc-toolkit/pkg/shell"

	"github.com/spf13/afero"
)

const (
	driverFilename = "driver.py"

	// DefaultWorkerMachineType is the worker shape used when the descriptor
	// does not name one.
	DefaultWorkerMachineType = "n1-standard-1"

	// DefaultWorkerNumInstances is the worker count used when the descriptor
	// does not set one.
	DefaultWorkerNumInstances = 2

	// DefaultPollInterval is the fixed delay between job status polls.
	DefaultPollInterval = 5 * time.Second

	// DefaultWatchTimeout bounds terminal-state polling. A watch that hits
	// the bound aborts the run; teardown still fires through the enclosing
	// scope. A negative WatchTimeout disables the bound.
	DefaultWatchTimeout = 2 * time.Hour
)

// DefaultJarFileURIs are the extra binary dependencies staged onto every job
// unless the descriptor overrides them.
var DefaultJarFileURIs = []string{
	"gs://spark-lib/bigquery/spark-bigquery-latest_2.12.jar",
}

// DefaultPipPackages pins the toolkit runtime, which provides the binary
// the generated driver script invokes on cluster nodes.
var DefaultPipPackages = []string{
	"dataproc-toolkit-runtime==1.5",
}

// Job describes one run of a work unit on an ephemeral cluster. The
// descriptor is immutable once Run starts; every run provisions exactly one
// cluster and submits exactly one job.
type Job struct {
	// Identity and target environment.
	ID  string
	Env string

	// Work unit: a registered operation plus its arguments. Environment
	// overrides derived from Env are applied remotely before invocation.
	Operation        string
	Arguments        []string
	KeywordArguments map[string]string

	// Target project, region and upload bucket.
	ProjectID string
	Region    string
	BucketID  string

	// Package list for the cluster init action, or a requirements file to
	// read it from. Empty means the default runtime pin.
	PipPackages      []string
	RequirementsFile string

	// Extra binary dependencies and worker sizing.
	JarFileURIs        []string
	WorkerMachineType  string
	WorkerNumInstances int64

	// Build descriptor of the project to package and upload.
	SetupFile string

	// Polling cadence and the explicit bound on terminal-state polling.
	PollInterval time.Duration
	WatchTimeout time.Duration

	// Remote collaborators, wired by the caller (GCP adapters in production,
	// fakes in tests).
	Clusters ClusterController
	Jobs     JobController
	Blobs    BlobStore
	Builder  ArtifactBuilder

	// Overridable for tests.
	now          func() time.Time
	randomSuffix func(int) string
	fs           afero.Fs
}

func (j *Job) applyDefaults() {
	if j.Env == "" {
		j.Env = "none"
	}
	if j.WorkerMachineType == "" {
		j.WorkerMachineType = DefaultWorkerMachineType
	}
	if j.WorkerNumInstances == 0 {
		j.WorkerNumInstances = DefaultWorkerNumInstances
	}
	if j.JarFileURIs == nil {
		j.JarFileURIs = DefaultJarFileURIs
	}
	if j.PollInterval == 0 {
		j.PollInterval = DefaultPollInterval
	}
	if j.WatchTimeout == 0 {
		j.WatchTimeout = DefaultWatchTimeout
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.randomSuffix == nil {
		j.randomSuffix = shell.RandomString
	}
	if j.fs == nil {
		j.fs = afero.NewOsFs()
	}
}

func (j *Job) validate() error {
	switch {
	case j.ID == "":
		return fmt.Errorf("job id is required")
	case j.Operation == "":
		return fmt.Errorf("job operation is required")
	case j.ProjectID == "":
		return fmt.Errorf("project id is required")
	case j.Region == "":
		return fmt.Errorf("region is required")
	case j.BucketID == "":
		return fmt.Errorf("bucket id is required")
	case j.SetupFile == "":
		return fmt.Errorf("setup file is required")
	case j.Clusters == nil || j.Jobs == nil || j.Blobs == nil || j.Builder == nil:
		return fmt.Errorf("job is missing remote service clients")
	}
	return nil
}

// workUnit assembles the work unit shipped to the cluster. The runtime is
// passed as a keyword argument and the environment tag as an env override,
// mirroring what the submission properties advertise to the executors.
func (j *Job) workUnit(runtime string) driver.WorkUnit {
	kwargs := make(map[string]string, len(j.KeywordArguments)+1)
	for k, v := range j.KeywordArguments {
		kwargs[k] = v
	}
	kwargs["runtime"] = runtime

	return driver.WorkUnit{
		Operation: j.Operation,
		Args:      append([]string(nil), j.Arguments...),
		Kwargs:    kwargs,
		Env:       map[string]string{"env": j.Env},
	}
}

// resolvePipPackages returns the package list for the cluster init action.
func (j *Job) resolvePipPackages() ([]string, error) {
	if j.RequirementsFile != "" {
		return resources.ReadRequirements(j.fs, j.RequirementsFile)
	}
	if len(j.PipPackages) > 0 {
		return j.PipPackages, nil
	}
	return DefaultPipPackages, nil
}

// Run executes the job on a freshly provisioned cluster. Steps are strictly
// sequential: package and upload, create cluster, submit, poll to a terminal
// state, fetch the output log, destroy the cluster. The cluster is destroyed
// on every exit path once it exists.
func (j *Job) Run(ctx context.Context, runtime string) error {
	j.applyDefaults()
	if err := j.validate(); err != nil {
		return err
	}
	logging.Info("Run job %q", j.ID)

	runID := internalJobID(j.ID, j.Env, j.now(), j.randomSuffix)
	logging.Info("Internal job id is %q", runID)

	script, err := driver.GenerateScript(runID, j.workUnit(runtime))
	if err != nil {
		return &PackagingError{Err: err}
	}

	pipPackages, err := j.resolvePipPackages()
	if err != nil {
		return err
	}

	artifactPath, err := j.Builder.Build(j.SetupFile)
	if err != nil {
		return err
	}

	logging.Info("Uploading driver script and project artifact...")
	artifactObject := runID + "/" + filepath.Base(artifactPath)
	if err := j.uploadFile(ctx, artifactObject, artifactPath); err != nil {
		return err
	}
	driverObject := runID + "/" + driverFilename
	if err := j.Blobs.Upload(ctx, driverObject, strings.NewReader(script)); err != nil {
		return fmt.Errorf("failed to upload driver script %q: %w", driverObject, err)
	}

	err = j.withTempCluster(ctx, ClusterSpec{
		Name:               runID,
		WorkerMachineType:  j.WorkerMachineType,
		WorkerNumInstances: j.WorkerNumInstances,
		PipPackages:        pipPackages,
	}, func(clusterName string) error {
		handle, err := j.submit(ctx, clusterName, driverObject, artifactObject)
		if err != nil {
			return err
		}
		// The output log is rendered whenever submission succeeded, whether
		// the watch ends in success or failure, and before teardown.
		defer j.printJobOutput(context.WithoutCancel(ctx), handle.ID)
		return j.watch(ctx, handle.ID)
	})
	if err != nil {
		return err
	}

	logging.Info("Job %q was finished", j.ID)
	return nil
}

func (j *Job) uploadFile(ctx context.Context, object, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %q: %w", path, err)
	}
	defer f.Close()
	if err := j.Blobs.Upload(ctx, object, f); err != nil {
		return fmt.Errorf("failed to upload artifact %q: %w", object, err)
	}
	return nil
}
