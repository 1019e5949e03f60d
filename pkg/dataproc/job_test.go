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

package dataproc

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dataproc-toolkit/pkg/driver"
)

const testRunID = "demo-dev-2024-01-01-120000-abc1234567"

// recorder collects the order of remote-service calls across all fakes so
// the strict step sequence can be asserted.
type recorder struct {
	events []string
}

func (r *recorder) record(event string) {
	r.events = append(r.events, event)
}

type fakeClusters struct {
	rec       *recorder
	createErr error
	deleteErr error

	createCalls int
	deleteCalls int
	createdSpec ClusterSpec
}

func (f *fakeClusters) CreateCluster(ctx context.Context, spec ClusterSpec) error {
	f.rec.record("create-cluster")
	f.createCalls++
	f.createdSpec = spec
	return f.createErr
}

func (f *fakeClusters) DeleteCluster(ctx context.Context, name string) error {
	f.rec.record("delete-cluster")
	f.deleteCalls++
	return f.deleteErr
}

type fakeJobs struct {
	rec       *recorder
	submitErr error
	statusErr error
	statuses  []JobStatus

	submitted   []SubmitSpec
	statusCalls int
}

func (f *fakeJobs) SubmitJob(ctx context.Context, spec SubmitSpec) (JobHandle, error) {
	f.rec.record("submit-job")
	if f.submitErr != nil {
		return JobHandle{}, f.submitErr
	}
	f.submitted = append(f.submitted, spec)
	return JobHandle{ID: "job-123"}, nil
}

func (f *fakeJobs) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return JobStatus{}, f.statusErr
	}
	if len(f.statuses) == 0 {
		return JobStatus{State: StateRunning}, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

type fakeBlobs struct {
	rec         *recorder
	uploadErr   error
	downloadErr error

	uploads   map[string][]byte
	downloads map[string][]byte
}

func (f *fakeBlobs) Upload(ctx context.Context, object string, r io.Reader) error {
	f.rec.record("upload:" + object)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[object] = data
	return nil
}

func (f *fakeBlobs) Download(ctx context.Context, uri string) ([]byte, error) {
	f.rec.record("download:" + uri)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if data, ok := f.downloads[uri]; ok {
		return data, nil
	}
	return nil, errors.New("no such object")
}

type fakeBuilder struct {
	path string
	err  error
}

func (f *fakeBuilder) Build(setupFile string) (string, error) {
	return f.path, f.err
}

type testRun struct {
	job      *Job
	clusters *fakeClusters
	jobs     *fakeJobs
	blobs    *fakeBlobs
	rec      *recorder
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()

	dir := t.TempDir()
	setup := filepath.Join(dir, "setup.py")
	if err := os.WriteFile(setup, []byte("#"), 0644); err != nil {
		t.Fatal(err)
	}
	egg := filepath.Join(dir, "proj.egg")
	if err := os.WriteFile(egg, []byte("egg-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	clusters := &fakeClusters{rec: rec}
	jobs := &fakeJobs{rec: rec}
	blobs := &fakeBlobs{rec: rec, downloads: map[string][]byte{
		"gs://logs/job-123/driveroutput.000000000": []byte("remote stdout"),
	}}

	job := &Job{
		ID:           "Demo",
		Env:          "dev",
		Operation:    "wordcount",
		Arguments:    []string{"gs://data/in"},
		ProjectID:    "acme-project",
		Region:       "europe-west1",
		BucketID:     "acme-jobs",
		PipPackages:  []string{"pandas==1.1.0"},
		SetupFile:    setup,
		PollInterval: time.Millisecond,
		WatchTimeout: time.Second,
		Clusters:     clusters,
		Jobs:         jobs,
		Blobs:        blobs,
		Builder:      &fakeBuilder{path: egg},
		now:          func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
		randomSuffix: func(n int) string { return "abc1234567" },
	}
	return &testRun{job: job, clusters: clusters, jobs: jobs, blobs: blobs, rec: rec}
}

func doneStatus() JobStatus {
	return JobStatus{State: StateDone, OutputURI: "gs://logs/job-123/driveroutput"}
}

func assertTeardownOnce(t *testing.T, clusters *fakeClusters) {
	t.Helper()
	if clusters.deleteCalls != 1 {
		t.Errorf("DeleteCluster called %d times, want exactly 1", clusters.deleteCalls)
	}
}

func TestRunSuccess(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{doneStatus()}

	if err := tr.job.Run(context.Background(), "2024-01-01 12:00:00"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertTeardownOnce(t, tr.clusters)

	if tr.clusters.createdSpec.Name != testRunID {
		t.Errorf("cluster name = %q, want %q", tr.clusters.createdSpec.Name, testRunID)
	}
	if got := tr.clusters.createdSpec.PipPackages; len(got) != 1 || got[0] != "pandas==1.1.0" {
		t.Errorf("cluster pip packages = %v", got)
	}

	script, ok := tr.blobs.uploads[testRunID+"/driver.py"]
	if !ok {
		t.Fatalf("driver script was not uploaded, uploads: %v", keysOf(tr.blobs.uploads))
	}
	unit, err := driver.ParseScript(string(script))
	if err != nil {
		t.Fatalf("uploaded driver script does not round-trip: %v", err)
	}
	if unit.Operation != "wordcount" {
		t.Errorf("shipped operation = %q, want wordcount", unit.Operation)
	}
	if unit.Kwargs["runtime"] != "2024-01-01 12:00:00" {
		t.Errorf("shipped runtime = %q", unit.Kwargs["runtime"])
	}
	if unit.Env["env"] != "dev" {
		t.Errorf("shipped env override = %q, want dev", unit.Env["env"])
	}

	if _, ok := tr.blobs.uploads[testRunID+"/proj.egg"]; !ok {
		t.Errorf("project artifact was not uploaded, uploads: %v", keysOf(tr.blobs.uploads))
	}

	if len(tr.jobs.submitted) != 1 {
		t.Fatalf("SubmitJob called %d times, want 1", len(tr.jobs.submitted))
	}
	spec := tr.jobs.submitted[0]
	if spec.ClusterName != testRunID {
		t.Errorf("submitted cluster = %q, want %q", spec.ClusterName, testRunID)
	}
	if want := "gs://acme-jobs/" + testRunID + "/driver.py"; spec.DriverScriptURI != want {
		t.Errorf("driver URI = %q, want %q", spec.DriverScriptURI, want)
	}
	if spec.Properties["spark.app.name"] != "Demo" {
		t.Errorf("app name property = %q", spec.Properties["spark.app.name"])
	}
	if spec.Properties["spark.workerEnv.env"] != "dev" || spec.Properties["spark.executorEnv.env"] != "dev" {
		t.Errorf("env tag not mirrored into both contexts: %v", spec.Properties)
	}
}

func TestRunOrderingIsStrictlySequential(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{doneStatus()}

	if err := tr.job.Run(context.Background(), "rt"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var order []string
	for _, e := range tr.rec.events {
		switch {
		case strings.HasPrefix(e, "upload:"):
			order = append(order, "upload")
		case strings.HasPrefix(e, "download:"):
			order = append(order, "download")
		default:
			order = append(order, e)
		}
	}
	want := []string{"upload", "upload", "create-cluster", "submit-job", "download", "delete-cluster"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("call order = %v, want %v", order, want)
	}
}

func TestRunJobError(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{{State: StateError, Details: "boom", OutputURI: "gs://logs/job-123/driveroutput"}}

	err := tr.job.Run(context.Background(), "rt")
	if err == nil {
		t.Fatal("expected error for ERROR terminal state")
	}
	var execErr *JobExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want *JobExecutionError", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry the remote details", err)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunJobCancelled(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{{State: StateCancelled, OutputURI: "gs://logs/job-123/driveroutput"}}

	err := tr.job.Run(context.Background(), "rt")
	if !errors.Is(err, ErrJobCancelled) {
		t.Fatalf("error = %v, want ErrJobCancelled", err)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunPollsUntilTerminal(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{
		{State: StateRunning},
		{State: StateRunning},
		doneStatus(),
	}

	if err := tr.job.Run(context.Background(), "rt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Two RUNNING polls, one DONE poll, one status read for the output log.
	if tr.jobs.statusCalls != 4 {
		t.Errorf("GetJobStatus called %d times, want 4", tr.jobs.statusCalls)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunWatchTimeout(t *testing.T) {
	tr := newTestRun(t)
	tr.job.WatchTimeout = 25 * time.Millisecond
	// All polls report RUNNING; the watch must give up on its own.

	err := tr.job.Run(context.Background(), "rt")
	if err == nil {
		t.Fatal("expected error when the job never reaches a terminal state")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want a deadline error", err)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunSubmissionFailure(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.submitErr = errors.New("quota exceeded")

	err := tr.job.Run(context.Background(), "rt")
	var submitErr *JobSubmissionError
	if !errors.As(err, &submitErr) {
		t.Fatalf("error type = %T, want *JobSubmissionError", err)
	}
	assertTeardownOnce(t, tr.clusters)
	if tr.jobs.statusCalls != 0 {
		t.Errorf("output log was retrieved for a job that was never submitted")
	}
}

func TestRunProvisioningFailure(t *testing.T) {
	tr := newTestRun(t)
	tr.clusters.createErr = errors.New("no capacity")

	err := tr.job.Run(context.Background(), "rt")
	var provErr *ClusterProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T, want *ClusterProvisioningError", err)
	}
	// Cleanup of a possibly partial cluster is still attempted.
	assertTeardownOnce(t, tr.clusters)
	if len(tr.jobs.submitted) != 0 {
		t.Error("job was submitted despite provisioning failure")
	}
}

func TestRunLogRetrievalFailureIsNonFatal(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{doneStatus()}
	tr.blobs.downloadErr = errors.New("object gone")

	if err := tr.job.Run(context.Background(), "rt"); err != nil {
		t.Fatalf("Run failed on log retrieval: %v", err)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunTeardownFailureNeverMasksJobFailure(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{{State: StateError, Details: "boom", OutputURI: "gs://logs/job-123/driveroutput"}}
	tr.clusters.deleteErr = errors.New("delete rejected")

	err := tr.job.Run(context.Background(), "rt")
	var execErr *JobExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want the original *JobExecutionError", err)
	}
	assertTeardownOnce(t, tr.clusters)
}

func TestRunTeardownFailureSurfacesOnSuccess(t *testing.T) {
	tr := newTestRun(t)
	tr.jobs.statuses = []JobStatus{doneStatus()}
	tr.clusters.deleteErr = errors.New("delete rejected")

	err := tr.job.Run(context.Background(), "rt")
	var teardownErr *ClusterTeardownError
	if !errors.As(err, &teardownErr) {
		t.Fatalf("error type = %T, want *ClusterTeardownError", err)
	}
}

func TestRunValidation(t *testing.T) {
	tr := newTestRun(t)
	tr.job.BucketID = ""
	if err := tr.job.Run(context.Background(), "rt"); err == nil {
		t.Error("expected validation error for missing bucket id")
	}
	if tr.clusters.createCalls != 0 {
		t.Error("cluster was created despite invalid descriptor")
	}
}

func TestRunDefaultPipPackages(t *testing.T) {
	tr := newTestRun(t)
	tr.job.PipPackages = nil
	tr.jobs.statuses = []JobStatus{doneStatus()}

	if err := tr.job.Run(context.Background(), "rt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tr.clusters.createdSpec.PipPackages; len(got) == 0 || !strings.HasPrefix(got[0], "dataproc-toolkit-runtime==") {
		t.Errorf("default pip packages = %v, want the runtime pin", got)
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
