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
	"io"
)

// ClusterSpec describes an ephemeral cluster to provision. The master shape,
// boot disks and image version are fixed by the lifecycle manager; only the
// worker fleet and the package set vary per job.
type ClusterSpec struct {
	Name               string
	WorkerMachineType  string
	WorkerNumInstances int64
	PipPackages        []string
}

// ClusterController provisions and destroys clusters. CreateCluster blocks
// until the cluster is ready to accept jobs.
type ClusterController interface {
	CreateCluster(ctx context.Context, spec ClusterSpec) error
	DeleteCluster(ctx context.Context, name string) error
}

// JobState is the coarse remote job state. Any non-terminal remote sub-state
// (pending, setup, queued, cancel-pending) maps to StateRunning.
type JobState string

const (
	StateRunning   JobState = "RUNNING"
	StateDone      JobState = "DONE"
	StateError     JobState = "ERROR"
	StateCancelled JobState = "CANCELLED"
)

// Terminal reports whether no further transition can occur from the state.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateError || s == StateCancelled
}

// JobStatus is a point-in-time view of a submitted job.
type JobStatus struct {
	State     JobState
	Details   string
	OutputURI string
}

// JobHandle identifies a submitted job.
type JobHandle struct {
	ID string
}

// SubmitSpec is the job submission payload: where to run, what to run, and
// the properties propagated into the execution contexts.
type SubmitSpec struct {
	ClusterName     string
	DriverScriptURI string
	ArtifactURI     string
	JarFileURIs     []string
	Properties      map[string]string
}

// JobController submits jobs and reports their status. SubmitJob is
// fire-and-forget: it returns as soon as the remote service accepts the job.
type JobController interface {
	SubmitJob(ctx context.Context, spec SubmitSpec) (JobHandle, error)
	GetJobStatus(ctx context.Context, jobID string) (JobStatus, error)
}

// BlobStore uploads run objects into the job's bucket and downloads log
// objects by full URI (driver output may land in a service-owned bucket).
type BlobStore interface {
	Upload(ctx context.Context, object string, r io.Reader) error
	Download(ctx context.Context, uri string) ([]byte, error)
}

// ArtifactBuilder turns a project source tree into a single distributable
// artifact, given the path of its build descriptor.
type ArtifactBuilder interface {
	Build(setupFile string) (string, error)
}
