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
	"errors"
	"fmt"
)

// ErrJobCancelled is returned when the remote job reaches the CANCELLED
// terminal state.
var ErrJobCancelled = errors.New("job was cancelled")

var errNoOutputURI = errors.New("job reported no driver output location")

// PackagingError reports a work unit that could not be serialized into a
// driver script. It aborts the run before any remote resource is touched.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("failed to package work unit: %v", e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// ClusterProvisioningError reports a cluster that never became ready.
type ClusterProvisioningError struct {
	Cluster string
	Err     error
}

func (e *ClusterProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision cluster %q: %v", e.Cluster, e.Err)
}

func (e *ClusterProvisioningError) Unwrap() error { return e.Err }

// ClusterTeardownError reports a failed cluster deletion. It is logged on
// every path and never masks an earlier failure.
type ClusterTeardownError struct {
	Cluster string
	Err     error
}

func (e *ClusterTeardownError) Error() string {
	return fmt.Sprintf("failed to delete cluster %q: %v", e.Cluster, e.Err)
}

func (e *ClusterTeardownError) Unwrap() error { return e.Err }

// JobSubmissionError reports a rejected job submission. There is no retry;
// the enclosing scope still destroys the cluster.
type JobSubmissionError struct {
	Err error
}

func (e *JobSubmissionError) Error() string {
	return fmt.Sprintf("failed to submit job: %v", e.Err)
}

func (e *JobSubmissionError) Unwrap() error { return e.Err }

// JobExecutionError reports a job that reached the ERROR terminal state,
// carrying the remote status detail.
type JobExecutionError struct {
	JobID   string
	Details string
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job %s failed with ERROR: %s", e.JobID, e.Details)
}

// LogRetrievalError reports a driver output log that could not be fetched.
// It is surfaced to the operator but never changes the run outcome.
type LogRetrievalError struct {
	JobID string
	Err   error
}

func (e *LogRetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve output log of job %s: %v", e.JobID, e.Err)
}

func (e *LogRetrievalError) Unwrap() error { return e.Err }
