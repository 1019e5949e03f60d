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
	"fmt"

	"github.com/fatih/color"

	"dataproc-toolkit/pkg/logging"
)

// submissionProperties propagates the application name and the environment
// tag into both the worker and executor execution contexts.
func (j *Job) submissionProperties() map[string]string {
	props := map[string]string{
		"spark.app.name": j.ID,
	}
	if j.Env != "" {
		props["spark.workerEnv.env"] = j.Env
		props["spark.executorEnv.env"] = j.Env
	}
	return props
}

// submit creates the remote job referencing the uploaded driver script and
// artifact. It returns as soon as the service accepts the job; there is no
// retry, and the enclosing cluster scope handles teardown on failure.
func (j *Job) submit(ctx context.Context, clusterName, driverObject, artifactObject string) (JobHandle, error) {
	spec := SubmitSpec{
		ClusterName:     clusterName,
		DriverScriptURI: j.bucketURI(driverObject),
		ArtifactURI:     j.bucketURI(artifactObject),
		JarFileURIs:     j.JarFileURIs,
		Properties:      j.submissionProperties(),
	}
	logging.Debug("Job submission spec %+v", spec)

	handle, err := j.Jobs.SubmitJob(ctx, spec)
	if err != nil {
		return JobHandle{}, &JobSubmissionError{Err: err}
	}

	fmt.Printf("Job %s submitted.\n", handle.ID)
	fmt.Println(color.BlueString(j.consoleURL(handle.ID)))
	return handle, nil
}

func (j *Job) bucketURI(object string) string {
	return fmt.Sprintf("gs://%s/%s", j.BucketID, object)
}

// consoleURL is the operator-facing deep link to the submitted job.
func (j *Job) consoleURL(jobID string) string {
	return fmt.Sprintf("https://console.cloud.google.com/dataproc/jobs/%s?project=%s&region=%s",
		jobID, j.ProjectID, j.Region)
}
