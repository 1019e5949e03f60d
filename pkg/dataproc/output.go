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

	"dataproc-toolkit/pkg/logging"
)

// outputFirstShardSuffix selects the first shard of the driver output log.
// Logs split across multiple objects are not reassembled; only the first
// shard is fetched.
const outputFirstShardSuffix = ".000000000"

// printJobOutput fetches the job's driver output log and renders it for the
// operator. Retrieval problems are reported distinctly from the job outcome
// and never fail the run.
func (j *Job) printJobOutput(ctx context.Context, jobID string) {
	status, err := j.Jobs.GetJobStatus(ctx, jobID)
	if err != nil {
		logging.Error("%v", &LogRetrievalError{JobID: jobID, Err: err})
		return
	}
	if status.OutputURI == "" {
		logging.Error("%v", &LogRetrievalError{JobID: jobID, Err: errNoOutputURI})
		return
	}

	log, err := j.Blobs.Download(ctx, status.OutputURI+outputFirstShardSuffix)
	if err != nil {
		logging.Error("%v", &LogRetrievalError{JobID: jobID, Err: err})
		return
	}
	logging.Info("JOB OUTPUT:\n=====\n%s\n=====", log)
}
