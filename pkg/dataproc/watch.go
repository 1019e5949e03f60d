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
	"time"

	"dataproc-toolkit/pkg/logging"
)

// watch polls the job status on a fixed interval until a terminal state is
// reached. DONE returns nil; ERROR and CANCELLED are fatal. WatchTimeout
// bounds the loop so a job that never terminates cannot block the run (and
// its cluster) forever.
func (j *Job) watch(ctx context.Context, jobID string) error {
	logging.Info("Waiting for job %s to finish...", jobID)

	if j.WatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.WatchTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(j.PollInterval)
	defer ticker.Stop()

	for {
		status, err := j.Jobs.GetJobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to get status of job %s: %w", jobID, err)
		}

		switch status.State {
		case StateDone:
			logging.Info("Job %s is DONE", jobID)
			return nil
		case StateError:
			logging.Error("Job %s was failed with ERROR", jobID)
			return &JobExecutionError{JobID: jobID, Details: status.Details}
		case StateCancelled:
			logging.Error("Job %s was CANCELLED", jobID)
			return ErrJobCancelled
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}
