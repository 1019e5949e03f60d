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
	"fmt"
	"strings"
	"time"
)

const internalIDSuffixLength = 10

// internalJobID derives the run's internal id: lowercase job id, environment
// tag, second-resolution timestamp and a random alphanumeric suffix. The id
// doubles as the cluster name, the upload path prefix and the log
// correlation key, so it must be unique per run with overwhelming
// probability while staying human-sortable.
func internalJobID(jobID, env string, now time.Time, randomSuffix func(int) string) string {
	timestamp := now.Format("2006-01-02-150405")
	return fmt.Sprintf("%s-%s-%s-%s",
		strings.ToLower(jobID), env, timestamp, randomSuffix(internalIDSuffixLength))
}
