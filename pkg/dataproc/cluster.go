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
	"time"

	"dataproc-toolkit/pkg/logging"
)

// withTempCluster provisions a cluster named after the run id, hands it to
// fn, and destroys it on every exit path. Provisioning blocks until the
// cluster is ready; the elapsed time is logged.
//
// If provisioning itself fails, destruction of any partially created
// resource is still attempted and the provisioning failure propagates. A
// teardown failure after fn has run is logged and returned only when there
// is no earlier failure to report.
func (j *Job) withTempCluster(ctx context.Context, spec ClusterSpec, fn func(clusterName string) error) (err error) {
	logging.Debug("Create temp cluster %q", spec.Name)
	logging.Info("Creating cluster %q, waiting for it to become ready...", spec.Name)
	start := time.Now()
	if cerr := j.Clusters.CreateCluster(ctx, spec); cerr != nil {
		j.deleteCluster(ctx, spec.Name, true)
		return &ClusterProvisioningError{Cluster: spec.Name, Err: cerr}
	}
	logging.Info("Cluster %q created in %s", spec.Name, time.Since(start).Round(time.Second))

	defer func() {
		// Teardown must run even when ctx was cancelled mid-run.
		if terr := j.deleteCluster(context.WithoutCancel(ctx), spec.Name, false); terr != nil && err == nil {
			err = terr
		}
	}()

	return fn(spec.Name)
}

// deleteCluster destroys the cluster and reports the outcome. With partial
// set, a delete failure is logged at debug level only: after a failed
// provisioning there may be nothing to delete.
func (j *Job) deleteCluster(ctx context.Context, name string, partial bool) error {
	logging.Debug("Delete temp cluster %q", name)
	if derr := j.Clusters.DeleteCluster(ctx, name); derr != nil {
		terr := &ClusterTeardownError{Cluster: name, Err: derr}
		if partial {
			logging.Debug("Cleanup of partially created cluster: %v", terr)
			return nil
		}
		logging.Error("%v", terr)
		return terr
	}
	logging.Info("Cluster %q was deleted", name)
	return nil
}
