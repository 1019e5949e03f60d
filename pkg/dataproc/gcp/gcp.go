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

// Package gcp adapts the Cloud Dataproc and Cloud Storage services to the
// controller interfaces of the job lifecycle manager.
package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/dataproc/v1"
	"google.golang.org/api/option"

	dp "dataproc-toolkit/pkg/dataproc"
)

const (
	masterMachineType = "n1-standard-4"
	bootDiskSizeGb    = 100
	imageVersion      = "1.5"

	operationPollInterval = 5 * time.Second
)

// newDataprocService builds a Dataproc client pinned to the regional
// endpoint. Cluster and job resources are regional; the global endpoint
// rejects them.
func newDataprocService(ctx context.Context, region string) (*dataproc.Service, error) {
	endpoint := fmt.Sprintf("https://%s-dataproc.googleapis.com/", region)
	service, err := dataproc.NewService(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create dataproc client")
	}
	return service, nil
}

// ClusterClient implements cluster provisioning and teardown on the Cloud
// Dataproc clusters API.
type ClusterClient struct {
	service   *dataproc.Service
	projectID string
	region    string
}

// NewClusterClient returns a cluster controller for the given project and
// region.
func NewClusterClient(ctx context.Context, projectID, region string) (*ClusterClient, error) {
	service, err := newDataprocService(ctx, region)
	if err != nil {
		return nil, err
	}
	return &ClusterClient{service: service, projectID: projectID, region: region}, nil
}

// CreateCluster provisions the cluster and blocks until it is ready. The
// master shape, boot disks and image version are fixed; the worker fleet and
// the pip package set come from the cluster spec. Packages are installed by the
// stock pip-install init action, which reads them space-separated from
// instance metadata.
func (c *ClusterClient) CreateCluster(ctx context.Context, spec dp.ClusterSpec) error {
	cluster := &dataproc.Cluster{
		ClusterName: spec.Name,
		Config: &dataproc.ClusterConfig{
			MasterConfig: &dataproc.InstanceGroupConfig{
				NumInstances:   1,
				MachineTypeUri: masterMachineType,
				DiskConfig:     &dataproc.DiskConfig{BootDiskSizeGb: bootDiskSizeGb},
			},
			WorkerConfig: &dataproc.InstanceGroupConfig{
				NumInstances:   spec.WorkerNumInstances,
				MachineTypeUri: spec.WorkerMachineType,
				DiskConfig:     &dataproc.DiskConfig{BootDiskSizeGb: bootDiskSizeGb},
			},
			SoftwareConfig: &dataproc.SoftwareConfig{ImageVersion: imageVersion},
			InitializationActions: []*dataproc.NodeInitializationAction{
				{ExecutableFile: pipInstallAction(c.region)},
			},
			GceClusterConfig: &dataproc.GceClusterConfig{
				Metadata: map[string]string{
					"PIP_PACKAGES": strings.Join(spec.PipPackages, " "),
				},
			},
		},
	}

	op, err := c.service.Projects.Regions.Clusters.Create(c.projectID, c.region, cluster).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "failed to create cluster %q", spec.Name)
	}
	return c.waitForOperation(ctx, op)
}

// DeleteCluster destroys the cluster and blocks until the deletion finishes.
func (c *ClusterClient) DeleteCluster(ctx context.Context, name string) error {
	op, err := c.service.Projects.Regions.Clusters.Delete(c.projectID, c.region, name).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "failed to delete cluster %q", name)
	}
	return c.waitForOperation(ctx, op)
}

// waitForOperation polls the long-running operation until it completes.
func (c *ClusterClient) waitForOperation(ctx context.Context, op *dataproc.Operation) error {
	name := op.Name
	for !op.Done {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "gave up waiting for operation %q", name)
		case <-time.After(operationPollInterval):
		}

		var err error
		op, err = c.service.Projects.Regions.Operations.Get(name).Context(ctx).Do()
		if err != nil {
			return errors.Wrapf(err, "failed to poll operation %q", name)
		}
	}
	if op.Error != nil {
		return errors.Errorf("operation %q failed: %s", name, op.Error.Message)
	}
	return nil
}

func pipInstallAction(region string) string {
	return fmt.Sprintf("gs://goog-dataproc-initialization-actions-%s/python/pip-install.sh", region)
}

// JobClient implements job submission and status reads on the Cloud Dataproc
// jobs API.
type JobClient struct {
	service   *dataproc.Service
	projectID string
	region    string
}

// NewJobClient returns a job controller for the given project and region.
func NewJobClient(ctx context.Context, projectID, region string) (*JobClient, error) {
	service, err := newDataprocService(ctx, region)
	if err != nil {
		return nil, err
	}
	return &JobClient{service: service, projectID: projectID, region: region}, nil
}

// SubmitJob submits a PySpark job referencing the staged driver script and
// project artifact. It returns as soon as the service accepts the job.
func (c *JobClient) SubmitJob(ctx context.Context, spec dp.SubmitSpec) (dp.JobHandle, error) {
	req := &dataproc.SubmitJobRequest{
		Job: &dataproc.Job{
			Placement: &dataproc.JobPlacement{ClusterName: spec.ClusterName},
			PysparkJob: &dataproc.PySparkJob{
				MainPythonFileUri: spec.DriverScriptURI,
				PythonFileUris:    []string{spec.ArtifactURI},
				JarFileUris:       spec.JarFileURIs,
				Properties:        spec.Properties,
			},
		},
	}

	job, err := c.service.Projects.Regions.Jobs.Submit(c.projectID, c.region, req).Context(ctx).Do()
	if err != nil {
		return dp.JobHandle{}, errors.Wrap(err, "job submission was rejected")
	}
	return dp.JobHandle{ID: job.Reference.JobId}, nil
}

// GetJobStatus reads the current job status, collapsing the service's
// sub-states into the coarse lifecycle states.
func (c *JobClient) GetJobStatus(ctx context.Context, jobID string) (dp.JobStatus, error) {
	job, err := c.service.Projects.Regions.Jobs.Get(c.projectID, c.region, jobID).Context(ctx).Do()
	if err != nil {
		return dp.JobStatus{}, errors.Wrapf(err, "failed to get job %q", jobID)
	}

	status := dp.JobStatus{
		State:     mapState(job.Status.State),
		OutputURI: job.DriverOutputResourceUri,
	}
	if status.State == dp.StateError {
		status.Details = job.Status.Details
	}
	return status, nil
}

// mapState folds the remote state enum into the coarse lifecycle states.
// Everything that is not terminal counts as running.
func mapState(state string) dp.JobState {
	switch state {
	case "DONE":
		return dp.StateDone
	case "ERROR":
		return dp.StateError
	case "CANCELLED":
		return dp.StateCancelled
	default:
		return dp.StateRunning
	}
}

// BlobClient implements blob staging and log retrieval on Cloud Storage.
// Uploads land in the configured bucket; downloads accept full gs:// URIs so
// driver output can be read from the service-owned staging bucket.
type BlobClient struct {
	client *storage.Client
	bucket string
}

// NewBlobClient returns a blob store backed by the given bucket.
func NewBlobClient(ctx context.Context, bucket string) (*BlobClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	return &BlobClient{client: client, bucket: bucket}, nil
}

// Upload writes r to the named object in the configured bucket.
func (c *BlobClient) Upload(ctx context.Context, object string, r io.Reader) error {
	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to write object %q", object)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to finalize object %q", object)
	}
	return nil
}

// Download reads the whole object named by uri. A gs:// URI addresses any
// bucket; a bare object path addresses the configured bucket.
func (c *BlobClient) Download(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := parseGSURI(uri)
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		bucket = c.bucket
	}

	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open object %q", uri)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read object %q", uri)
	}
	return data, nil
}

// parseGSURI splits a gs://bucket/object URI. Anything without the scheme is
// treated as a bare object path and returned with an empty bucket.
func parseGSURI(uri string) (bucket, object string, err error) {
	const scheme = "gs://"
	if !strings.HasPrefix(uri, scheme) {
		return "", uri, nil
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", errors.Errorf("malformed object URI %q", uri)
	}
	return bucket, object, nil
}
