// Copyright 2025 The Fleetdfu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buildapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	tektonv1 "github.com/tektoncd/pipeline/pkg/apis/pipeline/v1"
	"knative.dev/pkg/apis"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// labelApplication and labelDevice identify a triggered PipelineRun back to
// the (application, device) pair that caused it.
const (
	labelApplication = "fleetdfu.io/application"
	labelDevice       = "fleetdfu.io/device"

	paramTargetImage = "TARGET_IMAGE"
	paramBuilderImage = "BUILDER_IMAGE"
	paramGitURL    = "GIT_URL"
	paramGitRev    = "GIT_REVISION"
	paramGitProject = "GIT_PROJECT"
	paramArgs      = "BUILD_ARGS"
	workspaceName  = "source"
)

// orchestrator materialises and lists Tekton PipelineRuns in one namespace,
// the Kubernetes-shaped workload orchestrator spec.md §4.6 names.
type orchestrator struct {
	client    client.Client
	namespace string
	opts      *options.OrchestratorOptions
}

func newOrchestrator(c client.Client, namespace string, opts *options.OrchestratorOptions) *orchestrator {
	return &orchestrator{client: c, namespace: namespace, opts: opts}
}

// jobName computes the deterministic name spec.md §4.6 step 3 requires.
func jobName(application, device string) string {
	if device == "" {
		return fmt.Sprintf("app-%s", application)
	}
	return fmt.Sprintf("dev-%s-%s", application, device)
}

// trigger materialises a PipelineRun for the given build spec, idempotently
// replacing any previous run with the same deterministic name. targetImage
// is the OCI reference the image must land in; build.Image, if set, is an
// alternate builder image overriding the pipeline's default.
func (o *orchestrator) trigger(ctx context.Context, application, device, targetImage string, build *store.BuildSpec) error {
	name := jobName(application, device)

	existing := &tektonv1.PipelineRun{}
	err := o.client.Get(ctx, types.NamespacedName{Name: name, Namespace: o.namespace}, existing)
	switch {
	case err == nil:
		if delErr := o.client.Delete(ctx, existing); delErr != nil {
			return fmt.Errorf("buildapi: delete previous pipeline run %q: %w", name, delErr)
		}
	case apierrors.IsNotFound(err):
		// nothing to replace
	default:
		return fmt.Errorf("buildapi: look up previous pipeline run %q: %w", name, err)
	}

	run := o.render(name, application, device, targetImage, build)
	if err := o.client.Create(ctx, run); err != nil {
		return fmt.Errorf("buildapi: create pipeline run %q: %w", name, err)
	}
	return nil
}

func (o *orchestrator) render(name, application, device, targetImage string, build *store.BuildSpec) *tektonv1.PipelineRun {
	labels := map[string]string{labelApplication: application}
	if device != "" {
		labels[labelDevice] = device
	}

	pipelineRef := o.opts.PipelineRef
	params := []tektonv1.Param{
		stringParam(paramGitURL, build.Source.URI),
		stringParam(paramGitRev, build.Source.Rev),
		stringParam(paramGitProject, build.Source.Project),
		stringParam(paramTargetImage, targetImage),
	}
	if build.Image != "" {
		params = append(params, stringParam(paramBuilderImage, build.Image))
	}
	if len(build.Args) > 0 {
		params = append(params, stringParam(paramArgs, strings.Join(build.Args, " ")))
	}
	for _, env := range build.Env {
		params = append(params, stringParam(env.Name, env.Value))
	}

	timeout := o.opts.DefaultTimeout
	if build.Timeout != "" {
		if parsed, err := time.ParseDuration(build.Timeout); err == nil {
			timeout = parsed
		}
	}

	return &tektonv1.PipelineRun{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: o.namespace,
			Labels:    labels,
		},
		Spec: tektonv1.PipelineRunSpec{
			PipelineRef: &tektonv1.PipelineRef{Name: pipelineRef},
			Params:      params,
			Timeouts:    &tektonv1.TimeoutFields{Pipeline: &metav1.Duration{Duration: timeout}},
			Workspaces: []tektonv1.WorkspaceBinding{{
				Name: workspaceName,
				VolumeClaimTemplate: &corev1.PersistentVolumeClaim{
					Spec: corev1.PersistentVolumeClaimSpec{
						AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
						Resources: corev1.VolumeResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceStorage: resource.MustParse(o.opts.WorkspaceSize),
							},
						},
						StorageClassName: storageClassPtr(o.opts.StorageClass),
					},
				},
			}},
		},
	}
}

func stringParam(name, value string) tektonv1.Param {
	return tektonv1.Param{
		Name:  name,
		Value: tektonv1.ParamValue{Type: tektonv1.ParamTypeString, StringVal: value},
	}
}

func storageClassPtr(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}

// BuildRecord is one listing row: the (application, device) a run
// correlates to and its current status.
type BuildRecord struct {
	Application string     `json:"app"`
	Device      string     `json:"device,omitempty"`
	Started     *time.Time `json:"started,omitempty"`
	Completed   *time.Time `json:"completed,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// list correlates every PipelineRun in the namespace back to
// (application, device) by label.
func (o *orchestrator) list(ctx context.Context) ([]BuildRecord, error) {
	var runs tektonv1.PipelineRunList
	if err := o.client.List(ctx, &runs, client.InNamespace(o.namespace)); err != nil {
		return nil, fmt.Errorf("buildapi: list pipeline runs: %w", err)
	}

	records := make([]BuildRecord, 0, len(runs.Items))
	for i := range runs.Items {
		records = append(records, recordOf(&runs.Items[i]))
	}
	return records, nil
}

func recordOf(run *tektonv1.PipelineRun) BuildRecord {
	rec := BuildRecord{
		Application: run.Labels[labelApplication],
		Device:      run.Labels[labelDevice],
	}
	if run.Status.StartTime != nil {
		t := run.Status.StartTime.Time
		rec.Started = &t
	}

	cond := run.Status.GetCondition(apis.ConditionSucceeded)
	if cond == nil {
		return rec
	}
	rec.Status = cond.Reason
	if cond.Status != "Unknown" {
		t := cond.LastTransitionTime.Inner.Time
		rec.Completed = &t
	}
	return rec
}
