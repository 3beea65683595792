package buildapi

import (
	"testing"
	"time"

	tektonv1 "github.com/tektoncd/pipeline/pkg/apis/pipeline/v1"
	"knative.dev/pkg/apis"
	duckv1 "knative.dev/pkg/apis/duck/v1"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

func TestJobNameApplicationScoped(t *testing.T) {
	if got, want := jobName("fleet-sensor", ""), "app-fleet-sensor"; got != want {
		t.Fatalf("jobName() = %q, want %q", got, want)
	}
}

func TestJobNameDeviceScoped(t *testing.T) {
	if got, want := jobName("fleet-sensor", "dev-42"), "dev-fleet-sensor-dev-42"; got != want {
		t.Fatalf("jobName() = %q, want %q", got, want)
	}
}

func TestJobNameDeterministic(t *testing.T) {
	a := jobName("fleet-sensor", "dev-42")
	b := jobName("fleet-sensor", "dev-42")
	if a != b {
		t.Fatalf("expected jobName to be deterministic, got %q then %q", a, b)
	}
}

func TestRender(t *testing.T) {
	o := &orchestrator{namespace: "builds", opts: options.NewOrchestratorOptions()}
	build := &store.BuildSpec{
		Source: store.BuildSource{URI: "https://example.com/repo.git", Rev: "main", Project: "fleet"},
		Image:  "builder:latest",
		Args:   []string{"--flag"},
	}

	run := o.render("dev-fleet-sensor-dev-42", "fleet-sensor", "dev-42", "registry.example.com/fleet-sensor:1.2.3", build)

	if run.Name != "dev-fleet-sensor-dev-42" || run.Namespace != "builds" {
		t.Fatalf("unexpected object metadata: %+v", run.ObjectMeta)
	}
	if run.Labels[labelApplication] != "fleet-sensor" || run.Labels[labelDevice] != "dev-42" {
		t.Fatalf("unexpected labels: %+v", run.Labels)
	}

	params := map[string]string{}
	for _, p := range run.Spec.Params {
		params[p.Name] = p.Value.StringVal
	}
	if params[paramGitURL] != build.Source.URI {
		t.Fatalf("expected %s param %q, got %q", paramGitURL, build.Source.URI, params[paramGitURL])
	}
	if params[paramTargetImage] != "registry.example.com/fleet-sensor:1.2.3" {
		t.Fatalf("unexpected target image param: %q", params[paramTargetImage])
	}
	if params[paramBuilderImage] != "builder:latest" {
		t.Fatalf("expected builder image override to be passed through, got %q", params[paramBuilderImage])
	}
}

// TestRecordOfSucceeded covers a completed, successful PipelineRun.
func TestRecordOfSucceeded(t *testing.T) {
	run := &tektonv1.PipelineRun{}
	run.Labels = map[string]string{labelApplication: "fleet-sensor", labelDevice: "dev-42"}
	run.Status.StartTime = &metav1.Time{Time: time.Unix(1000, 0)}
	run.Status.Conditions = duckv1.Conditions{{
		Type:   apis.ConditionSucceeded,
		Status: corev1.ConditionTrue,
		Reason: "Succeeded",
	}}

	rec := recordOf(run)

	if rec.Application != "fleet-sensor" || rec.Device != "dev-42" {
		t.Fatalf("unexpected correlation fields: %+v", rec)
	}
	if rec.Status != "Succeeded" {
		t.Fatalf("expected status Succeeded, got %q", rec.Status)
	}
	if rec.Started == nil {
		t.Fatal("expected Started to be populated from Status.StartTime")
	}
}

// TestRecordOfInProgress covers a PipelineRun whose condition is still
// Unknown: Completed must stay nil even though a condition is present.
func TestRecordOfInProgress(t *testing.T) {
	run := &tektonv1.PipelineRun{}
	run.Labels = map[string]string{labelApplication: "fleet-sensor"}
	run.Status.Conditions = duckv1.Conditions{{
		Type:   apis.ConditionSucceeded,
		Status: corev1.ConditionUnknown,
		Reason: "Running",
	}}

	rec := recordOf(run)

	if rec.Status != "Running" {
		t.Fatalf("expected status Running, got %q", rec.Status)
	}
	if rec.Completed != nil {
		t.Fatalf("expected Completed to stay nil while condition is Unknown, got %v", rec.Completed)
	}
}

// TestRecordOfNoCondition covers a freshly-created PipelineRun with no
// status yet: both Status and Completed stay zero-valued.
func TestRecordOfNoCondition(t *testing.T) {
	run := &tektonv1.PipelineRun{}
	run.Labels = map[string]string{labelApplication: "fleet-sensor"}

	rec := recordOf(run)

	if rec.Status != "" || rec.Completed != nil {
		t.Fatalf("expected a zero-valued record, got %+v", rec)
	}
}
