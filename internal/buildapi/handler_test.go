package buildapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tektonv1 "github.com/tektoncd/pipeline/pkg/apis/pipeline/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// newTestServer stands up a buildapi Server against a fake controller-runtime
// client and a registry fake serving the given application's spec, the same
// no-envtest fake-client approach the retrieval pack uses for its own
// Tekton-facing controller tests.
func newTestServer(t *testing.T, registryHandler http.Handler, allowed ...string) *httptest.Server {
	t.Helper()

	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		t.Fatalf("register core/v1 scheme: %v", err)
	}
	if err := tektonv1.AddToScheme(scheme); err != nil {
		t.Fatalf("register tekton pipeline/v1 scheme: %v", err)
	}
	kubeClient := fake.NewClientBuilder().WithScheme(scheme).Build()

	registrySrv := httptest.NewServer(registryHandler)
	t.Cleanup(registrySrv.Close)

	registryOpts := &options.RegistryOptions{URL: registrySrv.URL}
	orchOpts := options.NewOrchestratorOptions()
	buildOpts := options.NewBuildAPIOptions()
	buildOpts.AllowedApplications = allowed

	srv := NewServer("", "builds", kubeClient, registryOpts, orchOpts, buildOpts)

	testSrv := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(testSrv.Close)
	return testSrv
}

func jsonHandler(t *testing.T, routes map[string]any) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		b := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			json.NewEncoder(w).Encode(b)
		})
	}
	return mux
}

// TestTriggerMissingTokenReturnsBadRequest covers the trigger endpoint's
// first gate: a request with no bearer token is rejected before any
// allow-list or registry lookup happens.
func TestTriggerMissingTokenReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t, jsonHandler(t, nil), "fleet-sensor")

	resp, err := http.Post(srv.URL+"/api/build/v1alpha1/apps/fleet-sensor/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// TestTriggerNotAllowListedReturnsForbidden covers the allow-list gate: an
// authenticated caller for an application outside AllowedApplications is
// rejected before any registry lookup happens.
func TestTriggerNotAllowListedReturnsForbidden(t *testing.T) {
	srv := newTestServer(t, jsonHandler(t, nil), "other-app")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/build/v1alpha1/apps/fleet-sensor/trigger", nil)
	req.Header.Set("Authorization", "Bearer tok")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

// TestTriggerNonOCISpecReturnsNotImplemented covers the case where the
// resolved firmware spec exists but does not select the OCI backend.
func TestTriggerNonOCISpecReturnsNotImplemented(t *testing.T) {
	routes := map[string]any{
		"/api/v1/applications/fleet-sensor": map[string]any{"application": "fleet-sensor", "spec": map[string]any{"Hawkbit": map[string]any{"ControllerID": "x"}}},
	}
	srv := newTestServer(t, jsonHandler(t, routes), "fleet-sensor")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/build/v1alpha1/apps/fleet-sensor/trigger", nil)
	req.Header.Set("Authorization", "Bearer tok")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}

// TestTriggerNoBuildSectionReturnsNotFound covers an OCI spec with no Build
// section configured.
func TestTriggerNoBuildSectionReturnsNotFound(t *testing.T) {
	routes := map[string]any{
		"/api/v1/applications/fleet-sensor": map[string]any{"application": "fleet-sensor", "spec": map[string]any{"OCI": map[string]any{"Image": "img:latest"}}},
	}
	srv := newTestServer(t, jsonHandler(t, routes), "fleet-sensor")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/build/v1alpha1/apps/fleet-sensor/trigger", nil)
	req.Header.Set("Authorization", "Bearer tok")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// TestTriggerSubmitsPipelineRun covers the full success path: an OCI spec
// with a build section submits a PipelineRun and returns 200.
func TestTriggerSubmitsPipelineRun(t *testing.T) {
	routes := map[string]any{
		"/api/v1/applications/fleet-sensor": map[string]any{
			"application": "fleet-sensor",
			"spec": map[string]any{
				"OCI": map[string]any{
					"Image": "img:latest",
					"Build": map[string]any{
						"Source": map[string]any{"URI": "https://example.com/repo.git", "Rev": "main", "Project": "fleet"},
					},
				},
			},
		},
	}
	srv := newTestServer(t, jsonHandler(t, routes), "fleet-sensor")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/build/v1alpha1/apps/fleet-sensor/trigger", nil)
	req.Header.Set("Authorization", "Bearer tok")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// TestListReturnsBadGatewayOnRegistryFailure covers the Open Question
// resolution: a registry outage surfaces as a visible 502, not a silently
// empty list.
func TestListReturnsBadGatewayOnRegistryFailure(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := newTestServer(t, failing, "fleet-sensor")

	resp, err := http.Get(srv.URL + "/api/build/v1alpha1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

// TestListEmptyAllowListIsValid covers the companion half of that Open
// Question: with no allow-listed applications and a registry that reports
// zero applications, the listing is a legitimate empty list, not an error.
func TestListEmptyAllowListIsValid(t *testing.T) {
	empty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	srv := newTestServer(t, empty)

	resp, err := http.Get(srv.URL + "/api/build/v1alpha1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body []BuildRecord
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("expected an empty list, got %+v", body)
	}
}
