package registryclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// TestDeviceSpecNotFoundIsNotAnError covers spec.md §4.3's device-over-
// application fallback: a device with no spec override 404s and that must
// surface as (nil, nil), not an error.
func TestDeviceSpecNotFoundIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(&options.RegistryOptions{URL: srv.URL})

	spec, err := client.DeviceSpec(context.Background(), "app1", "dev1")
	if err != nil {
		t.Fatalf("expected no error on a 404 device spec, got %v", err)
	}
	if spec != nil {
		t.Fatalf("expected a nil spec on a 404 device spec, got %+v", spec)
	}
}

// TestDeviceSpecServerErrorIsAnError covers the opposite side: a genuine
// server failure must still surface as an error, not be swallowed the way
// a 404 now is.
func TestDeviceSpecServerErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(&options.RegistryOptions{URL: srv.URL})

	if _, err := client.DeviceSpec(context.Background(), "app1", "dev1"); err == nil {
		t.Fatal("expected an error on a 500 device spec response")
	}
}
