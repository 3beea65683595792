package reactor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/resolver"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
	"github.com/cloupeer-io/fleetdfu/pkg/wire"
)

// fakeBackend is a store.UpdateStore double whose behaviour each test wires
// directly, the way the resolver's own tests exercise mergeStatus without a
// network round trip.
type fakeBackend struct {
	metadata    *store.Metadata
	firmware    []byte
	fetchErr    error
	firmwareErr error
}

func (f *fakeBackend) FetchMetadata(ctx context.Context, params store.Params) (store.Context, *store.Metadata, error) {
	if f.fetchErr != nil {
		return nil, nil, f.fetchErr
	}
	return nil, f.metadata, nil
}

func (f *fakeBackend) FetchFirmware(ctx context.Context, params store.Params, storeCtx store.Context, md *store.Metadata) ([]byte, error) {
	if f.firmwareErr != nil {
		return nil, f.firmwareErr
	}
	return f.firmware, nil
}

func (f *fakeBackend) UpdateProgress(ctx context.Context, params store.Params, storeCtx store.Context, offset, size uint32) {
}

func (f *fakeBackend) MarkSynced(ctx context.Context, params store.Params, storeCtx store.Context, success bool) {
}

func (f *fakeBackend) Backoff(storeCtx store.Context) *int {
	seconds := 30
	return &seconds
}

// newTestResolver stands up a registry fake serving one application's spec
// and accepting firmware-status writes, the way registryclient itself is
// exercised: over a plain net/http.Client against an httptest.Server.
func newTestResolver(t *testing.T, spec *store.FirmwareSpec) *resolver.Resolver {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/applications/app1/devices/dev1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/v1/applications/app1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"application": "app1", "spec": spec})
	})
	mux.HandleFunc("/api/v1/applications/app1/devices/dev1/firmware_status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := registryclient.New(&options.RegistryOptions{URL: srv.URL})
	return resolver.New(client)
}

func fileSpec() *store.FirmwareSpec {
	return &store.FirmwareSpec{File: &store.FileSpec{Name: "main"}}
}

// TestDecideNoMetadataWaits covers S1: no artifact resolved yet, so the
// reactor replies Wait with the backend's advertised poll interval.
func TestDecideNoMetadataWaits(t *testing.T) {
	res := newTestResolver(t, fileSpec())
	backends := store.Backends{File: &fakeBackend{metadata: nil}}
	r := New(res, backends, nil)

	status := &wire.Status{Version: []byte("1.0.0")}
	cmd, err := r.Decide(context.Background(), "app1", "dev1", status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wait, ok := cmd.(*wire.Wait)
	if !ok {
		t.Fatalf("expected *wire.Wait, got %T", cmd)
	}
	if wait.Poll == nil || *wait.Poll != 30 {
		t.Fatalf("expected poll interval 30, got %v", wait.Poll)
	}
}

// TestDecideAlreadyInSync covers S2: the device already reports the
// resolved target version, so the reactor replies Sync.
func TestDecideAlreadyInSync(t *testing.T) {
	res := newTestResolver(t, fileSpec())
	backends := store.Backends{File: &fakeBackend{metadata: &store.Metadata{Version: []byte("1.2.3"), Size: 100}}}
	r := New(res, backends, nil)

	status := &wire.Status{Version: []byte("1.2.3")}
	cmd, err := r.Decide(context.Background(), "app1", "dev1", status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sync, ok := cmd.(*wire.Sync)
	if !ok {
		t.Fatalf("expected *wire.Sync, got %T", cmd)
	}
	if string(sync.Version) != "1.2.3" {
		t.Fatalf("unexpected sync version: %q", sync.Version)
	}
}

// TestDecideFreshTransferStartsAtZero covers S3: the device is out of sync
// and reports no in-progress update, so the first Write starts at offset 0.
func TestDecideFreshTransferStartsAtZero(t *testing.T) {
	res := newTestResolver(t, fileSpec())
	firmware := make([]byte, 1500)
	backends := store.Backends{File: &fakeBackend{
		metadata: &store.Metadata{Version: []byte("2.0.0"), Size: uint32(len(firmware))},
		firmware: firmware,
	}}
	r := New(res, backends, nil)

	status := &wire.Status{Version: []byte("1.0.0")}
	cmd, err := r.Decide(context.Background(), "app1", "dev1", status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	write, ok := cmd.(*wire.Write)
	if !ok {
		t.Fatalf("expected *wire.Write, got %T", cmd)
	}
	if write.Offset != 0 {
		t.Fatalf("expected fresh transfer to start at offset 0, got %d", write.Offset)
	}
	if len(write.Data) != int(wire.DefaultMTU) {
		t.Fatalf("expected chunk length %d, got %d", wire.DefaultMTU, len(write.Data))
	}
}

// TestDecideResumesInProgressTransfer covers S4: the device reports an
// update in progress toward the resolved target, so the Write resumes at
// the reported offset rather than restarting from zero.
func TestDecideResumesInProgressTransfer(t *testing.T) {
	res := newTestResolver(t, fileSpec())
	firmware := make([]byte, 1500)
	backends := store.Backends{File: &fakeBackend{
		metadata: &store.Metadata{Version: []byte("2.0.0"), Size: uint32(len(firmware))},
		firmware: firmware,
	}}
	r := New(res, backends, nil)

	status := &wire.Status{
		Version: []byte("1.0.0"),
		Update:  &wire.UpdateStatus{Version: []byte("2.0.0"), Offset: 1024},
	}
	cmd, err := r.Decide(context.Background(), "app1", "dev1", status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	write, ok := cmd.(*wire.Write)
	if !ok {
		t.Fatalf("expected *wire.Write, got %T", cmd)
	}
	if write.Offset != 1024 {
		t.Fatalf("expected resume at offset 1024, got %d", write.Offset)
	}
	if len(write.Data) != 476 {
		t.Fatalf("expected remaining 476 bytes, got %d", len(write.Data))
	}
}

// TestDecideCompletedTransferSwaps covers S5: the device has accepted the
// entire artifact, so the reactor replies Swap with the padded checksum.
func TestDecideCompletedTransferSwaps(t *testing.T) {
	res := newTestResolver(t, fileSpec())
	backends := store.Backends{File: &fakeBackend{
		metadata: &store.Metadata{Version: []byte("2.0.0"), Size: 100, Checksum: "sha256:ab"},
	}}
	r := New(res, backends, nil)

	status := &wire.Status{
		Version: []byte("1.0.0"),
		Update:  &wire.UpdateStatus{Version: []byte("2.0.0"), Offset: 100},
	}
	cmd, err := r.Decide(context.Background(), "app1", "dev1", status)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	swap, ok := cmd.(*wire.Swap)
	if !ok {
		t.Fatalf("expected *wire.Swap, got %T", cmd)
	}
	if swap.Checksum[0] != 0xab {
		t.Fatalf("expected checksum to start with 0xab, got %x", swap.Checksum)
	}
}

// TestDecideUnconfiguredBackendErrors covers S7: the spec selects a backend
// variant the coordinator has not configured.
func TestDecideUnconfiguredBackendErrors(t *testing.T) {
	res := newTestResolver(t, &store.FirmwareSpec{Hawkbit: &store.HawkbitSpec{ControllerID: "dev1"}})
	r := New(res, store.Backends{}, nil)

	_, err := r.Decide(context.Background(), "app1", "dev1", &wire.Status{Version: []byte("1.0.0")})
	if err == nil {
		t.Fatal("expected an error for an unconfigured backend variant")
	}
}
