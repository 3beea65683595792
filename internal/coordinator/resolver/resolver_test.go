package resolver

import (
	"errors"
	"testing"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/wire"
)

// TestMergeStatusInSync exercises invariant/scenario pairing where the
// device's reported version already matches the target.
func TestMergeStatusInSync(t *testing.T) {
	status := &wire.Status{Version: []byte("1.2.3")}
	md := &store.Metadata{Version: []byte("1.2.3"), Size: 1024}

	fs := mergeStatus(status, md, nil)

	if fs.Current != "1.2.3" || fs.Target != "1.2.3" {
		t.Fatalf("unexpected current/target: %+v", fs)
	}
	if len(fs.Conditions) != 1 || fs.Conditions[0].Type != registryclient.ConditionInSync || !fs.Conditions[0].Status {
		t.Fatalf("expected a single true InSync condition, got %+v", fs.Conditions)
	}
}

// TestMergeStatusProgress exercises scenario S9: a 64/200 transfer reports
// "32.00" on the UpdateProgress condition.
func TestMergeStatusProgress(t *testing.T) {
	status := &wire.Status{
		Version: []byte("1.0.0"),
		Update:  &wire.UpdateStatus{Version: []byte("1.2.3"), Offset: 64},
	}
	md := &store.Metadata{Version: []byte("1.2.3"), Size: 200}

	fs := mergeStatus(status, md, nil)

	if len(fs.Conditions) != 2 {
		t.Fatalf("expected InSync=false and UpdateProgress conditions, got %+v", fs.Conditions)
	}
	if fs.Conditions[0].Status {
		t.Fatalf("expected InSync=false")
	}
	if fs.Conditions[1].Message != "32.00" {
		t.Fatalf("expected progress message %q, got %q", "32.00", fs.Conditions[1].Message)
	}
}

func TestMergeStatusError(t *testing.T) {
	status := &wire.Status{Version: []byte("1.0.0")}

	fs := mergeStatus(status, nil, errors.New("store unreachable"))

	if fs.Target != "Unknown" {
		t.Fatalf("expected target Unknown on error, got %q", fs.Target)
	}
	if len(fs.Conditions) != 1 || fs.Conditions[0].Status {
		t.Fatalf("expected a single false InSync condition, got %+v", fs.Conditions)
	}
	if fs.Conditions[0].Reason != "store unreachable" {
		t.Fatalf("expected reason to carry the error string, got %q", fs.Conditions[0].Reason)
	}
}
