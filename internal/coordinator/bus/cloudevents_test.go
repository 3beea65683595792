package bus

import "testing"

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"1","subject":"dfu","application":"app1","device":"dev1","data":"aGVsbG8="}`)

	e, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Application != "app1" || e.Device != "dev1" || e.Subject != "dfu" {
		t.Fatalf("unexpected envelope: %+v", e)
	}
}

func TestParseEventInvalidJSON(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding invalid JSON")
	}
}

func TestIsFirmwareStatusBySubject(t *testing.T) {
	e := &Event{Subject: subjectDFU}
	if !e.IsFirmwareStatus() {
		t.Fatal("expected subject \"dfu\" to be treated as a firmware status")
	}
}

func TestIsFirmwareStatusByLoRaWANGateway(t *testing.T) {
	e := &Event{Subject: loRaWANDFUPort, Sender: "lorawan-gateway:eu868-1"}
	if !e.IsFirmwareStatus() {
		t.Fatal("expected a lorawan gateway sender on the dfu port to be treated as a firmware status")
	}
}

func TestIsFirmwareStatusRejectsOtherSubjects(t *testing.T) {
	e := &Event{Subject: "telemetry"}
	if e.IsFirmwareStatus() {
		t.Fatal("expected a non-dfu subject from a non-gateway sender to be rejected")
	}
}

func TestIsFirmwareStatusRejectsNonGatewaySenderOnDFUPort(t *testing.T) {
	e := &Event{Subject: loRaWANDFUPort, Sender: "device:dev1"}
	if e.IsFirmwareStatus() {
		t.Fatal("expected the dfu port match to require a lorawan-gateway sender prefix")
	}
}
