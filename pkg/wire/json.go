package wire

import (
	"encoding/json"
	"fmt"
)

// JSON encodings mirror the same data model for CloudEvents envelope
// payloads and administrative/debug surfaces. Unlike the binary path,
// decode here tolerates unknown fields (encoding/json's default behavior):
// this side is read by humans and forward-compatible tooling, not a
// resource-constrained device.

// EncodeStatusJSON renders a Status as JSON.
func EncodeStatusJSON(s *Status) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("wire: encode status json: %w", err)
	}
	return b, nil
}

// DecodeStatusJSON parses a JSON-encoded Status.
func DecodeStatusJSON(b []byte) (*Status, error) {
	var s Status
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("wire: decode status json: %w", err)
	}
	return &s, nil
}

// commandJSON is the discriminated-union shape used on the wire; only the
// fields relevant to Type are populated on encode. Decode rejects a write
// without an offset; any other absent field decodes as its zero value (a
// swap without a checksum gets an all-zero checksum).
type commandJSON struct {
	Type          string  `json:"type"`
	Version       []byte  `json:"version,omitempty"`
	CorrelationID *uint32 `json:"correlation_id,omitempty"`
	Poll          *uint32 `json:"poll,omitempty"`
	Offset        *uint32 `json:"offset,omitempty"`
	Data          []byte  `json:"data,omitempty"`
	Checksum      []byte  `json:"checksum,omitempty"`
}

// EncodeCommandJSON renders cmd as a discriminated JSON object.
func EncodeCommandJSON(cmd Command) ([]byte, error) {
	var cj commandJSON
	switch c := cmd.(type) {
	case *Wait:
		cj = commandJSON{Type: "wait", CorrelationID: c.CorrelationIDValue, Poll: c.Poll}
	case *Sync:
		cj = commandJSON{Type: "sync", Version: c.Version, CorrelationID: c.CorrelationIDValue, Poll: c.Poll}
	case *Write:
		offset := c.Offset
		cj = commandJSON{Type: "write", Version: c.Version, CorrelationID: c.CorrelationIDValue, Offset: &offset, Data: c.Data}
	case *Swap:
		checksum := append([]byte(nil), c.Checksum[:]...)
		cj = commandJSON{Type: "swap", Version: c.Version, CorrelationID: c.CorrelationIDValue, Checksum: checksum}
	default:
		return nil, fmt.Errorf("wire: unknown command type %T", cmd)
	}

	b, err := json.Marshal(cj)
	if err != nil {
		return nil, fmt.Errorf("wire: encode command json: %w", err)
	}
	return b, nil
}

// DecodeCommandJSON parses a discriminated JSON Command.
func DecodeCommandJSON(b []byte) (Command, error) {
	var cj commandJSON
	if err := json.Unmarshal(b, &cj); err != nil {
		return nil, fmt.Errorf("wire: decode command json: %w", err)
	}

	switch cj.Type {
	case "wait":
		return &Wait{CorrelationIDValue: cj.CorrelationID, Poll: cj.Poll}, nil
	case "sync":
		return &Sync{Version: cj.Version, CorrelationIDValue: cj.CorrelationID, Poll: cj.Poll}, nil
	case "write":
		if cj.Offset == nil {
			return nil, fmt.Errorf("wire: write command missing offset")
		}
		return &Write{Version: cj.Version, CorrelationIDValue: cj.CorrelationID, Offset: *cj.Offset, Data: cj.Data}, nil
	case "swap":
		return &Swap{Version: cj.Version, CorrelationIDValue: cj.CorrelationID, Checksum: PadChecksum(cj.Checksum)}, nil
	default:
		return nil, fmt.Errorf("wire: unknown command type %q", cj.Type)
	}
}
