package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Compact-binary wire shapes. Every field travels positionally (no map
// keys) via the `cbor:",toarray"` struct tag, because frames cross
// low-MTU radio links where a few bytes of key overhead per field adds up.
// Decoding a frame whose array length does not match these shapes is a
// decode error, never a silently-ignored or silently-defaulted field: this
// is the "strict when reading from the device" behavior the codec
// promises.

type statusWire struct {
	_             struct{} `cbor:",toarray"`
	Version       []byte
	MTU           *uint32
	CorrelationID *uint32
	Update        *updateWire
}

type updateWire struct {
	_       struct{} `cbor:",toarray"`
	Version []byte
	Offset  uint32
}

type waitWire struct {
	_             struct{} `cbor:",toarray"`
	CorrelationID *uint32
	Poll          *uint32
}

type syncWire struct {
	_             struct{} `cbor:",toarray"`
	Version       []byte
	CorrelationID *uint32
	Poll          *uint32
}

type writeWire struct {
	_             struct{} `cbor:",toarray"`
	Version       []byte
	CorrelationID *uint32
	Offset        uint32
	Data          []byte
}

type swapWire struct {
	_             struct{} `cbor:",toarray"`
	Version       []byte
	CorrelationID *uint32
	Checksum      []byte
}

// EncodeStatusBinary renders a Status in the compact binary form a device
// emits.
func EncodeStatusBinary(s *Status) ([]byte, error) {
	w := statusWire{Version: s.Version, MTU: s.MTU, CorrelationID: s.CorrelationID}
	if s.Update != nil {
		w.Update = &updateWire{Version: s.Update.Version, Offset: s.Update.Offset}
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("wire: encode status: %w", err)
	}
	return b, nil
}

// DecodeStatusBinary parses the compact binary form of a Status. Extra or
// missing fields are rejected.
func DecodeStatusBinary(b []byte) (*Status, error) {
	var w statusWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("wire: decode status: %w", err)
	}
	s := &Status{Version: w.Version, MTU: w.MTU, CorrelationID: w.CorrelationID}
	if w.Update != nil {
		s.Update = &UpdateStatus{Version: w.Update.Version, Offset: w.Update.Offset}
	}
	return s, nil
}

// EncodeCommandBinary renders cmd as a one-byte discriminant followed by its
// compact-binary CBOR payload.
func EncodeCommandBinary(cmd Command) ([]byte, error) {
	var payload any
	switch c := cmd.(type) {
	case *Wait:
		payload = waitWire{CorrelationID: c.CorrelationIDValue, Poll: c.Poll}
	case *Sync:
		payload = syncWire{Version: c.Version, CorrelationID: c.CorrelationIDValue, Poll: c.Poll}
	case *Write:
		payload = writeWire{Version: c.Version, CorrelationID: c.CorrelationIDValue, Offset: c.Offset, Data: c.Data}
	case *Swap:
		payload = swapWire{Version: c.Version, CorrelationID: c.CorrelationIDValue, Checksum: c.Checksum[:]}
	default:
		return nil, fmt.Errorf("wire: unknown command type %T", cmd)
	}

	body, err := cbor.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: encode command: %w", err)
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(cmd.Type()))
	out = append(out, body...)
	return out, nil
}

// DecodeCommandBinary parses the compact binary form of a Command.
func DecodeCommandBinary(b []byte) (Command, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("wire: empty command frame")
	}
	discriminant, body := CommandType(b[0]), b[1:]

	switch discriminant {
	case CommandTypeWait:
		var w waitWire
		if err := cbor.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("wire: decode wait command: %w", err)
		}
		return &Wait{CorrelationIDValue: w.CorrelationID, Poll: w.Poll}, nil

	case CommandTypeSync:
		var w syncWire
		if err := cbor.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("wire: decode sync command: %w", err)
		}
		return &Sync{Version: w.Version, CorrelationIDValue: w.CorrelationID, Poll: w.Poll}, nil

	case CommandTypeWrite:
		var w writeWire
		if err := cbor.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("wire: decode write command: %w", err)
		}
		return &Write{Version: w.Version, CorrelationIDValue: w.CorrelationID, Offset: w.Offset, Data: w.Data}, nil

	case CommandTypeSwap:
		var w swapWire
		if err := cbor.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("wire: decode swap command: %w", err)
		}
		return &Swap{Version: w.Version, CorrelationIDValue: w.CorrelationID, Checksum: PadChecksum(w.Checksum)}, nil

	default:
		return nil, fmt.Errorf("wire: unknown command discriminant %d", b[0])
	}
}
