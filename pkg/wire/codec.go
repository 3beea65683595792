package wire

import "fmt"

// DecodeStatus tries the compact binary decoder first, falling back to JSON.
// This is the precedence the bus adapter applies to an inbound event
// payload: binary is the expected shape for device traffic, JSON is the
// administrative/debug fallback.
func DecodeStatus(payload []byte) (*Status, error) {
	if s, err := DecodeStatusBinary(payload); err == nil {
		return s, nil
	}
	s, err := DecodeStatusJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: status decode failed in both binary and json form: %w", err)
	}
	return s, nil
}
