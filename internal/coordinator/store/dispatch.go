package store

import "fmt"

// Backends holds one UpdateStore per spec variant. A nil field means that
// backend is not configured; Dispatch surfaces that as an error rather than
// a nil-pointer panic deeper in the reactor.
type Backends struct {
	Registry UpdateStore
	Hawkbit  UpdateStore
	File     UpdateStore
}

// Dispatch selects the backend matching spec's variant. This is the
// sum-typed dispatch layer called for in spec.md §9 DESIGN NOTES: the
// variant set is closed (three members), so a type switch is used instead
// of a dyn-dispatch capability object.
func Dispatch(spec *FirmwareSpec, backends Backends) (UpdateStore, error) {
	switch {
	case spec.OCI != nil:
		if backends.Registry == nil {
			return nil, fmt.Errorf("store: spec selects the OCI backend but it is not configured")
		}
		return backends.Registry, nil
	case spec.Hawkbit != nil:
		if backends.Hawkbit == nil {
			return nil, fmt.Errorf("store: spec selects the hawkBit backend but it is not configured")
		}
		return backends.Hawkbit, nil
	case spec.File != nil:
		if backends.File == nil {
			return nil, fmt.Errorf("store: spec selects the file backend but it is not configured")
		}
		return backends.File, nil
	default:
		return nil, fmt.Errorf("store: firmware spec has no backend variant set")
	}
}
