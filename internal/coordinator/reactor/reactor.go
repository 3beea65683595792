// Copyright 2025 The Fleetdfu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reactor implements the update coordinator's decision procedure:
// for one inbound device Status, drive the device one step toward its
// resolved target. The reactor is a pure function of (spec, metadata,
// status) aside from the store calls it issues; it keeps no state of its
// own between calls.
package reactor

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/devicestate"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/resolver"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/wire"
)

// Reactor drives each inbound Status toward its resolved target.
type Reactor struct {
	resolver *resolver.Resolver
	backends store.Backends
	tracker  *devicestate.Tracker
}

// New constructs a Reactor over the given resolver and store backends.
// tracker may be nil; when set, every decision is also fed through it for
// operator-facing state observability.
func New(res *resolver.Resolver, backends store.Backends, tracker *devicestate.Tracker) *Reactor {
	return &Reactor{resolver: res, backends: backends, tracker: tracker}
}

// Decide is the decision procedure of spec.md §4.4, reproduced verbatim.
// It returns exactly one Command, or an error that the caller logs and
// drops (no reply is sent in that case). When no spec resolves for the
// device, it logs and returns neither a Command nor an error.
func (r *Reactor) Decide(ctx context.Context, application, device string, status *wire.Status) (wire.Command, error) {
	spec, err := r.resolver.Resolve(ctx, application, device)
	if err != nil {
		log.Info("reactor: spec resolution failed, dropping event", "application", application, "device", device, "err", err.Error())
		return nil, nil
	}
	if spec == nil {
		log.Info("reactor: no firmware spec resolved, dropping event", "application", application, "device", device)
		return nil, nil
	}

	backend, err := store.Dispatch(spec, r.backends)
	if err != nil {
		return nil, fmt.Errorf("reactor: %w", err)
	}

	params := store.Params{Application: application, Device: device, Spec: spec}

	storeCtx, md, err := backend.FetchMetadata(ctx, params)
	if err != nil {
		r.resolver.UpdateStatus(ctx, application, device, status, nil, err)
		return nil, fmt.Errorf("reactor: fetch metadata: %w", err)
	}

	if md == nil {
		backoff := backend.Backoff(storeCtx)
		if r.tracker != nil {
			r.tracker.Observe(device, devicestate.PhaseIdle)
		}
		return &wire.Wait{CorrelationIDValue: status.CorrelationID, Poll: toUint32Ptr(backoff)}, nil
	}

	r.resolver.UpdateStatus(ctx, application, device, status, md, nil)

	if bytesEqual(status.Version, md.Version) {
		backend.MarkSynced(ctx, params, storeCtx, true)
		if r.tracker != nil {
			r.tracker.Observe(device, devicestate.PhaseIdle)
		}
		return &wire.Sync{Version: status.Version, CorrelationIDValue: status.CorrelationID}, nil
	}

	mtu := status.EffectiveMTU()
	offset := uint32(0)
	if status.Update != nil && bytesEqual(status.Update.Version, md.Version) {
		offset = status.Update.Offset
	}

	backend.UpdateProgress(ctx, params, storeCtx, offset, md.Size)

	if offset < md.Size {
		firmware, err := backend.FetchFirmware(ctx, params, storeCtx, md)
		if err != nil {
			r.resolver.UpdateStatus(ctx, application, device, status, nil, err)
			return nil, fmt.Errorf("reactor: fetch firmware: %w", err)
		}

		chunkLen := min(uint32(len(firmware))-offset, mtu)
		if r.tracker != nil {
			r.tracker.Observe(device, devicestate.PhaseDownloading)
		}
		return &wire.Write{
			Version:            md.Version,
			CorrelationIDValue: status.CorrelationID,
			Offset:             offset,
			Data:               firmware[offset : offset+chunkLen],
		}, nil
	}

	checksum, err := decodeChecksum(md.Checksum)
	if err != nil {
		return nil, fmt.Errorf("reactor: decode checksum %q: %w", md.Checksum, err)
	}
	if r.tracker != nil {
		r.tracker.Observe(device, devicestate.PhaseSwapping)
	}
	return &wire.Swap{
		Version:            md.Version,
		CorrelationIDValue: status.CorrelationID,
		Checksum:           wire.PadChecksum(checksum),
	}, nil
}

// decodeChecksum strips an optional "sha256:" prefix and hex-decodes the
// remainder.
func decodeChecksum(checksum string) ([]byte, error) {
	checksum = strings.TrimPrefix(checksum, "sha256:")
	return hex.DecodeString(checksum)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toUint32Ptr(seconds *int) *uint32 {
	if seconds == nil {
		return nil
	}
	v := uint32(*seconds)
	return &v
}

func min(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
