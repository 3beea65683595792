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

// Package resolver merges device-level and application-level firmware
// specs and writes the reactor's decisions back into the device registry as
// a FirmwareStatus. It is a thin client over internal/registryclient;
// registry errors are logged, never fatal to the reactor.
package resolver

import (
	"context"
	"fmt"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/wire"
)

// Resolver resolves (application, device) to an effective FirmwareSpec and
// writes decision outcomes back to the registry.
type Resolver struct {
	registry *registryclient.Client
}

// New constructs a Resolver over the given registry client.
func New(registry *registryclient.Client) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the effective firmware spec for a device: the
// device-level spec if one is set, otherwise the application-level spec,
// otherwise nil.
func (r *Resolver) Resolve(ctx context.Context, application, device string) (*store.FirmwareSpec, error) {
	deviceSpec, err := r.registry.DeviceSpec(ctx, application, device)
	if err != nil {
		return nil, fmt.Errorf("resolver: fetch device spec: %w", err)
	}
	if deviceSpec != nil {
		return deviceSpec, nil
	}

	appSpec, err := r.registry.ApplicationSpec(ctx, application)
	if err != nil {
		return nil, fmt.Errorf("resolver: fetch application spec: %w", err)
	}
	return appSpec, nil
}

// UpdateStatus merges the outcome of one reactor decision into the
// device's FirmwareStatus and writes it back. Write failures are logged,
// never returned: the registry status is advisory, not load-bearing
// (spec.md §4.3/§7).
func (r *Resolver) UpdateStatus(ctx context.Context, application, device string, status *wire.Status, metadata *store.Metadata, fetchErr error) {
	fs := mergeStatus(status, metadata, fetchErr)
	if err := r.registry.WriteFirmwareStatus(ctx, application, device, fs); err != nil {
		log.Warn("resolver: failed to write firmware status", "application", application, "device", device, "err", err.Error())
	}
}

// mergeStatus implements the merge rules of spec.md §4.3.
func mergeStatus(status *wire.Status, metadata *store.Metadata, fetchErr error) *registryclient.FirmwareStatus {
	if fetchErr != nil {
		return &registryclient.FirmwareStatus{
			Current: string(status.Version),
			Target:  "Unknown",
			Conditions: []registryclient.Condition{{
				Type:    registryclient.ConditionInSync,
				Status:  false,
				Reason:  fetchErr.Error(),
				Message: "Error retrieving firmware metadata",
			}},
		}
	}

	fs := &registryclient.FirmwareStatus{
		Current: string(status.Version),
		Target:  string(metadata.Version),
	}

	if bytesEqual(status.Version, metadata.Version) {
		fs.Conditions = []registryclient.Condition{{
			Type:   registryclient.ConditionInSync,
			Status: true,
		}}
		return fs
	}

	conditions := []registryclient.Condition{{
		Type:   registryclient.ConditionInSync,
		Status: false,
	}}
	if status.Update != nil {
		progress := 100 * float64(status.Update.Offset) / float64(metadata.Size)
		conditions = append(conditions, registryclient.Condition{
			Type:    registryclient.ConditionUpdateProgress,
			Status:  true,
			Message: fmt.Sprintf("%.2f", progress),
		})
	}
	fs.Conditions = conditions
	return fs
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
