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

package buildapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
)

// handler implements the three build-trigger API operations spec.md §4.6
// names against a registry client and a Tekton orchestrator.
type handler struct {
	registry     *registryclient.Client
	orchestrator *orchestrator
	allowed      map[string]bool
}

// list handles GET /api/build/v1alpha1. A registry call failure is
// surfaced as a visible error rather than collapsed into an empty list,
// resolving the Open Question spec.md §9 raises about the original's
// ".unwrap_or(Vec::new())" pattern: hiding an outage behind an innocuous
// "no builds" response is worse for an operator-facing trigger surface
// than a loud failure. Runs are filtered to the applications the registry
// reports for the caller's token (the allow-list is not consulted here); a
// legitimately empty set of such applications renders as an empty list,
// which is a valid state.
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := h.registry.WithToken(tokenFromContext(ctx))

	apps, err := client.Applications(ctx)
	if err != nil {
		log.Error(err, "buildapi: listing applications failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "registry lookup failed"})
		return
	}

	records, err := h.orchestrator.list(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	known := make(map[string]bool, len(apps))
	for _, app := range apps {
		known[app] = true
	}
	filtered := make([]BuildRecord, 0, len(records))
	for _, rec := range records {
		if known[rec.Application] {
			filtered = append(filtered, rec)
		}
	}

	writeJSON(w, http.StatusOK, filtered)
}

// triggerApp handles POST /api/build/v1alpha1/apps/{app}/trigger.
func (h *handler) triggerApp(w http.ResponseWriter, r *http.Request) {
	app := mux.Vars(r)["app"]
	h.trigger(w, r, app, "")
}

// triggerDevice handles POST /api/build/v1alpha1/apps/{app}/devices/{dev}/trigger.
func (h *handler) triggerDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.trigger(w, r, vars["app"], vars["dev"])
}

// trigger is the shared implementation behind both trigger endpoints,
// following the five steps spec.md §4.6 enumerates: read the spec, require
// a build section, compose the deterministic job name, materialise labels
// and params, submit.
func (h *handler) trigger(w http.ResponseWriter, r *http.Request, app, device string) {
	ctx := r.Context()

	token := tokenFromContext(ctx)
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing bearer token"})
		return
	}

	if !h.allowed[app] {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "application not allow-listed for build triggering"})
		return
	}

	client := h.registry.WithToken(token)

	spec, err := resolveSpec(ctx, client, app, device)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if spec == nil || spec.OCI == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "firmware spec is not OCI-backed, build triggering unsupported"})
		return
	}
	if spec.OCI.Build == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "spec has no build section"})
		return
	}

	if err := h.orchestrator.trigger(ctx, app, device, spec.OCI.Image, spec.OCI.Build); err != nil {
		log.Error(err, "buildapi: trigger submission failed", "application", app, "device", device)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "orchestrator submission failed"})
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

// resolveSpec reads the declarative spec from the registry, preferring the
// device-level override over the application-level spec.
func resolveSpec(ctx context.Context, client *registryclient.Client, app, device string) (*store.FirmwareSpec, error) {
	if device != "" {
		spec, err := client.DeviceSpec(ctx, app, device)
		if err != nil {
			return nil, err
		}
		if spec != nil {
			return spec, nil
		}
	}
	return client.ApplicationSpec(ctx, app)
}
