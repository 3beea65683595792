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

// Package hawkbit implements the Eclipse hawkBit-style DDI firmware store
// backend: deploymentBase link discovery, feedback POSTs, and the
// polling.sleep backoff hint. No hawkBit client library exists anywhere in
// the retrieval pack, so this talks DDI directly over net/http.
package hawkbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

var _ store.UpdateStore = (*Backend)(nil)

// Backend polls a hawkBit DDI API for deployments.
type Backend struct {
	baseURL      string
	tenant       string
	gatewayToken string
	client       *http.Client
}

// New constructs the hawkBit backend from its options.
func New(opts *options.HawkbitOptions) *Backend {
	return &Backend{
		baseURL:      strings.TrimSuffix(opts.URL, "/"),
		tenant:       opts.Tenant,
		gatewayToken: opts.GatewayToken,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// fetchContext carries the hawkBit deployment handle between FetchMetadata
// and the MarkSynced feedback POST, plus whatever backoff the controller
// poll reported.
type fetchContext struct {
	deploymentID   string
	downloadURL    string
	backoffSeconds *int
}

func (b *Backend) controllerURL(controllerID string) string {
	return fmt.Sprintf("%s/%s/controller/v1/%s", b.baseURL, b.tenant, controllerID)
}

type pollResponse struct {
	Config struct {
		Polling struct {
			Sleep string `json:"sleep"`
		} `json:"polling"`
	} `json:"config"`
	Links struct {
		DeploymentBase *struct {
			Href string `json:"href"`
		} `json:"deploymentBase"`
	} `json:"_links"`
}

type deploymentResponse struct {
	ID         string `json:"id"`
	Deployment struct {
		Chunks []struct {
			Version   string `json:"version"`
			Artifacts []struct {
				Size     int64  `json:"size"`
				Filename string `json:"filename"`
				Hashes   struct {
					SHA256 string `json:"sha256"`
				} `json:"hashes"`
				Links struct {
					Download struct {
						Href string `json:"href"`
					} `json:"download"`
				} `json:"_links"`
			} `json:"artifacts"`
		} `json:"chunks"`
	} `json:"deployment"`
}

// FetchMetadata polls the controller resource for controllerID. If no
// deploymentBase link is present, metadata is absent and the backoff is
// derived from the server-supplied polling.sleep field.
func (b *Backend) FetchMetadata(ctx context.Context, params store.Params) (store.Context, *store.Metadata, error) {
	spec := params.Spec.Hawkbit
	if spec == nil {
		return nil, nil, fmt.Errorf("hawkbit: params carry no hawkBit spec")
	}

	var poll pollResponse
	if err := b.getJSON(ctx, b.controllerURL(spec.ControllerID), &poll); err != nil {
		return nil, nil, fmt.Errorf("hawkbit: poll controller %q: %w", spec.ControllerID, err)
	}

	if poll.Links.DeploymentBase == nil {
		backoff, err := parsePollingSleep(poll.Config.Polling.Sleep)
		if err != nil {
			log.Warn("hawkbit: could not parse polling.sleep, leaving backoff unset", "controller_id", spec.ControllerID, "err", err.Error())
			return &fetchContext{}, nil, nil
		}
		return &fetchContext{backoffSeconds: &backoff}, nil, nil
	}

	var dep deploymentResponse
	if err := b.getJSON(ctx, poll.Links.DeploymentBase.Href, &dep); err != nil {
		return nil, nil, fmt.Errorf("hawkbit: fetch deployment base: %w", err)
	}
	if len(dep.Deployment.Chunks) == 0 || len(dep.Deployment.Chunks[0].Artifacts) == 0 {
		return nil, nil, fmt.Errorf("hawkbit: deployment %q has no artifacts", dep.ID)
	}

	chunk := dep.Deployment.Chunks[0]
	artifact := chunk.Artifacts[0]
	md := &store.Metadata{
		Version:  []byte(chunk.Version),
		Checksum: artifact.Hashes.SHA256,
		Size:     uint32(artifact.Size),
	}

	return &fetchContext{deploymentID: dep.ID, downloadURL: artifact.Links.Download.Href}, md, nil
}

// FetchFirmware downloads the artifact from the URL resolved by
// FetchMetadata.
func (b *Backend) FetchFirmware(ctx context.Context, params store.Params, storeCtx store.Context, md *store.Metadata) ([]byte, error) {
	fc, ok := storeCtx.(*fetchContext)
	if !ok || fc == nil || fc.downloadURL == "" {
		return nil, fmt.Errorf("hawkbit: fetch firmware called without a resolved download URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("hawkbit: build download request: %w", err)
	}
	b.authenticate(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hawkbit: download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hawkbit: download artifact: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hawkbit: read artifact body: %w", err)
	}
	return data, nil
}

// UpdateProgress has no hawkBit DDI equivalent distinct from the feedback
// endpoint used by MarkSynced, so it only logs.
func (b *Backend) UpdateProgress(ctx context.Context, params store.Params, storeCtx store.Context, offset, size uint32) {
	log.Debug("hawkbit: progress", "application", params.Application, "device", params.Device, "offset", offset, "size", size)
}

// MarkSynced posts a feedback document closing out the deployment.
func (b *Backend) MarkSynced(ctx context.Context, params store.Params, storeCtx store.Context, success bool) {
	fc, ok := storeCtx.(*fetchContext)
	if !ok || fc == nil || fc.deploymentID == "" {
		return
	}

	result := "failed"
	if success {
		result = "success"
	}
	feedback := map[string]any{
		"id": fc.deploymentID,
		"status": map[string]any{
			"result":    map[string]any{"finished": result},
			"execution": "closed",
		},
	}
	body, err := json.Marshal(feedback)
	if err != nil {
		log.Error(err, "hawkbit: encode feedback document", "deployment_id", fc.deploymentID)
		return
	}

	spec := params.Spec.Hawkbit
	url := fmt.Sprintf("%s/feedback", b.controllerURL(spec.ControllerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error(err, "hawkbit: build feedback request", "deployment_id", fc.deploymentID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	b.authenticate(req)

	resp, err := b.client.Do(req)
	if err != nil {
		log.Error(err, "hawkbit: post feedback", "deployment_id", fc.deploymentID)
		return
	}
	defer resp.Body.Close()
}

// Backoff returns the poll interval derived from the controller's last
// polling.sleep response, if any.
func (b *Backend) Backoff(storeCtx store.Context) *int {
	fc, ok := storeCtx.(*fetchContext)
	if !ok || fc == nil {
		return nil
	}
	return fc.backoffSeconds
}

func (b *Backend) authenticate(req *http.Request) {
	if b.gatewayToken != "" {
		req.Header.Set("Authorization", "GatewayToken "+b.gatewayToken)
	}
}

func (b *Backend) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	b.authenticate(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parsePollingSleep strictly validates the hawkBit DDI "HH:MM:SS" dialect
// (hours:minutes:seconds) and returns the total in seconds. Anything other
// than exactly three integer fields is rejected. A "d:h:s" value from the
// dialect some other hawkBit forks use has the same shape and is read as
// hours:minutes:seconds (spec.md §9 Open Question, resolved in DESIGN.md).
func parsePollingSleep(sleep string) (int, error) {
	parts := strings.Split(sleep, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("hawkbit: polling.sleep %q is not in HH:MM:SS form", sleep)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("hawkbit: polling.sleep hours %q: %w", parts[0], err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("hawkbit: polling.sleep minutes %q: %w", parts[1], err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("hawkbit: polling.sleep seconds %q: %w", parts[2], err)
	}

	return hours*3600 + minutes*60 + seconds, nil
}
