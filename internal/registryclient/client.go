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

// Package registryclient is a thin REST client over the out-of-scope device
// registry collaborator: it owns per-application and per-device firmware
// specs plus each device's FirmwareStatus section, and is addressed here as
// a plain net/http + encoding/json client since no dedicated client library
// for it exists anywhere in the retrieval pack.
package registryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// errNotFound is returned by get when the registry responds 404, so callers
// for which absence is a legitimate outcome (a device with no spec override)
// can tell it apart from a real transport or server error.
var errNotFound = errors.New("registryclient: not found")

// Client talks to the device registry's REST API.
type Client struct {
	baseURL string
	token   string
	user    string
	http    *http.Client
}

// New constructs a Client from its options.
func New(opts *options.RegistryOptions) *Client {
	return &Client{
		baseURL: opts.URL,
		token:   opts.Token,
		user:    opts.User,
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

// deviceDoc is the registry's representation of one device, the portion
// this client reads and writes.
type deviceDoc struct {
	Application   string             `json:"application"`
	Device        string             `json:"device"`
	Spec          *store.FirmwareSpec `json:"spec,omitempty"`
	FirmwareStatus *FirmwareStatus   `json:"firmware_status,omitempty"`
}

// applicationDoc is the registry's representation of one application.
type applicationDoc struct {
	Application string              `json:"application"`
	Spec        *store.FirmwareSpec `json:"spec,omitempty"`
	Devices     []string            `json:"devices,omitempty"`
}

// Applications lists every application accessible to the client's token.
func (c *Client) Applications(ctx context.Context) ([]string, error) {
	var apps []applicationDoc
	if err := c.get(ctx, "/api/v1/applications", &apps); err != nil {
		return nil, fmt.Errorf("registryclient: list applications: %w", err)
	}
	names := make([]string, 0, len(apps))
	for _, a := range apps {
		names = append(names, a.Application)
	}
	return names, nil
}

// ApplicationSpec returns the declarative firmware spec for an application,
// or nil if the application has none configured.
func (c *Client) ApplicationSpec(ctx context.Context, application string) (*store.FirmwareSpec, error) {
	var doc applicationDoc
	if err := c.get(ctx, fmt.Sprintf("/api/v1/applications/%s", application), &doc); err != nil {
		return nil, fmt.Errorf("registryclient: get application %q: %w", application, err)
	}
	return doc.Spec, nil
}

// DeviceSpec returns the declarative firmware spec for a device, or nil if
// the device has none configured (the caller falls back to the
// application-level spec).
func (c *Client) DeviceSpec(ctx context.Context, application, device string) (*store.FirmwareSpec, error) {
	var doc deviceDoc
	if err := c.get(ctx, fmt.Sprintf("/api/v1/applications/%s/devices/%s", application, device), &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("registryclient: get device %q: %w", device, err)
	}
	return doc.Spec, nil
}

// WriteFirmwareStatus writes status back to the device's registry record.
func (c *Client) WriteFirmwareStatus(ctx context.Context, application, device string, status *FirmwareStatus) error {
	path := fmt.Sprintf("/api/v1/applications/%s/devices/%s/firmware_status", application, device)
	return c.put(ctx, path, status)
}

func (c *Client) authenticate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.user != "" {
		req.Header.Set("X-Registry-User", c.user)
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Timeout returns the configured per-call timeout, used by callers that
// need to apply the same deadline to a store fetch issued alongside a
// registry call.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// WithToken returns a shallow copy of the client that authenticates as the
// given bearer token instead of the one it was constructed with. The
// build-trigger API uses this to forward a caller's own token verbatim
// rather than minting requests under its own service identity.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}
