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

// Package file implements the simplest firmware store backend: a named
// firmware resolves to "<dir>/<name>.json" for metadata and
// "<dir>/<name>.bin" for the artifact, read straight off local disk. No
// cache sits in front of it; local reads are already cheap, and a change to
// either file on disk must be observed on the very next poll.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

var _ store.UpdateStore = (*Backend)(nil)

// Backend resolves firmware specs against a local directory tree.
type Backend struct {
	dir string
}

// New constructs the local-disk backend from its options.
func New(opts *options.FileOptions) *Backend {
	return &Backend{dir: opts.Dir}
}

type manifest struct {
	Version  string `json:"version"`
	Checksum string `json:"checksum"`
}

// FetchMetadata reads "<dir>/<name>.json". A missing manifest is reported as
// metadata absent, not an error: the firmware simply has not been staged
// yet.
func (b *Backend) FetchMetadata(ctx context.Context, params store.Params) (store.Context, *store.Metadata, error) {
	spec := params.Spec.File
	if spec == nil {
		return nil, nil, fmt.Errorf("file: params carry no file spec")
	}

	data, err := os.ReadFile(b.manifestPath(spec.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("file: read manifest for %q: %w", spec.Name, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("file: parse manifest for %q: %w", spec.Name, err)
	}

	info, err := os.Stat(b.artifactPath(spec.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("file: stat artifact for %q: %w", spec.Name, err)
	}

	return spec.Name, &store.Metadata{
		Version:  []byte(m.Version),
		Checksum: m.Checksum,
		Size:     uint32(info.Size()),
	}, nil
}

// FetchFirmware reads "<dir>/<name>.bin" whole.
func (b *Backend) FetchFirmware(ctx context.Context, params store.Params, storeCtx store.Context, md *store.Metadata) ([]byte, error) {
	name, ok := storeCtx.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("file: fetch firmware called without a resolved name")
	}
	data, err := os.ReadFile(b.artifactPath(name))
	if err != nil {
		return nil, fmt.Errorf("file: read artifact for %q: %w", name, err)
	}
	return data, nil
}

// UpdateProgress is a no-op: the local filesystem has no progress sink.
func (b *Backend) UpdateProgress(ctx context.Context, params store.Params, storeCtx store.Context, offset, size uint32) {
	log.Debug("file: progress", "application", params.Application, "device", params.Device, "offset", offset, "size", size)
}

// MarkSynced is a no-op for the same reason.
func (b *Backend) MarkSynced(ctx context.Context, params store.Params, storeCtx store.Context, success bool) {
	log.Debug("file: synced", "application", params.Application, "device", params.Device, "success", success)
}

// Backoff returns nil: the local backend has no server-driven polling hint.
func (b *Backend) Backoff(storeCtx store.Context) *int {
	return nil
}

func (b *Backend) manifestPath(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *Backend) artifactPath(name string) string {
	return filepath.Join(b.dir, name+".bin")
}
