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

// Package store defines the UpdateStore capability every firmware backend
// implements (Registry/Hawkbit/File), plus the declarative spec and
// metadata shapes those backends resolve against.
package store

import "context"

// OCIPullPolicy governs whether the registry backend trusts a cached
// metadata entry or always re-resolves the image reference.
type OCIPullPolicy string

const (
	PullAlways       OCIPullPolicy = "Always"
	PullIfNotPresent OCIPullPolicy = "IfNotPresent"
)

// BuildSource names the git repository a build-triggered image is compiled
// from.
type BuildSource struct {
	URI     string
	Project string
	Rev     string
}

// EnvVar is a single environment variable passed to a triggered build.
type EnvVar struct {
	Name  string
	Value string
}

// BuildSpec is the declarative description of the build-trigger API's
// triggerable pipeline for an OCI-backed firmware spec.
type BuildSpec struct {
	Source       BuildSource
	Image        string // builder image, optional
	Env          []EnvVar
	Args         []string
	Timeout      string // duration string, e.g. "1h0m0s"; default applied by caller
	ArtifactPath string
}

// OCISpec selects the container-registry store backend.
type OCISpec struct {
	Image      string
	PullPolicy OCIPullPolicy
	Build      *BuildSpec
}

// HawkbitSpec selects the hawkBit-style DDI store backend.
type HawkbitSpec struct {
	ControllerID string
}

// FileSpec selects the local-disk/S3 store backend.
type FileSpec struct {
	Name string
}

// FirmwareSpec is the declarative description of what firmware a device (or
// an application, before device-level override) should be running. Exactly
// one of OCI, Hawkbit or File is set.
type FirmwareSpec struct {
	OCI     *OCISpec
	Hawkbit *HawkbitSpec
	File    *FileSpec
}

// Metadata describes a resolved firmware artifact: its opaque version
// identifier, a checksum (optionally "sha256:"-prefixed hex), and its size
// in bytes.
type Metadata struct {
	Version  []byte
	Checksum string
	Size     uint32
}

// Context is backend-private bookkeeping returned by FetchMetadata and
// threaded back into subsequent calls about the same transaction (e.g. a
// resolved image reference, or a hawkBit deployment handle).
type Context any

// Params identifies the (application, device, spec) a store call concerns.
type Params struct {
	Application string
	Device      string
	Spec        *FirmwareSpec
}

// UpdateStore is the capability every firmware backend implements.
// FetchMetadata returning a nil Metadata (with a nil error) means "no
// artifact yet, try again later"; the reactor then asks Backoff for a poll
// interval.
type UpdateStore interface {
	// FetchMetadata resolves params to metadata describing the target
	// artifact, or (ctx, nil, nil) if none is available yet.
	FetchMetadata(ctx context.Context, params Params) (Context, *Metadata, error)

	// FetchFirmware returns the entire artifact. Implementations cache;
	// callers slice the result into MTU-sized chunks.
	FetchFirmware(ctx context.Context, params Params, storeCtx Context, md *Metadata) ([]byte, error)

	// UpdateProgress optionally reports transfer progress to the backend.
	UpdateProgress(ctx context.Context, params Params, storeCtx Context, offset, size uint32)

	// MarkSynced gives terminal feedback once a device reports (or is
	// already at) the target version.
	MarkSynced(ctx context.Context, params Params, storeCtx Context, success bool)

	// Backoff advises a Wait poll interval, in seconds, when metadata was
	// absent. Returns nil when the backend has no opinion.
	Backoff(storeCtx Context) *int
}
