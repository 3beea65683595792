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

// Package registry implements the container-registry firmware store
// backend: firmware images are resolved as OCI artifacts, tag -> manifest
// -> the sole octet-stream layer's digest and size.
package registry

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store/cache"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// octetStreamMediaType is the media type of the single binary-artifact
// layer a firmware image manifest carries.
const octetStreamMediaType = "application/octet-stream"

// defaultBackoffSeconds is advised when an image reference cannot be
// resolved at all (no registry-side backoff signal exists for this
// backend, unlike hawkBit's polling.sleep).
const defaultBackoffSeconds = 30

var _ store.UpdateStore = (*Backend)(nil)

// Backend resolves firmware specs against an OCI-compliant registry.
type Backend struct {
	prefix   string
	auth     authn.Authenticator
	insecure bool
	verifyTLS bool

	metaCache  *cache.Cache[string, store.Metadata]
	bytesCache *cache.Cache[string, []byte]
}

// New constructs the registry backend from its options.
func New(opts *options.OCIOptions) (*Backend, error) {
	metaCache, err := cache.New[string, store.Metadata](opts.CacheEntriesMax, opts.CacheExpiry)
	if err != nil {
		return nil, fmt.Errorf("registry: metadata cache: %w", err)
	}
	bytesCache, err := cache.New[string, []byte](opts.CacheEntriesMax, opts.CacheExpiry)
	if err != nil {
		return nil, fmt.Errorf("registry: bytes cache: %w", err)
	}

	auth := authn.Anonymous
	if opts.User != "" {
		auth = &authn.Basic{Username: opts.User, Password: opts.Token}
	}

	return &Backend{
		prefix:     opts.Prefix,
		auth:       auth,
		insecure:   opts.Insecure,
		verifyTLS:  opts.TLS,
		metaCache:  metaCache,
		bytesCache: bytesCache,
	}, nil
}

// fetchContext carries the resolved image reference between FetchMetadata
// and FetchFirmware for one device/application transaction.
type fetchContext struct {
	ref name.Reference
}

// resolveRef joins the configured prefix with an application/device
// supplied image reference.
func (b *Backend) resolveRef(image string) string {
	if b.prefix == "" {
		return image
	}
	return path.Join(b.prefix, image)
}

func (b *Backend) nameOptions() []name.Option {
	if b.insecure {
		return []name.Option{name.Insecure, name.WeakValidation}
	}
	return []name.Option{name.WeakValidation}
}

func (b *Backend) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx), remote.WithAuth(b.auth)}
	if !b.verifyTLS {
		transport := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		opts = append(opts, remote.WithTransport(transport))
	}
	return opts
}

// FetchMetadata resolves imageRef to the layer describing the firmware
// artifact. A pull policy of IfNotPresent consults the metadata cache
// first; Always bypasses it but still refreshes the cache afterward.
func (b *Backend) FetchMetadata(ctx context.Context, params store.Params) (store.Context, *store.Metadata, error) {
	spec := params.Spec.OCI
	if spec == nil {
		return nil, nil, fmt.Errorf("registry: params carry no OCI spec")
	}
	imageRef := b.resolveRef(spec.Image)

	if spec.PullPolicy != store.PullAlways {
		if md, ok := b.metaCache.Get(imageRef); ok {
			ref, err := name.ParseReference(imageRef, b.nameOptions()...)
			if err != nil {
				return nil, nil, fmt.Errorf("registry: parse cached image reference %q: %w", imageRef, err)
			}
			return &fetchContext{ref: ref}, &md, nil
		}
	}

	ref, err := name.ParseReference(imageRef, b.nameOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: parse image reference %q: %w", imageRef, err)
	}

	img, err := remote.Image(ref, b.remoteOptions(ctx)...)
	if err != nil {
		if isNotFound(err) {
			log.Debug("registry: image not yet available", "image", imageRef)
			return &fetchContext{ref: ref}, nil, nil
		}
		return nil, nil, fmt.Errorf("registry: fetch image %q: %w", imageRef, err)
	}

	manifest, err := img.Manifest()
	if err != nil {
		return nil, nil, fmt.Errorf("registry: read manifest for %q: %w", imageRef, err)
	}

	layer := firmwareLayer(manifest)
	if layer == nil {
		return nil, nil, fmt.Errorf("registry: image %q has no %s layer", imageRef, octetStreamMediaType)
	}

	md := store.Metadata{
		Version:  []byte(versionOf(ref)),
		Checksum: layer.Digest.String(),
		Size:     uint32(layer.Size),
	}
	b.metaCache.Set(imageRef, md)

	return &fetchContext{ref: ref}, &md, nil
}

func firmwareLayer(manifest *v1.Manifest) *v1.Descriptor {
	for i := range manifest.Layers {
		if string(manifest.Layers[i].MediaType) == octetStreamMediaType {
			return &manifest.Layers[i]
		}
	}
	return nil
}

func versionOf(ref name.Reference) string {
	if tag, ok := ref.(name.Tag); ok {
		return tag.TagStr()
	}
	return ref.Identifier()
}

// FetchFirmware pulls the firmware blob by digest, caching it by checksum.
// The layer is application/octet-stream, not a gzip tarball, so the
// as-stored bytes come from Compressed, not Uncompressed: md.Checksum
// addresses exactly what the registry holds.
func (b *Backend) FetchFirmware(ctx context.Context, params store.Params, storeCtx store.Context, md *store.Metadata) ([]byte, error) {
	if cached, ok := b.bytesCache.Get(md.Checksum); ok {
		return cached, nil
	}

	fc, ok := storeCtx.(*fetchContext)
	if !ok || fc == nil {
		return nil, fmt.Errorf("registry: fetch firmware called without a resolved image reference")
	}

	img, err := remote.Image(fc.ref, b.remoteOptions(ctx)...)
	if err != nil {
		return nil, fmt.Errorf("registry: re-fetch image %q: %w", fc.ref, err)
	}

	digest, err := v1.NewHash(md.Checksum)
	if err != nil {
		return nil, fmt.Errorf("registry: parse checksum %q: %w", md.Checksum, err)
	}

	layer, err := img.LayerByDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("registry: resolve layer %s: %w", digest, err)
	}

	rc, err := layer.Compressed()
	if err != nil {
		return nil, fmt.Errorf("registry: open layer %s: %w", digest, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("registry: read layer %s: %w", digest, err)
	}

	b.bytesCache.Set(md.Checksum, data)
	return data, nil
}

// UpdateProgress is a no-op: the registry backend exposes no telemetry
// endpoint distinct from the registry-client status write-back the
// resolver already performs.
func (b *Backend) UpdateProgress(ctx context.Context, params store.Params, storeCtx store.Context, offset, size uint32) {
	log.Debug("registry: progress", "application", params.Application, "device", params.Device, "offset", offset, "size", size)
}

// MarkSynced is a no-op for the same reason as UpdateProgress.
func (b *Backend) MarkSynced(ctx context.Context, params store.Params, storeCtx store.Context, success bool) {
	log.Debug("registry: synced", "application", params.Application, "device", params.Device, "success", success)
}

// Backoff advises a fixed interval: the registry has no server-driven
// polling hint the way hawkBit does.
func (b *Backend) Backoff(storeCtx store.Context) *int {
	seconds := defaultBackoffSeconds
	return &seconds
}

// isNotFound reports whether err looks like a registry 404, used to treat
// "image not pushed yet" as the store contract's "metadata absent" case
// rather than a hard error.
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "MANIFEST_UNKNOWN") || strings.Contains(err.Error(), "404")
}
