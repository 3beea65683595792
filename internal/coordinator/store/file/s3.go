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

package file

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

var _ store.UpdateStore = (*S3Backend)(nil)

// S3Backend is the FileOptions.UseS3 variant of the local-disk backend: the
// same "<name>.json" / "<name>.bin" object-naming convention, read through
// an S3-compatible bucket instead of the local filesystem.
type S3Backend struct {
	client     *minio.Client
	bucketName string
}

// NewS3 constructs the S3-backed file backend from the shared S3Options.
func NewS3(opts *options.S3Options) (*S3Backend, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.UseSSL},
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("file/s3: create minio client: %w", err)
	}
	return &S3Backend{client: client, bucketName: opts.BucketName}, nil
}

// FetchMetadata reads the "<name>.json" object. A missing object is reported
// as metadata absent, not an error.
func (b *S3Backend) FetchMetadata(ctx context.Context, params store.Params) (store.Context, *store.Metadata, error) {
	spec := params.Spec.File
	if spec == nil {
		return nil, nil, fmt.Errorf("file/s3: params carry no file spec")
	}

	obj, err := b.client.GetObject(ctx, b.bucketName, manifestKey(spec.Name), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("file/s3: open manifest object for %q: %w", spec.Name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("file/s3: read manifest object for %q: %w", spec.Name, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("file/s3: parse manifest for %q: %w", spec.Name, err)
	}

	stat, err := b.client.StatObject(ctx, b.bucketName, artifactKey(spec.Name), minio.StatObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("file/s3: stat artifact object for %q: %w", spec.Name, err)
	}

	return spec.Name, &store.Metadata{
		Version:  []byte(m.Version),
		Checksum: m.Checksum,
		Size:     uint32(stat.Size),
	}, nil
}

// FetchFirmware reads the "<name>.bin" object whole.
func (b *S3Backend) FetchFirmware(ctx context.Context, params store.Params, storeCtx store.Context, md *store.Metadata) ([]byte, error) {
	name, ok := storeCtx.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("file/s3: fetch firmware called without a resolved name")
	}

	obj, err := b.client.GetObject(ctx, b.bucketName, artifactKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("file/s3: open artifact object for %q: %w", name, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("file/s3: read artifact object for %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

// UpdateProgress is a no-op: S3 has no progress sink distinct from the
// object itself.
func (b *S3Backend) UpdateProgress(ctx context.Context, params store.Params, storeCtx store.Context, offset, size uint32) {
	log.Debug("file/s3: progress", "application", params.Application, "device", params.Device, "offset", offset, "size", size)
}

// MarkSynced is a no-op for the same reason.
func (b *S3Backend) MarkSynced(ctx context.Context, params store.Params, storeCtx store.Context, success bool) {
	log.Debug("file/s3: synced", "application", params.Application, "device", params.Device, "success", success)
}

// Backoff returns nil: S3 has no server-driven polling hint.
func (b *S3Backend) Backoff(storeCtx store.Context) *int {
	return nil
}

func manifestKey(name string) string {
	return name + ".json"
}

func artifactKey(name string) string {
	return name + ".bin"
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}
