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

// Package server composes the coordinator's sub-servers (bus adapter,
// health surface) the way the teacher's internal/cloudhub/server/manager.go
// composes its own mqtt/grpc/http trio: one errgroup, first failure tears
// everything down.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cloupeer-io/fleetdfu/pkg/log"
)

// Server is implemented by every sub-server a Manager composes.
type Server interface {
	Start(ctx context.Context) error
}

// Manager runs a fixed set of sub-servers in parallel and waits for all of
// them, or the first failure, whichever comes first.
type Manager struct {
	servers []Server
}

// NewManager builds a Manager over the given sub-servers. Callers must
// filter out a disabled sub-server (e.g. health.NewServer returning nil for
// --disable-health) before calling this: a typed nil wrapped in the Server
// interface is not itself nil, so it cannot be filtered here.
func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Start launches every sub-server and blocks until ctx is cancelled or one
// of them returns an error.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		srv := s
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("server: all sub-servers starting")
	return g.Wait()
}
