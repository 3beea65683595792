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

// Package health serves the coordinator's and build-api's single liveness
// probe, patterned on the teacher's internal/cloudhub/server/http/server.go.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// Server is the Manager-compatible /healthz surface.
type Server struct {
	server *http.Server
}

// NewServer constructs the health Server from HealthOptions. It returns nil
// when the surface is disabled; callers must check for a nil Server before
// adding it to a Manager.
func NewServer(opts *options.HealthOptions) *Server {
	if opts.Disable {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	})

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", opts.Port),
			Handler: mux,
		},
	}
}

// Start implements the Manager's Server interface.
func (s *Server) Start(ctx context.Context) error {
	log.Info("health: starting liveness server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
