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

// Package buildapi is the authenticated control-plane surface spec.md §4.6
// names: it accepts a trigger request, consults the registry for a
// declarative build spec, and materialises a Tekton PipelineRun in the
// workload orchestrator. Routed with gorilla/mux, a teacher go.mod
// dependency never imported by teacher code until now.
package buildapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// Server is the build-trigger API's Manager-compatible HTTP sub-server.
type Server struct {
	httpServer *http.Server
}

// NewServer constructs the build-trigger API, resolving requests against
// the registry client factory and the Tekton client for the configured
// namespace.
func NewServer(addr, namespace string, kubeClient client.Client, registryOpts *options.RegistryOptions, orchOpts *options.OrchestratorOptions, buildOpts *options.BuildAPIOptions) *Server {
	allowed := make(map[string]bool, len(buildOpts.AllowedApplications))
	for _, app := range buildOpts.AllowedApplications {
		allowed[app] = true
	}

	h := &handler{
		registry:     registryclient.New(registryOpts),
		orchestrator: newOrchestrator(kubeClient, namespace, orchOpts),
		allowed:      allowed,
	}

	const base = "/api/build/v1alpha1"
	router := mux.NewRouter()
	router.Use(bearerTokenMiddleware)
	router.HandleFunc(base, h.list).Methods(http.MethodGet)
	router.HandleFunc(base+"/apps/{app}/trigger", h.triggerApp).Methods(http.MethodPost)
	router.HandleFunc(base+"/apps/{app}/devices/{dev}/trigger", h.triggerDevice).Methods(http.MethodPost)

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
	}
}

// Start implements the Manager's Server interface.
func (s *Server) Start(ctx context.Context) error {
	log.Info("buildapi: starting HTTP server", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// contextKey namespaces values this package stores in a request context.
type contextKey int

const bearerTokenKey contextKey = iota

// bearerTokenMiddleware extracts the caller's bearer token and stashes it
// in the request context; it does not itself reject a missing token, since
// an unauthenticated GET (listing) is allowed to degrade to an empty
// registry view just like an authenticated one would for an unknown user.
func bearerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		ctx := context.WithValue(r.Context(), bearerTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey).(string)
	return token
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}
