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

// Package coordinator wires the update coordinator's store backends,
// resolver, reactor and bus adapter into one runnable Server, the way the
// teacher's internal/hub.Config/NewHubServer wires its own daemon from
// options.
package coordinator

import (
	"context"
	"fmt"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/bus"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/devicestate"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/health"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/reactor"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/resolver"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/server"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store/file"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store/hawkbit"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/store/registry"
	"github.com/cloupeer-io/fleetdfu/internal/registryclient"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/mqtt"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// Config bundles the options a coordinator run needs to build its store
// backends, reactor, bus adapter and liveness surface.
type Config struct {
	RegistryOptions *options.RegistryOptions
	OCIOptions      *options.OCIOptions
	HawkbitOptions  *options.HawkbitOptions
	FileOptions     *options.FileOptions
	S3Options       *options.S3Options
	MqttOptions     *options.MqttOptions
	HealthOptions   *options.HealthOptions
}

// Server runs the coordinator's bus adapter and, unless disabled, its
// liveness surface.
type Server struct {
	manager *server.Manager
}

// NewCoordinatorServer resolves the application set this coordinator owns,
// builds whichever store backends Config enables, and wires the resolver,
// reactor and bus adapter on top of them.
func (c *Config) NewCoordinatorServer(ctx context.Context) (*Server, error) {
	registryClient := registryclient.New(c.RegistryOptions)

	backends, err := c.buildBackends()
	if err != nil {
		return nil, err
	}

	res := resolver.New(registryClient)
	tracker := devicestate.NewTracker()
	react := reactor.New(res, backends, tracker)

	applications, err := c.resolveApplications(ctx, registryClient)
	if err != nil {
		return nil, fmt.Errorf("coordinator: resolve applications: %w", err)
	}

	mqttClient, err := mqtt.NewClient(c.MqttOptions.ToClientConfig())
	if err != nil {
		return nil, fmt.Errorf("coordinator: create mqtt client: %w", err)
	}

	busAdapter := bus.New(mqttClient, react, applications, c.MqttOptions.GroupID, 0)

	servers := []server.Server{busAdapter}
	if h := health.NewServer(c.HealthOptions); h != nil {
		servers = append(servers, h)
	}

	return &Server{manager: server.NewManager(servers...)}, nil
}

// Run blocks until ctx is cancelled or a sub-server fails.
func (s *Server) Run(ctx context.Context) error {
	return s.manager.Start(ctx)
}

func (c *Config) buildBackends() (store.Backends, error) {
	var backends store.Backends

	if c.OCIOptions.Enable {
		backend, err := registry.New(c.OCIOptions)
		if err != nil {
			return backends, fmt.Errorf("coordinator: oci backend: %w", err)
		}
		backends.Registry = backend
	}

	if c.HawkbitOptions.Enable {
		backends.Hawkbit = hawkbit.New(c.HawkbitOptions)
	}

	if c.FileOptions.Enable {
		if c.FileOptions.UseS3 {
			backend, err := file.NewS3(c.S3Options)
			if err != nil {
				return backends, fmt.Errorf("coordinator: s3 backend: %w", err)
			}
			backends.File = backend
		} else {
			backends.File = file.New(c.FileOptions)
		}
	}

	return backends, nil
}

// resolveApplications returns the fixed application set the bus adapter
// subscribes to for the lifetime of this process: the single configured
// application, or every application the registry reports minus the
// exclude list.
func (c *Config) resolveApplications(ctx context.Context, registryClient *registryclient.Client) ([]string, error) {
	if c.RegistryOptions.Application != "" {
		return []string{c.RegistryOptions.Application}, nil
	}

	all, err := registryClient.Applications(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(c.RegistryOptions.ExcludeApplications))
	for _, app := range c.RegistryOptions.ExcludeApplications {
		excluded[app] = true
	}

	applications := make([]string, 0, len(all))
	for _, app := range all {
		if !excluded[app] {
			applications = append(applications, app)
		}
	}

	log.Info("coordinator: resolved application set", "count", len(applications))
	return applications, nil
}
