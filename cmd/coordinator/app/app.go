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

package app

import (
	"context"
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/cloupeer-io/fleetdfu/cmd/coordinator/app/options"
	"github.com/cloupeer-io/fleetdfu/pkg/app"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
)

const (
	commandName = "fleetdfu-coordinator"
	commandDesc = `The fleetdfu coordinator subscribes to device firmware status events on
the message bus, resolves each device's declarative target firmware spec
against the device registry, and publishes the wire command that drives
the device one step closer to it.`
)

// NewApp builds the coordinator's command-line application.
func NewApp() *app.App {
	opts := options.NewCoordinatorOptions()
	return app.NewApp(
		commandName,
		"Launch the fleetdfu update coordinator",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithLoggerContextExtractor(map[string]func(context.Context) string{}),
	)
}

func run(opts *options.CoordinatorOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		srv, err := cfg.NewCoordinatorServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create coordinator server: %w", err)
		}

		return srv.Run(ctx)
	}
}
