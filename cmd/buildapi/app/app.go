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

	"github.com/cloupeer-io/fleetdfu/cmd/buildapi/app/options"
	"github.com/cloupeer-io/fleetdfu/pkg/app"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
)

const (
	commandName = "fleetdfu-buildapi"
	commandDesc = `The fleetdfu build-trigger API accepts authenticated build-trigger
requests for an application or device, checks the target application
against its allow-list, reads the build spec from the device registry,
and submits a Tekton PipelineRun that builds and publishes the firmware
image the coordinator will later roll out.`
)

// NewApp builds the build-trigger API's command-line application.
func NewApp() *app.App {
	opts := options.NewBuildAPIServerOptions()
	return app.NewApp(
		commandName,
		"Launch the fleetdfu build-trigger API",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithLoggerContextExtractor(map[string]func(context.Context) string{}),
	)
}

func run(opts *options.BuildAPIServerOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		mgr, err := cfg.NewServerManager()
		if err != nil {
			return fmt.Errorf("failed to create build-trigger server: %w", err)
		}

		return mgr.Start(ctx)
	}
}
