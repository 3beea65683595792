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

package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/cloupeer-io/fleetdfu/internal/buildapi"
	"github.com/cloupeer-io/fleetdfu/pkg/app"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// BuildAPIServerOptions aggregates every flag group the build-trigger API
// binary exposes: its HTTP bind address, the Kubernetes namespace it
// submits PipelineRuns into, the registry client, the orchestrator
// defaults and the allow-list gate.
type BuildAPIServerOptions struct {
	HttpOptions         *options.HttpOptions         `json:"http" mapstructure:"http"`
	KubeOptions         *options.KubeOptions         `json:"kube" mapstructure:"kube"`
	RegistryOptions     *options.RegistryOptions     `json:"registry" mapstructure:"registry"`
	OrchestratorOptions *options.OrchestratorOptions `json:"orchestrator" mapstructure:"orchestrator"`
	TriggerOptions      *options.BuildAPIOptions     `json:"trigger" mapstructure:"trigger"`
	HealthOptions       *options.HealthOptions       `json:"health" mapstructure:"health"`
	Log                 *log.Options                 `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*BuildAPIServerOptions)(nil)

// NewBuildAPIServerOptions creates a BuildAPIServerOptions with every
// sub-option group at its default values.
func NewBuildAPIServerOptions() *BuildAPIServerOptions {
	return &BuildAPIServerOptions{
		HttpOptions:         options.NewHttpOptions(),
		KubeOptions:         options.NewKubeOptions(),
		RegistryOptions:     options.NewRegistryOptions(),
		OrchestratorOptions: options.NewOrchestratorOptions(),
		TriggerOptions:      options.NewBuildAPIOptions(),
		HealthOptions:       options.NewHealthOptions(),
		Log:                 log.NewOptions(),
	}
}

func (o *BuildAPIServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.KubeOptions.AddFlags(fss.FlagSet("kube"))
	o.RegistryOptions.AddFlags(fss.FlagSet("registry"))
	o.OrchestratorOptions.AddFlags(fss.FlagSet("orchestrator"))
	o.TriggerOptions.AddFlags(fss.FlagSet("trigger"))
	o.HealthOptions.AddFlags(fss.FlagSet("health"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *BuildAPIServerOptions) Complete() error {
	return nil
}

func (o *BuildAPIServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.KubeOptions.Validate()...)
	errs = append(errs, o.RegistryOptions.Validate()...)
	errs = append(errs, o.OrchestratorOptions.Validate()...)
	errs = append(errs, o.TriggerOptions.Validate()...)
	errs = append(errs, o.HealthOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Config translates the validated options into the buildapi package's
// runtime configuration.
func (o *BuildAPIServerOptions) Config() (*buildapi.Config, error) {
	return &buildapi.Config{
		HttpOptions:         o.HttpOptions,
		KubeOptions:         o.KubeOptions,
		RegistryOptions:     o.RegistryOptions,
		OrchestratorOptions: o.OrchestratorOptions,
		TriggerOptions:      o.TriggerOptions,
		HealthOptions:       o.HealthOptions,
	}, nil
}
