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

	"github.com/cloupeer-io/fleetdfu/internal/coordinator"
	"github.com/cloupeer-io/fleetdfu/pkg/app"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// CoordinatorOptions aggregates every flag group the coordinator binary
// exposes: the device registry client, the three firmware store backends,
// the message bus connection, and the liveness surface.
type CoordinatorOptions struct {
	RegistryOptions *options.RegistryOptions `json:"registry" mapstructure:"registry"`
	OCIOptions      *options.OCIOptions      `json:"oci" mapstructure:"oci"`
	HawkbitOptions  *options.HawkbitOptions  `json:"hawkbit" mapstructure:"hawkbit"`
	FileOptions     *options.FileOptions     `json:"file" mapstructure:"file"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	HealthOptions   *options.HealthOptions   `json:"health" mapstructure:"health"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*CoordinatorOptions)(nil)

// NewCoordinatorOptions creates a CoordinatorOptions with every sub-option
// group at its default values.
func NewCoordinatorOptions() *CoordinatorOptions {
	return &CoordinatorOptions{
		RegistryOptions: options.NewRegistryOptions(),
		OCIOptions:      options.NewOCIOptions(),
		HawkbitOptions:  options.NewHawkbitOptions(),
		FileOptions:     options.NewFileOptions(),
		S3Options:       options.NewS3Options(),
		MqttOptions:     options.NewMqttOptions(),
		HealthOptions:   options.NewHealthOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *CoordinatorOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.RegistryOptions.AddFlags(fss.FlagSet("registry"))
	o.OCIOptions.AddFlags(fss.FlagSet("oci"))
	o.HawkbitOptions.AddFlags(fss.FlagSet("hawkbit"))
	o.FileOptions.AddFlags(fss.FlagSet("file"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HealthOptions.AddFlags(fss.FlagSet("health"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *CoordinatorOptions) Complete() error {
	return nil
}

func (o *CoordinatorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.RegistryOptions.Validate()...)
	errs = append(errs, o.OCIOptions.Validate()...)
	errs = append(errs, o.HawkbitOptions.Validate()...)
	errs = append(errs, o.FileOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HealthOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Config translates the validated options into the coordinator package's
// runtime configuration.
func (o *CoordinatorOptions) Config() (*coordinator.Config, error) {
	return &coordinator.Config{
		RegistryOptions: o.RegistryOptions,
		OCIOptions:      o.OCIOptions,
		HawkbitOptions:  o.HawkbitOptions,
		FileOptions:     o.FileOptions,
		S3Options:       o.S3Options,
		MqttOptions:     o.MqttOptions,
		HealthOptions:   o.HealthOptions,
	}, nil
}
