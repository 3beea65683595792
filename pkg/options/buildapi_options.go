package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*BuildAPIOptions)(nil)

// BuildAPIOptions configures the build-trigger API's HTTP surface and its
// allow-list gate (spec.md §4.6/§6: namespace, allowed_applications).
type BuildAPIOptions struct {
	// AllowedApplications gates POST .../trigger: an application id not in
	// this list receives a Forbidden result. Empty means no application is
	// allow-listed (every trigger is refused), matching a fail-closed
	// default for a control-plane surface.
	AllowedApplications []string `json:"allowed-applications" mapstructure:"allowed-applications"`
}

// NewBuildAPIOptions creates a new BuildAPIOptions with default values.
func NewBuildAPIOptions() *BuildAPIOptions {
	return &BuildAPIOptions{}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *BuildAPIOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return []error{}
}

// AddFlags adds flags for BuildAPIOptions to the specified FlagSet.
func (o *BuildAPIOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.AllowedApplications, "allowed-applications", o.AllowedApplications, "Application ids allowed to trigger a build through the build API.")
}
