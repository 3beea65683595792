package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RegistryOptions)(nil)

// RegistryOptions configures the REST client used to reach the device
// registry: the out-of-scope collaborator that owns device/application
// metadata and the declarative firmware spec each device and application
// carries.
type RegistryOptions struct {
	// URL is the base URL of the device registry's REST API.
	URL string `json:"url" mapstructure:"url"`

	// Token authenticates the coordinator to the registry.
	Token string `json:"token" mapstructure:"token"`

	// User is the registry account name to authenticate as, if the
	// registry's auth scheme requires one alongside the token.
	User string `json:"user" mapstructure:"user"`

	// Application restricts processing to a single application. When
	// empty, every application accessible to Token is processed, minus
	// ExcludeApplications.
	Application string `json:"application" mapstructure:"application"`

	// ExcludeApplications lists applications to skip when Application is
	// unset.
	ExcludeApplications []string `json:"exclude-applications" mapstructure:"exclude-applications"`

	// Timeout bounds every registry HTTP call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewRegistryOptions creates a new RegistryOptions with default values.
func NewRegistryOptions() *RegistryOptions {
	return &RegistryOptions{
		Timeout: 10 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *RegistryOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.URL == "" {
		errors = append(errors, fmt.Errorf("device-registry is required"))
	}
	return errors
}

// AddFlags adds flags for RegistryOptions to the specified FlagSet.
func (o *RegistryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "device-registry", o.URL, "Base URL of the device registry REST API.")
	fs.StringVar(&o.Token, "token", o.Token, "Token used to authenticate against the device registry.")
	fs.StringVar(&o.User, "user", o.User, "Account name to authenticate as against the device registry.")
	fs.StringVar(&o.Application, "application", o.Application, "Restrict processing to a single application (default: all accessible, minus --exclude-applications).")
	fs.StringSliceVar(&o.ExcludeApplications, "exclude-applications", o.ExcludeApplications, "Applications to skip when --application is unset.")
	fs.DurationVar(&o.Timeout, "registry-timeout", o.Timeout, "Timeout for device registry HTTP calls.")
}
