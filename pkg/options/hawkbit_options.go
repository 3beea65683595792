package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HawkbitOptions)(nil)

// HawkbitOptions configures the Eclipse hawkBit-style DDI firmware store
// backend: deploymentBase link discovery, feedback POSTs, and the
// polling.sleep backoff hint.
type HawkbitOptions struct {
	Enable bool `json:"enable" mapstructure:"enable"`

	// URL is the base URL of the hawkBit DDI API.
	URL string `json:"url" mapstructure:"url"`

	// Tenant is the hawkBit tenant id, part of the DDI URL path.
	Tenant string `json:"tenant" mapstructure:"tenant"`

	// GatewayToken authenticates device-facing requests against hawkBit.
	GatewayToken string `json:"gateway-token" mapstructure:"gateway-token"`
}

// NewHawkbitOptions creates a new HawkbitOptions with default values.
func NewHawkbitOptions() *HawkbitOptions {
	return &HawkbitOptions{}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *HawkbitOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.Enable && o.URL == "" {
		errors = append(errors, fmt.Errorf("hawkbit-url is required when hawkbit-enable is set"))
	}
	return errors
}

// AddFlags adds flags for HawkbitOptions to the specified FlagSet.
func (o *HawkbitOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enable, "hawkbit-enable", o.Enable, "Enable the hawkBit-style DDI firmware store backend.")
	fs.StringVar(&o.URL, "hawkbit-url", o.URL, "Base URL of the hawkBit DDI API.")
	fs.StringVar(&o.Tenant, "hawkbit-tenant", o.Tenant, "hawkBit tenant id.")
	fs.StringVar(&o.GatewayToken, "hawkbit-gateway-token", o.GatewayToken, "Gateway token used to authenticate against hawkBit.")
}
