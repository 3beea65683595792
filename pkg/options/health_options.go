package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HealthOptions)(nil)

// HealthOptions configures the /healthz liveness surface shared by the
// coordinator and the build-trigger API (spec.md §6 disable_health,
// health_port).
type HealthOptions struct {
	Disable bool   `json:"disable" mapstructure:"disable"`
	Port    int    `json:"port" mapstructure:"port"`
}

// NewHealthOptions creates a new HealthOptions with default values.
func NewHealthOptions() *HealthOptions {
	return &HealthOptions{
		Port: 8081,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *HealthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if !o.Disable && (o.Port <= 0 || o.Port > 65535) {
		errors = append(errors, fmt.Errorf("health-port must be between 1 and 65535, got %d", o.Port))
	}
	return errors
}

// AddFlags adds flags for HealthOptions to the specified FlagSet.
func (o *HealthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Disable, "disable-health", o.Disable, "Disable the /healthz liveness endpoint.")
	fs.IntVar(&o.Port, "health-port", o.Port, "Port the /healthz liveness endpoint listens on.")
}
