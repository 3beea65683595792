package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*OCIOptions)(nil)

// OCIOptions configures the container-registry firmware store backend:
// firmware images are resolved as OCI artifacts, tag -> manifest -> the
// sole octet-stream layer's digest and size.
type OCIOptions struct {
	Enable bool `json:"enable" mapstructure:"enable"`

	// Prefix is prepended to an application/device-supplied image
	// reference to form the full repository path, e.g.
	// "registry.example.com/firmware".
	Prefix string `json:"prefix" mapstructure:"prefix"`

	User     string `json:"user" mapstructure:"user"`
	Token    string `json:"token" mapstructure:"token"`
	Insecure bool   `json:"insecure" mapstructure:"insecure"`
	TLS      bool   `json:"tls" mapstructure:"tls"`

	// CacheEntriesMax bounds the in-memory metadata/blob LRU caches.
	CacheEntriesMax int `json:"cache-entries-max" mapstructure:"cache-entries-max"`

	// CacheExpiry is the TTL applied to a cache entry from the moment it
	// was inserted.
	CacheExpiry time.Duration `json:"cache-expiry" mapstructure:"cache-expiry"`
}

// NewOCIOptions creates a new OCIOptions with default values.
func NewOCIOptions() *OCIOptions {
	return &OCIOptions{
		TLS:             true,
		CacheEntriesMax: 1024,
		CacheExpiry:     5 * time.Minute,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *OCIOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.Enable && o.CacheEntriesMax <= 0 {
		errors = append(errors, fmt.Errorf("oci-cache-entries-max must be positive"))
	}
	return errors
}

// AddFlags adds flags for OCIOptions to the specified FlagSet.
func (o *OCIOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enable, "oci-registry-enable", o.Enable, "Enable the OCI container-registry firmware store backend.")
	fs.StringVar(&o.Prefix, "oci-registry-prefix", o.Prefix, "Repository prefix prepended to image references resolved through this backend.")
	fs.StringVar(&o.User, "oci-registry-user", o.User, "Username for registry authentication.")
	fs.StringVar(&o.Token, "oci-registry-token", o.Token, "Token/password for registry authentication.")
	fs.BoolVar(&o.Insecure, "oci-registry-insecure", o.Insecure, "Allow plain HTTP registry endpoints.")
	fs.BoolVar(&o.TLS, "oci-registry-tls", o.TLS, "Verify the registry's TLS certificate.")
	fs.IntVar(&o.CacheEntriesMax, "oci-cache-entries-max", o.CacheEntriesMax, "Maximum entries kept in the OCI metadata/blob caches.")
	fs.DurationVar(&o.CacheExpiry, "oci-cache-expiry", o.CacheExpiry, "TTL applied to an OCI cache entry from insertion.")
}
