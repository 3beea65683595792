package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FileOptions)(nil)

// FileOptions configures the simplest firmware store backend: a firmware
// named by a FileSpec resolves to "<dir>/<name>.json" (metadata) and
// "<dir>/<name>.bin" (the artifact itself), either on local disk or, when
// UseS3 is set, an S3-compatible bucket addressed by the shared S3Options.
type FileOptions struct {
	Enable bool `json:"enable" mapstructure:"enable"`

	// Dir is the local directory firmware files are read from. Ignored
	// when UseS3 is set.
	Dir string `json:"dir" mapstructure:"dir"`

	// UseS3 switches the backend to read through the S3Options client
	// instead of the local filesystem.
	UseS3 bool `json:"use-s3" mapstructure:"use-s3"`
}

// NewFileOptions creates a new FileOptions with default values.
func NewFileOptions() *FileOptions {
	return &FileOptions{
		Dir: "/var/lib/fleetdfu/firmware",
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *FileOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.Enable && !o.UseS3 && o.Dir == "" {
		errors = append(errors, fmt.Errorf("file-dir is required when the file backend is enabled without --file-use-s3"))
	}
	return errors
}

// AddFlags adds flags for FileOptions to the specified FlagSet.
func (o *FileOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enable, "file-backend-enable", o.Enable, "Enable the local-disk/S3 firmware store backend.")
	fs.StringVar(&o.Dir, "file-dir", o.Dir, "Local directory firmware metadata/artifact files are read from.")
	fs.BoolVar(&o.UseS3, "file-use-s3", o.UseS3, "Read firmware metadata/artifacts through the S3 client instead of the local filesystem.")
}
