package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*OrchestratorOptions)(nil)

// OrchestratorOptions configures the build-trigger API's connection to the
// workload orchestrator (Tekton): the PipelineRun template it submits
// against and the defaults applied when a BuildSpec omits them.
type OrchestratorOptions struct {
	// PipelineRef names the Tekton Pipeline a triggered PipelineRun
	// references.
	PipelineRef string `json:"pipeline-ref" mapstructure:"pipeline-ref"`

	// WorkspaceSize is the storage request of the workspace PVC claim
	// materialised for every triggered PipelineRun.
	WorkspaceSize string `json:"workspace-size" mapstructure:"workspace-size"`

	// StorageClass is the workspace claim's storage class, empty meaning
	// the cluster default.
	StorageClass string `json:"storage-class" mapstructure:"storage-class"`

	// DefaultTimeout is applied to a triggered PipelineRun when its
	// BuildSpec does not set one.
	DefaultTimeout time.Duration `json:"default-timeout" mapstructure:"default-timeout"`
}

// NewOrchestratorOptions creates a new OrchestratorOptions with default
// values.
func NewOrchestratorOptions() *OrchestratorOptions {
	return &OrchestratorOptions{
		PipelineRef:    "firmware-build",
		WorkspaceSize:  "1Gi",
		DefaultTimeout: time.Hour,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *OrchestratorOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return []error{}
}

// AddFlags adds flags for OrchestratorOptions to the specified FlagSet.
func (o *OrchestratorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.PipelineRef, "orchestrator.pipeline-ref", o.PipelineRef, "Name of the Tekton Pipeline referenced by triggered PipelineRuns.")
	fs.StringVar(&o.WorkspaceSize, "orchestrator.workspace-size", o.WorkspaceSize, "Storage request of the workspace PVC claim for triggered builds.")
	fs.StringVar(&o.StorageClass, "orchestrator.storage-class", o.StorageClass, "Storage class for the workspace PVC claim (empty: cluster default).")
	fs.DurationVar(&o.DefaultTimeout, "orchestrator.default-timeout", o.DefaultTimeout, "Timeout applied to a triggered PipelineRun when its build spec omits one.")
}
