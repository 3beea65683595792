package registryclient

// FirmwareStatus is the section of a device's registry record the resolver
// writes back after every reactor decision.
type FirmwareStatus struct {
	Current    string      `json:"current"`
	Target     string      `json:"target"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// ConditionType names a FirmwareStatus condition.
type ConditionType string

const (
	// ConditionInSync reports whether the device's reported version
	// matches its target.
	ConditionInSync ConditionType = "InSync"
	// ConditionUpdateProgress carries a human-readable percentage while a
	// transfer is in progress.
	ConditionUpdateProgress ConditionType = "UpdateProgress"
)

// Condition is one named true/false fact about a device's firmware status,
// with an optional reason/message for operator consumption.
type Condition struct {
	Type    ConditionType `json:"type"`
	Status  bool          `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
}
