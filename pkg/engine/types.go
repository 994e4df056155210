package engine

// CallDescriptor describes one provider API action to invoke.
type CallDescriptor struct {
	// Service is the legacy service name ("S3") or client package name ("@aws-sdk/client-s3").
	Service string `json:"service" validate:"required"`

	// Action is the API action, with or without the "Command" suffix.
	Action string `json:"action" validate:"required"`

	// APIVersion is passed through to the client configuration.
	APIVersion string `json:"apiVersion,omitempty"`

	// Region is the region the client is configured for.
	Region string `json:"region,omitempty"`

	// Parameters are the raw command parameters, before special values are decoded.
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// PhysicalResourceID configures how the physical resource id is derived.
	PhysicalResourceID *PhysicalResourceIDOptions `json:"physicalResourceId,omitempty"`

	// OutputPath restricts the reported data to keys starting with this prefix.
	OutputPath string `json:"outputPath,omitempty"`

	// OutputPaths restricts the reported data to keys starting with any of these prefixes.
	OutputPaths []string `json:"outputPaths,omitempty"`

	// IgnoreErrorCodesMatching is a regular expression; API errors whose code matches are suppressed.
	IgnoreErrorCodesMatching string `json:"ignoreErrorCodesMatching,omitempty"`

	// AssumedRoleArn is the role to assume for the call.
	AssumedRoleArn string `json:"assumedRoleArn,omitempty"`
}

// PhysicalResourceIDOptions is either an explicit id or a path into the flattened response.
type PhysicalResourceIDOptions struct {
	// ID is an explicit physical resource id.
	ID string `json:"id,omitempty"`

	// ResponsePath is a flattened response key whose value becomes the physical resource id.
	ResponsePath string `json:"responsePath,omitempty"`
}

// ExplicitID returns the descriptor's explicit physical id, if any.
func (c *CallDescriptor) ExplicitID() (string, bool) {
	if c == nil || c.PhysicalResourceID == nil || c.PhysicalResourceID.ID == "" {
		return "", false
	}
	return c.PhysicalResourceID.ID, true
}

// ResponsePath returns the configured physical id response path, if any.
func (c *CallDescriptor) ResponsePath() (string, bool) {
	if c == nil || c.PhysicalResourceID == nil || c.PhysicalResourceID.ResponsePath == "" {
		return "", false
	}
	return c.PhysicalResourceID.ResponsePath, true
}

// Invocation is a decoded lifecycle event.
type Invocation struct {
	// RequestType selects the active call descriptor.
	RequestType RequestType `json:"requestType"`

	// LogicalResourceID is the template's logical id for the resource.
	LogicalResourceID string `json:"logicalResourceId"`

	// PhysicalResourceID is the id carried by Update and Delete events.
	PhysicalResourceID string `json:"physicalResourceId,omitempty"`

	// Create, Update and Delete are the per-verb call descriptors.
	Create *CallDescriptor `json:"create,omitempty"`
	Update *CallDescriptor `json:"update,omitempty"`
	Delete *CallDescriptor `json:"delete,omitempty"`

	// InstallLatest requests a fresh client package install.
	InstallLatest bool `json:"installLatest"`
}

// Call returns the descriptor for the given verb.
func (i *Invocation) Call(rt RequestType) *CallDescriptor {
	switch rt {
	case RequestCreate:
		return i.Create
	case RequestUpdate:
		return i.Update
	case RequestDelete:
		return i.Delete
	default:
		return nil
	}
}

// ActiveCall returns the descriptor selected by the invocation's request type.
func (i *Invocation) ActiveCall() *CallDescriptor {
	return i.Call(i.RequestType)
}

// Acknowledgment is the final outcome reported to the orchestrator.
type Acknowledgment struct {
	Status             Status            `json:"status"`
	Reason             string            `json:"reason"`
	PhysicalResourceID string            `json:"physicalResourceId"`
	Data               map[string]string `json:"data"`
}
