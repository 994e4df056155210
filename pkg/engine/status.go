package engine

import (
	"fmt"
)

// RequestType is the lifecycle verb of an orchestration event.
type RequestType string

const (
	// RequestCreate is sent when the resource is first created.
	RequestCreate RequestType = "Create"

	// RequestUpdate is sent when the resource properties change.
	RequestUpdate RequestType = "Update"

	// RequestDelete is sent when the resource is removed.
	RequestDelete RequestType = "Delete"
)

// Validate checks if the request type is one of the lifecycle verbs.
func (r RequestType) Validate() error {
	switch r {
	case RequestCreate, RequestUpdate, RequestDelete:
		return nil
	default:
		return NewPermanentError(fmt.Sprintf("Unsupported request type: %q", string(r)), nil).
			WithCode(ErrCodeUnsupportedRequestType)
	}
}

// Status is the outcome reported in an acknowledgment.
type Status string

const (
	// StatusSuccess reports that the call completed or was suppressed.
	StatusSuccess Status = "SUCCESS"

	// StatusFailed reports that the invocation failed.
	StatusFailed Status = "FAILED"
)

// ModuleSource records where a client module was loaded from.
type ModuleSource string

const (
	// SourceBundled is the pre-provisioned module compiled into the binary.
	SourceBundled ModuleSource = "bundled"

	// SourceCache is a package installed into the writable cache directory.
	SourceCache ModuleSource = "cache"
)
