package engine

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
)

// CallDecoder turns the raw orchestration event into typed call descriptors.
type CallDecoder interface {
	// DecodeInvocation decodes the Create, Update and Delete descriptors and
	// the install flag from the event's resource properties.
	DecodeInvocation(event *cfn.Event) (*Invocation, error)

	// DecodeParameters replaces special-value placeholders in the parameter
	// tree, substituting physicalID where requested.
	DecodeParameters(params map[string]interface{}, physicalID string) map[string]interface{}
}

// Responder delivers the single acknowledgment of an invocation.
type Responder interface {
	Respond(ctx context.Context, event *cfn.Event, ack Acknowledgment) error
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, event *cfn.Event, ack Acknowledgment) error

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, event *cfn.Event, ack Acknowledgment) error {
	return f(ctx, event, ack)
}

// CallGuard authorizes a call before it is dispatched.
type CallGuard interface {
	// Authorize returns an error wrapping ErrPolicyDenied when the call is not allowed.
	Authorize(ctx context.Context, input GuardInput) error
}

// GuardInput is the document a CallGuard evaluates.
type GuardInput struct {
	Service            string      `json:"service"`
	Package            string      `json:"package"`
	Action             string      `json:"action"`
	Region             string      `json:"region,omitempty"`
	RequestType        RequestType `json:"requestType"`
	AssumedRoleArn     string      `json:"assumedRoleArn,omitempty"`
	LogicalResourceID  string      `json:"logicalResourceId"`
	PhysicalResourceID string      `json:"physicalResourceId"`
}
