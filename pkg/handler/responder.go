package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// CFNResponder uploads the acknowledgment to the event's pre-signed
// ResponseURL.
type CFNResponder struct{}

// Respond implements engine.Responder.
func (CFNResponder) Respond(ctx context.Context, event *cfn.Event, ack engine.Acknowledgment) error {
	r := cfn.NewResponse(event)
	r.Status = cfn.StatusType(ack.Status)
	r.Reason = ack.Reason
	r.PhysicalResourceID = ack.PhysicalResourceID
	r.Data = make(map[string]interface{}, len(ack.Data))
	for k, v := range ack.Data {
		r.Data[k] = v
	}

	if err := r.Send(); err != nil {
		return fmt.Errorf("failed to send %s response: %w", ack.Status, err)
	}
	return nil
}

// WriterResponder writes the acknowledgment as indented JSON.
type WriterResponder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterResponder creates a responder writing to w.
func NewWriterResponder(w io.Writer) *WriterResponder {
	return &WriterResponder{w: w}
}

// Respond implements engine.Responder.
func (r *WriterResponder) Respond(ctx context.Context, event *cfn.Event, ack engine.Acknowledgment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ack); err != nil {
		return fmt.Errorf("failed to write acknowledgment: %w", err)
	}
	return nil
}
