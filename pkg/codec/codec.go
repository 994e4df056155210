// Package codec decodes lifecycle events into call descriptors and resolves
// special-value placeholders in call parameters.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// Resource property keys.
const (
	PropertyCreate        = "Create"
	PropertyUpdate        = "Update"
	PropertyDelete        = "Delete"
	PropertyInstallLatest = "InstallLatestAwsSdk"
)

// Placeholders replaced by DecodeSpecialValues.
const (
	PhysicalResourceIDReference = "PHYSICAL:RESOURCEID:"
	TrueBoolean                 = "TRUE:BOOLEAN"
	FalseBoolean                = "FALSE:BOOLEAN"
)

// Decoder is the default engine.CallDecoder.
type Decoder struct {
	validate *validator.Validate
}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New()}
}

// DecodeInvocation decodes the per-verb call descriptors and the install flag
// from the event's resource properties. The request type is carried through
// unvalidated.
func (d *Decoder) DecodeInvocation(event *cfn.Event) (*engine.Invocation, error) {
	inv := &engine.Invocation{
		RequestType:        engine.RequestType(event.RequestType),
		LogicalResourceID:  event.LogicalResourceID,
		PhysicalResourceID: event.PhysicalResourceID,
	}

	props := event.ResourceProperties
	targets := []struct {
		key string
		dst **engine.CallDescriptor
	}{
		{PropertyCreate, &inv.Create},
		{PropertyUpdate, &inv.Update},
		{PropertyDelete, &inv.Delete},
	}
	for _, target := range targets {
		call, err := d.DecodeCall(props[target.key])
		if err != nil {
			return nil, engine.NewPermanentError(fmt.Sprintf("Failed to decode %s call: %v", target.key, err), err).
				WithCode(engine.ErrCodeDecode)
		}
		*target.dst = call
	}

	inv.InstallLatest = isTrue(props[PropertyInstallLatest])
	return inv, nil
}

// DecodeCall decodes one call descriptor. raw is a JSON string or an already
// decoded object; nil and "" decode to nil. Numbers in parameters are kept
// as json.Number.
func (d *Decoder) DecodeCall(raw interface{}) (*engine.CallDescriptor, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		data = []byte(v)
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode call: %w", err)
		}
		data = encoded
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var call engine.CallDescriptor
	if err := dec.Decode(&call); err != nil {
		return nil, fmt.Errorf("invalid call JSON: %w", err)
	}
	if err := d.validate.Struct(&call); err != nil {
		return nil, fmt.Errorf("invalid call: %w", err)
	}
	return &call, nil
}

// DecodeParameters implements engine.CallDecoder.
func (d *Decoder) DecodeParameters(params map[string]interface{}, physicalID string) map[string]interface{} {
	return DecodeSpecialValues(params, physicalID)
}

// DecodeSpecialValues returns a copy of params with placeholders replaced at
// any depth: PHYSICAL:RESOURCEID: by physicalID, TRUE:BOOLEAN and
// FALSE:BOOLEAN by booleans. Only whole string values are replaced. A nil
// map stays nil.
func DecodeSpecialValues(params map[string]interface{}, physicalID string) map[string]interface{} {
	if params == nil {
		return nil
	}
	return decodeValue(params, physicalID).(map[string]interface{})
}

func decodeValue(v interface{}, physicalID string) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, child := range tv {
			out[k] = decodeValue(child, physicalID)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, child := range tv {
			out[i] = decodeValue(child, physicalID)
		}
		return out
	case string:
		switch tv {
		case PhysicalResourceIDReference:
			return physicalID
		case TrueBoolean:
			return true
		case FalseBoolean:
			return false
		}
		return tv
	default:
		return v
	}
}

func isTrue(v interface{}) bool {
	switch tv := v.(type) {
	case string:
		return tv == "true"
	case bool:
		return tv
	default:
		return false
	}
}
