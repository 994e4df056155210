package codec

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

func TestDecodeCall(t *testing.T) {
	d := NewDecoder()

	tests := []struct {
		name    string
		raw     interface{}
		want    *engine.CallDescriptor
		wantErr bool
	}{
		{name: "absent", raw: nil},
		{name: "empty string", raw: ""},
		{
			name: "json string",
			raw:  `{"service":"S3","action":"listBuckets","outputPath":"Buckets.0.Name","physicalResourceId":{"id":"fixed"}}`,
			want: &engine.CallDescriptor{
				Service:            "S3",
				Action:             "listBuckets",
				OutputPath:         "Buckets.0.Name",
				PhysicalResourceID: &engine.PhysicalResourceIDOptions{ID: "fixed"},
			},
		},
		{
			name: "decoded object",
			raw: map[string]interface{}{
				"service":                  "@aws-sdk/client-iam",
				"action":                   "GetRole",
				"region":                   "us-east-1",
				"outputPaths":              []interface{}{"Role.Arn", "Role.RoleId"},
				"ignoreErrorCodesMatching": "NoSuchEntity",
				"assumedRoleArn":           "arn:aws:iam::1:role/x",
			},
			want: &engine.CallDescriptor{
				Service:                  "@aws-sdk/client-iam",
				Action:                   "GetRole",
				Region:                   "us-east-1",
				OutputPaths:              []string{"Role.Arn", "Role.RoleId"},
				IgnoreErrorCodesMatching: "NoSuchEntity",
				AssumedRoleArn:           "arn:aws:iam::1:role/x",
			},
		},
		{name: "invalid json", raw: `{"service":`, wantErr: true},
		{name: "missing action", raw: `{"service":"S3"}`, wantErr: true},
		{name: "missing service", raw: `{"action":"listBuckets"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.DecodeCall(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeCall() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeCall() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeCallKeepsNumbers(t *testing.T) {
	call, err := NewDecoder().DecodeCall(`{"service":"S3","action":"listObjectsV2","parameters":{"MaxKeys":12345678901234567}}`)
	if err != nil {
		t.Fatalf("DecodeCall() returned error: %v", err)
	}
	if n, ok := call.Parameters["MaxKeys"].(json.Number); !ok || n.String() != "12345678901234567" {
		t.Errorf("Expected exact json.Number, got %#v", call.Parameters["MaxKeys"])
	}
}

func TestDecodeInvocation(t *testing.T) {
	d := NewDecoder()

	event := &cfn.Event{
		RequestType:        cfn.RequestUpdate,
		LogicalResourceID:  "MyResource",
		PhysicalResourceID: "phys-1",
		ResourceProperties: map[string]interface{}{
			"Create":              `{"service":"S3","action":"listBuckets"}`,
			"Update":              `{"service":"S3","action":"listBuckets","physicalResourceId":{"responsePath":"Owner.ID"}}`,
			"InstallLatestAwsSdk": "true",
		},
	}

	inv, err := d.DecodeInvocation(event)
	if err != nil {
		t.Fatalf("DecodeInvocation() returned error: %v", err)
	}
	if inv.RequestType != engine.RequestUpdate {
		t.Errorf("Expected Update, got %s", inv.RequestType)
	}
	if inv.Create == nil || inv.Update == nil || inv.Delete != nil {
		t.Errorf("Unexpected descriptors: create=%v update=%v delete=%v", inv.Create, inv.Update, inv.Delete)
	}
	if inv.ActiveCall() != inv.Update {
		t.Error("Expected the Update descriptor to be active")
	}
	if path, ok := inv.Update.ResponsePath(); !ok || path != "Owner.ID" {
		t.Errorf("Expected response path Owner.ID, got %q", path)
	}
	if !inv.InstallLatest {
		t.Error("Expected InstallLatest")
	}
	if inv.PhysicalResourceID != "phys-1" || inv.LogicalResourceID != "MyResource" {
		t.Errorf("Unexpected ids: %s %s", inv.PhysicalResourceID, inv.LogicalResourceID)
	}

	t.Run("install flag", func(t *testing.T) {
		for raw, want := range map[interface{}]bool{"true": true, "false": false, "TRUE": false, true: true, nil: false} {
			event := &cfn.Event{ResourceProperties: map[string]interface{}{"InstallLatestAwsSdk": raw}}
			inv, err := d.DecodeInvocation(event)
			if err != nil {
				t.Fatalf("DecodeInvocation() returned error: %v", err)
			}
			if inv.InstallLatest != want {
				t.Errorf("InstallLatestAwsSdk=%v: expected %v", raw, want)
			}
		}
	})

	t.Run("decode error", func(t *testing.T) {
		event := &cfn.Event{ResourceProperties: map[string]interface{}{"Delete": "not json"}}
		_, err := d.DecodeInvocation(event)
		if engine.CodeOf(err) != engine.ErrCodeDecode {
			t.Errorf("Expected DECODE_ERROR, got %v", err)
		}
		var engineErr *engine.EngineError
		if !errors.As(err, &engineErr) {
			t.Error("Expected EngineError")
		}
	})
}

func TestDecodeSpecialValues(t *testing.T) {
	params := map[string]interface{}{
		"RoleName": "PHYSICAL:RESOURCEID:",
		"Enabled":  "TRUE:BOOLEAN",
		"Nested": map[string]interface{}{
			"Disabled": "FALSE:BOOLEAN",
			"List":     []interface{}{"PHYSICAL:RESOURCEID:", "keep", json.Number("3")},
		},
		"Partial": "prefix-PHYSICAL:RESOURCEID:",
	}

	got := DecodeSpecialValues(params, "phys-42")
	want := map[string]interface{}{
		"RoleName": "phys-42",
		"Enabled":  true,
		"Nested": map[string]interface{}{
			"Disabled": false,
			"List":     []interface{}{"phys-42", "keep", json.Number("3")},
		},
		"Partial": "prefix-PHYSICAL:RESOURCEID:",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeSpecialValues() = %#v, want %#v", got, want)
	}
	if params["RoleName"] != "PHYSICAL:RESOURCEID:" {
		t.Error("Input must not be modified")
	}
	if DecodeSpecialValues(nil, "x") != nil {
		t.Error("Expected nil for nil parameters")
	}
}
