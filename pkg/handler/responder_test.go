package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

func TestCFNResponder(t *testing.T) {
	var method string
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	event := createEvent(nil)
	event.ResponseURL = srv.URL + "/presigned"

	err := CFNResponder{}.Respond(context.Background(), &event, engine.Acknowledgment{
		Status:             engine.StatusSuccess,
		Reason:             "OK",
		PhysicalResourceID: "phys-1",
		Data:               map[string]string{"Buckets.0.Name": "first-bucket"},
	})
	if err != nil {
		t.Fatalf("Respond() returned error: %v", err)
	}

	if method != http.MethodPut {
		t.Errorf("Expected PUT, got %s", method)
	}
	expected := map[string]string{
		"Status":             "SUCCESS",
		"Reason":             "OK",
		"PhysicalResourceId": "phys-1",
		"LogicalResourceId":  "MyCustomResource",
		"RequestId":          "req-1",
	}
	for k, v := range expected {
		if body[k] != v {
			t.Errorf("Expected %s=%s, got %v", k, v, body[k])
		}
	}
	data, ok := body["Data"].(map[string]interface{})
	if !ok || data["Buckets.0.Name"] != "first-bucket" {
		t.Errorf("Unexpected data: %v", body["Data"])
	}
}

func TestWriterResponder(t *testing.T) {
	var buf bytes.Buffer
	event := cfn.Event{RequestID: "req-1"}

	err := NewWriterResponder(&buf).Respond(context.Background(), &event, engine.Acknowledgment{
		Status:             engine.StatusFailed,
		Reason:             "Access Denied",
		PhysicalResourceID: "stream",
		Data:               map[string]string{},
	})
	if err != nil {
		t.Fatalf("Respond() returned error: %v", err)
	}

	var ack engine.Acknowledgment
	if err := json.Unmarshal(buf.Bytes(), &ack); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if ack.Status != engine.StatusFailed || ack.Reason != "Access Denied" || ack.PhysicalResourceID != "stream" {
		t.Errorf("Unexpected acknowledgment: %+v", ack)
	}
}
