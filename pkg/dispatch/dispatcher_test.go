package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/modules"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

type fakeClient struct {
	cfg  modules.ClientConfig
	sent []modules.Command
	resp interface{}
	err  error
}

func (c *fakeClient) Send(ctx context.Context, cmd modules.Command) (interface{}, error) {
	c.sent = append(c.sent, cmd)
	return c.resp, c.err
}

func (c *fakeClient) APIVersion() string { return c.cfg.APIVersion }

func (c *fakeClient) Region(ctx context.Context) (string, error) { return c.cfg.Region, nil }

type fakeCommand struct {
	name  string
	input map[string]interface{}
}

func (c *fakeCommand) Name() string       { return c.name }
func (c *fakeCommand) Input() interface{} { return c.input }

func fakeModule(client *fakeClient, exportNames ...string) *modules.Module {
	var exports []modules.Export
	for _, name := range exportNames {
		name := name
		switch {
		case name == "BrokenCommand":
			exports = append(exports, modules.Export{Name: name, NewCommand: func(map[string]interface{}) (modules.Command, error) {
				return nil, errors.New("not a command")
			}})
		case len(name) > 6 && name[len(name)-6:] == "Client":
			exports = append(exports, modules.Export{Name: name, NewClient: func(ctx context.Context, cfg modules.ClientConfig) (modules.Client, error) {
				client.cfg = cfg
				return client, nil
			}})
		default:
			exports = append(exports, modules.Export{Name: name, NewCommand: func(input map[string]interface{}) (modules.Command, error) {
				return &fakeCommand{name: name, input: input}, nil
			}})
		}
	}
	return modules.NewModule("@aws-sdk/client-s3", modules.BundledVersion, engine.SourceBundled, exports)
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"listBuckets":        "listBucketsCommand",
		"ListBucketsCommand": "ListBucketsCommand",
		"fooCOMMAND":         "fooCOMMANDCommand",
		"listbucketscommand": "listbucketscommandCommand",
		"":                   "Command",
	}
	for in, want := range tests {
		if got := CommandName(in); got != want {
			t.Errorf("CommandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	creds := credentials.NewStaticCredentialsProvider("AK", "SK", "")

	t.Run("success", func(t *testing.T) {
		client := &fakeClient{resp: map[string]interface{}{"Buckets": []interface{}{}}}
		m := fakeModule(client, "S3Client", "ListBucketsCommand")
		d := NewDispatcher(nil, nil, nil)

		res, err := d.Dispatch(ctx, m, &engine.CallDescriptor{
			Service:    "S3",
			Action:     "listBuckets",
			APIVersion: "2006-03-01",
			Region:     "us-west-2",
		}, nil, creds)
		if err != nil {
			t.Fatalf("Dispatch() returned error: %v", err)
		}

		if res.Command != "ListBucketsCommand" {
			t.Errorf("Expected command ListBucketsCommand, got %s", res.Command)
		}
		if !reflect.DeepEqual(res.Response, client.resp) {
			t.Errorf("Unexpected response: %v", res.Response)
		}
		if client.cfg.APIVersion != "2006-03-01" || client.cfg.Region != "us-west-2" || client.cfg.Credentials == nil {
			t.Errorf("Unexpected client config: %+v", client.cfg)
		}
		if len(client.sent) != 1 {
			t.Fatalf("Expected 1 send, got %d", len(client.sent))
		}
		if input := client.sent[0].Input().(map[string]interface{}); input == nil || len(input) != 0 {
			t.Errorf("Expected empty non-nil parameters, got %v", input)
		}
	})

	t.Run("first client export wins", func(t *testing.T) {
		client := &fakeClient{}
		m := fakeModule(client, "ListBucketsCommand", "S3Client", "OtherClient")
		e, err := FindClient(m)
		if err != nil {
			t.Fatalf("FindClient() returned error: %v", err)
		}
		if e.Name != "S3Client" {
			t.Errorf("Expected S3Client, got %s", e.Name)
		}
	})

	t.Run("client not found", func(t *testing.T) {
		m := fakeModule(&fakeClient{}, "ListBucketsCommand")
		_, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "ListBuckets"}, nil, nil)
		if !errors.Is(err, engine.ErrClientNotFound) {
			t.Errorf("Expected ErrClientNotFound, got %v", err)
		}
	})

	t.Run("command not found", func(t *testing.T) {
		m := fakeModule(&fakeClient{}, "S3Client", "ListBucketsCommand")
		_, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "deleteEverything"}, nil, nil)
		if !errors.Is(err, engine.ErrCommandNotFound) {
			t.Fatalf("Expected ErrCommandNotFound, got %v", err)
		}
		want := "Unable to find command named: deleteEverythingCommand for package @aws-sdk/client-s3"
		if err.Error() != want {
			t.Errorf("Expected message %q, got %q", want, err.Error())
		}
	})

	t.Run("case insensitive action", func(t *testing.T) {
		client := &fakeClient{}
		m := fakeModule(client, "S3Client", "ListBucketsCommand")
		res, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "LISTBUCKETS"}, map[string]interface{}{"A": 1}, nil)
		if err != nil {
			t.Fatalf("Dispatch() returned error: %v", err)
		}
		if res.Command != "ListBucketsCommand" {
			t.Errorf("Expected ListBucketsCommand, got %s", res.Command)
		}
		if client.sent[0].Input().(map[string]interface{})["A"] != 1 {
			t.Error("Expected parameters to be passed through")
		}
	})

	t.Run("suffix is matched case-sensitively", func(t *testing.T) {
		m := fakeModule(&fakeClient{}, "S3Client", "ListBucketsCommand")
		_, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "LISTBUCKETSCOMMAND"}, nil, nil)
		if !errors.Is(err, engine.ErrCommandNotFound) {
			t.Errorf("Expected ErrCommandNotFound, got %v", err)
		}
	})

	t.Run("api error", func(t *testing.T) {
		sdkErr := &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"}
		client := &fakeClient{err: sdkErr}
		m := fakeModule(client, "S3Client", "ListBucketsCommand")
		metrics, _ := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)

		res, err := NewDispatcher(telemetry.NopLogger(), metrics, telemetry.NoopTracer()).
			Dispatch(ctx, m, &engine.CallDescriptor{Action: "listBuckets"}, nil, nil)
		if err == nil {
			t.Fatal("Expected error")
		}
		if res == nil || res.Client == nil {
			t.Error("Expected result with client on API error")
		}
		if engine.CodeOf(err) != engine.ErrCodeAPICall {
			t.Errorf("Expected API_CALL_ERROR, got %s", engine.CodeOf(err))
		}
		if engine.ErrorCode(err) != "NoSuchBucket" {
			t.Errorf("Expected SDK code NoSuchBucket, got %s", engine.ErrorCode(err))
		}
		if err.Error() != "The specified bucket does not exist" {
			t.Errorf("Expected the SDK's own message, got %q", err.Error())
		}
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) {
			t.Error("Expected smithy.APIError in chain")
		}
	})

	t.Run("throttled api error", func(t *testing.T) {
		client := &fakeClient{err: &smithy.GenericAPIError{Code: "SlowDown", Message: "Please reduce your request rate."}}
		m := fakeModule(client, "S3Client", "ListBucketsCommand")
		_, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "listBuckets"}, nil, nil)
		if !engine.IsThrottled(err) {
			t.Errorf("Expected throttled class, got %s", engine.ClassOf(err))
		}
		if len(client.sent) != 1 {
			t.Errorf("Expected exactly one send without retry, got %d", len(client.sent))
		}
	})

	t.Run("command construction error", func(t *testing.T) {
		m := fakeModule(&fakeClient{}, "S3Client", "BrokenCommand")
		_, err := NewDispatcher(nil, nil, nil).Dispatch(ctx, m, &engine.CallDescriptor{Action: "broken"}, nil, nil)
		if err == nil {
			t.Fatal("Expected error")
		}
		if engine.CodeOf(err) != engine.ErrCodeInvalidInput {
			t.Errorf("Expected INVALID_INPUT, got %v", err)
		}
	})
}
