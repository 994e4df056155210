// Package awsv2 binds aws-sdk-go-v2 service clients as bundled client
// modules.
//
// Every operation method of a service client becomes a "<Operation>Command"
// export whose parameters are decoded into the operation's Input struct.
// The client itself is exported as "<Service>Client" and always listed first.
package awsv2

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/modules"
)

// CommandSuffix is appended to operation names to form command export names.
const CommandSuffix = "Command"

// Service describes one bundled service client.
type Service struct {
	// Package is the client package name, e.g. "@aws-sdk/client-s3".
	Package string

	// ClientExport is the client export name, e.g. "S3Client".
	ClientExport string

	// New builds the service client from an aws.Config.
	New func(cfg aws.Config) interface{}
}

// Services is the bundled catalog.
var Services = []Service{
	{
		Package:      "@aws-sdk/client-s3",
		ClientExport: "S3Client",
		New:          func(cfg aws.Config) interface{} { return s3.NewFromConfig(cfg) },
	},
	{
		Package:      "@aws-sdk/client-iam",
		ClientExport: "IAMClient",
		New:          func(cfg aws.Config) interface{} { return iam.NewFromConfig(cfg) },
	},
	{
		Package:      "@aws-sdk/client-dynamodb",
		ClientExport: "DynamoDBClient",
		New:          func(cfg aws.Config) interface{} { return dynamodb.NewFromConfig(cfg) },
	},
	{
		Package:      "@aws-sdk/client-sts",
		ClientExport: "STSClient",
		New:          func(cfg aws.Config) interface{} { return sts.NewFromConfig(cfg) },
	},
	{
		Package:      "@aws-sdk/client-ssm",
		ClientExport: "SSMClient",
		New:          func(cfg aws.Config) interface{} { return ssm.NewFromConfig(cfg) },
	},
	{
		Package:      "@aws-sdk/client-lambda",
		ClientExport: "LambdaClient",
		New:          func(cfg aws.Config) interface{} { return lambda.NewFromConfig(cfg) },
	},
}

// Register adds every bundled service to the registry.
func Register(reg *modules.Registry) error {
	for _, svc := range Services {
		svc := svc
		if err := reg.Register(svc.Package, func(ctx context.Context) (*modules.Module, error) {
			return NewModule(svc)
		}); err != nil {
			return err
		}
	}
	return nil
}

// NewModule builds the bundled module for a service.
func NewModule(svc Service) (*modules.Module, error) {
	clientType := reflect.TypeOf(svc.New(aws.Config{}))
	ops := operations(clientType)
	if len(ops) == 0 {
		return nil, fmt.Errorf("client %s exposes no operations", clientType)
	}

	exports := make([]modules.Export, 0, len(ops)+1)
	exports = append(exports, modules.Export{
		Name:      svc.ClientExport,
		NewClient: clientConstructor(svc),
	})
	for _, op := range ops {
		exports = append(exports, modules.Export{
			Name:       op.name + CommandSuffix,
			NewCommand: op.commandConstructor(),
		})
	}

	return modules.NewModule(svc.Package, modules.BundledVersion, engine.SourceBundled, exports), nil
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// operation is one API operation method of a service client.
type operation struct {
	name      string
	inputType reflect.Type
}

// operations returns the client's API operations, sorted by name. An
// operation has the shape
//
//	func (c *Client) Op(ctx context.Context, in *OpInput, optFns ...func(*Options)) (*OpOutput, error)
func operations(clientType reflect.Type) []operation {
	var ops []operation
	for i := 0; i < clientType.NumMethod(); i++ {
		m := clientType.Method(i)
		t := m.Type
		if t.NumIn() != 4 || !t.IsVariadic() || t.NumOut() != 2 {
			continue
		}
		if t.In(1) != contextType || t.Out(1) != errorType {
			continue
		}
		in := t.In(2)
		if in.Kind() != reflect.Ptr || in.Elem().Kind() != reflect.Struct || in.Elem().Name() != m.Name+"Input" {
			continue
		}
		if out := t.Out(0); out.Kind() != reflect.Ptr || out.Elem().Kind() != reflect.Struct {
			continue
		}
		ops = append(ops, operation{name: m.Name, inputType: in.Elem()})
	}
	return ops
}

func (op operation) commandConstructor() modules.CommandConstructor {
	return func(params map[string]interface{}) (modules.Command, error) {
		in := reflect.New(op.inputType)
		if err := DecodeInput(params, in.Interface()); err != nil {
			return nil, fmt.Errorf("invalid parameters for %s%s: %w", op.name, CommandSuffix, err)
		}
		return &command{operation: op.name, input: in.Interface()}, nil
	}
}

// command is a decoded operation input.
type command struct {
	operation string
	input     interface{}
}

func (c *command) Name() string       { return c.operation + CommandSuffix }
func (c *command) Input() interface{} { return c.input }
