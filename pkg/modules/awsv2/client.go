package awsv2

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/openfroyo/sdkbridge/pkg/modules"
)

// ErrMissingRegion is returned by Region when no region was configured or
// found in the environment.
var ErrMissingRegion = errors.New("region is missing")

// Client adapts an aws-sdk-go-v2 service client to modules.Client.
type Client struct {
	api        interface{}
	apiVersion string
	region     string
}

// NewClient wraps an already-constructed service client.
func NewClient(api interface{}, apiVersion, region string) *Client {
	return &Client{api: api, apiVersion: apiVersion, region: region}
}

func clientConstructor(svc Service) modules.ClientConstructor {
	return func(ctx context.Context, cfg modules.ClientConfig) (modules.Client, error) {
		awsCfg, err := LoadConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewClient(svc.New(awsCfg), cfg.APIVersion, awsCfg.Region), nil
	}
}

// LoadConfig resolves the shared AWS configuration, overriding the region and
// credentials when set.
func LoadConfig(ctx context.Context, cfg modules.ClientConfig) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(cfg.Credentials))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return awsCfg, nil
}

// Send invokes the command's operation and converts the output into a
// generic tree.
func (c *Client) Send(ctx context.Context, cmd modules.Command) (interface{}, error) {
	cc, ok := cmd.(*command)
	if !ok {
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}

	method := reflect.ValueOf(c.api).MethodByName(cc.operation)
	if !method.IsValid() {
		return nil, fmt.Errorf("client %T has no operation %s", c.api, cc.operation)
	}

	out := method.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(cc.input)})
	if errVal := out[1]; !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}
	return ToTree(out[0].Interface()), nil
}

// APIVersion returns the API version the client was configured with.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// Region returns the client's resolved region.
func (c *Client) Region(ctx context.Context) (string, error) {
	if c.region == "" {
		return "", ErrMissingRegion
	}
	return c.region, nil
}
