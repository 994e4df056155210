// Package credentials derives short-lived credentials for SDK calls that
// request role assumption.
package credentials

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

// MaxSessionNameLength is the STS limit on role session names.
const MaxSessionNameLength = 64

// STSClientFactory builds the STS client used to assume roles.
type STSClientFactory func(ctx context.Context, region string) (stscreds.AssumeRoleAPIClient, error)

// Resolver builds assumed-role credential providers.
type Resolver struct {
	newSTS  STSClientFactory
	now     func() time.Time
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSTSClientFactory overrides how the STS client is built.
func WithSTSClientFactory(f STSClientFactory) Option {
	return func(r *Resolver) { r.newSTS = f }
}

// WithClock overrides the clock used for session names.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithTelemetry sets the logger and metrics.
func WithTelemetry(logger *telemetry.Logger, metrics *telemetry.Metrics) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
		r.metrics = metrics
	}
}

// NewResolver creates a resolver that assumes roles through STS using the
// ambient AWS configuration.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		newSTS: defaultSTSClient,
		now:    time.Now,
		logger: telemetry.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.NewComponentLogger("credentials")
	return r
}

func defaultSTSClient(ctx context.Context, region string) (stscreds.AssumeRoleAPIClient, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sts.NewFromConfig(cfg), nil
}

// Resolve returns a credentials provider for roleArn, or nil when no role is
// requested and the ambient credentials apply. The provider is lazy: the
// role is assumed the first time a client retrieves credentials, and the
// result is cached until it expires.
func (r *Resolver) Resolve(ctx context.Context, roleArn, physicalID, region string) (aws.CredentialsProvider, error) {
	if roleArn == "" {
		return nil, nil
	}

	client, err := r.newSTS(ctx, region)
	if err != nil {
		r.metrics.RecordAssumeRole("failed")
		return nil, fmt.Errorf("failed to create STS client: %w", err)
	}

	sessionName := SessionName(r.now(), physicalID)
	r.logger.WithFields(map[string]interface{}{
		"role_arn":     roleArn,
		"session_name": sessionName,
	}).Debug("Using assumed role credentials")
	r.metrics.RecordAssumeRole("configured")

	provider := stscreds.NewAssumeRoleProvider(client, roleArn, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
	return aws.NewCredentialsCache(provider), nil
}

// SessionName returns "<epochMillis>-<physicalID>" truncated to at most
// MaxSessionNameLength bytes on a rune boundary. The physical id is not
// sanitized.
func SessionName(now time.Time, physicalID string) string {
	name := fmt.Sprintf("%d-%s", now.UnixMilli(), physicalID)
	if len(name) <= MaxSessionNameLength {
		return name
	}
	n := MaxSessionNameLength
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}
