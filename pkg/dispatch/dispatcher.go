// Package dispatch resolves a call descriptor against a loaded client module
// and sends the command.
package dispatch

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/modules"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

const (
	clientSuffix  = "Client"
	commandSuffix = "Command"
)

// Result is the outcome of a dispatched call.
type Result struct {
	// Response is the raw response tree.
	Response interface{}

	// Client is the client the command was sent with.
	Client modules.Client

	// Command is the export name of the command that was sent.
	Command string
}

// Dispatcher sends calls through client modules.
type Dispatcher struct {
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// NewDispatcher creates a dispatcher. Any argument may be nil.
func NewDispatcher(logger *telemetry.Logger, metrics *telemetry.Metrics, tracer *telemetry.Tracer) *Dispatcher {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NoopTracer()
	}
	return &Dispatcher{
		logger:  logger.NewComponentLogger("dispatcher"),
		metrics: metrics,
		tracer:  tracer,
	}
}

// CommandName normalises an action to its command export name.
func CommandName(action string) string {
	if strings.HasSuffix(action, commandSuffix) {
		return action
	}
	return action + commandSuffix
}

// FindClient returns the first export whose name ends with "Client".
func FindClient(m *modules.Module) (modules.Export, error) {
	for _, e := range m.Exports() {
		if strings.HasSuffix(e.Name, clientSuffix) && e.IsClient() {
			return e, nil
		}
	}
	return modules.Export{}, engine.NewClientNotFoundError(m.Package)
}

// FindCommand returns the command export for an action, matched
// case-insensitively.
func FindCommand(m *modules.Module, action string) (modules.Export, error) {
	name := CommandName(action)
	e, ok := m.LookupFold(name)
	if !ok || !e.IsCommand() {
		return modules.Export{}, engine.NewCommandNotFoundError(m.Package, name)
	}
	return e, nil
}

// Dispatch constructs the client and command for call and sends it. params
// are the decoded parameters; nil sends an empty parameter map. A failure
// of the send itself is returned as an API_CALL_ERROR wrapping the SDK
// error; the Result still carries the client.
func (d *Dispatcher) Dispatch(ctx context.Context, m *modules.Module, call *engine.CallDescriptor, params map[string]interface{}, creds aws.CredentialsProvider) (*Result, error) {
	clientExport, err := FindClient(m)
	if err != nil {
		return nil, err
	}
	commandExport, err := FindCommand(m, call.Action)
	if err != nil {
		return nil, err
	}

	client, err := clientExport.NewClient(ctx, modules.ClientConfig{
		APIVersion:  call.APIVersion,
		Region:      call.Region,
		Credentials: creds,
	})
	if err != nil {
		return nil, engine.NewPermanentError("Failed to construct client: "+err.Error(), err).
			WithCode(engine.ErrCodeInvalidInput).
			WithPackage(m.Package)
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	cmd, err := commandExport.NewCommand(params)
	if err != nil {
		return nil, engine.NewPermanentError(err.Error(), err).
			WithCode(engine.ErrCodeInvalidInput).
			WithPackage(m.Package).
			WithOperation(commandExport.Name)
	}

	result := &Result{Client: client, Command: commandExport.Name}
	logger := d.logger.WithFields(map[string]interface{}{
		"package": m.Package,
		"command": commandExport.Name,
	})

	spanCtx, span := d.tracer.StartSDKCallSpan(ctx, m.Package, commandExport.Name)
	defer span.End()

	timer := telemetry.NewTimer()
	logger.Debug("Sending command")
	resp, err := client.Send(spanCtx, cmd)
	d.metrics.RecordSDKCall(m.Package, commandExport.Name, timer.Duration())

	if err != nil {
		code := engine.ErrorCode(err)
		d.metrics.RecordSDKError(m.Package, commandExport.Name, code)
		span.SetAttributes(telemetry.AttrErrorCode.String(code))
		telemetry.RecordError(span, err)
		apiErr := engine.NewAPICallError(m.Package, commandExport.Name, err)
		if engine.IsThrottled(apiErr) {
			logger.WithError(err).WithField("error_code", code).Warn("Command throttled by provider, not retried")
		} else {
			logger.WithError(err).WithField("error_code", code).Warn("Command failed")
		}
		return result, apiErr
	}

	telemetry.RecordSuccess(span)
	result.Response = resp
	return result, nil
}
