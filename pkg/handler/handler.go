// Package handler runs one lifecycle event through decode, dispatch and
// acknowledgment.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/sdkbridge/pkg/codec"
	"github.com/openfroyo/sdkbridge/pkg/credentials"
	"github.com/openfroyo/sdkbridge/pkg/dispatch"
	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/errpolicy"
	"github.com/openfroyo/sdkbridge/pkg/modules"
	"github.com/openfroyo/sdkbridge/pkg/naming"
	"github.com/openfroyo/sdkbridge/pkg/normalize"
	"github.com/openfroyo/sdkbridge/pkg/stores"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

const (
	// ReasonOK is the reason of every SUCCESS acknowledgment.
	ReasonOK = "OK"

	// ReasonInternalError is the FAILED reason when an error has no message.
	ReasonInternalError = "Internal Error"

	redactedURL = "..."
)

// ModuleLoader resolves the client module for a package.
type ModuleLoader interface {
	Load(ctx context.Context, packageName string, installLatest bool) (*modules.Module, error)
}

// CredentialResolver returns credentials for an assumed role, or nil for the
// ambient credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, roleArn, physicalID, region string) (aws.CredentialsProvider, error)
}

// InvocationRecorder journals acknowledged invocations.
type InvocationRecorder interface {
	RecordInvocation(ctx context.Context, inv *stores.Invocation) error
}

// Config wires a Handler. Loader and Responder are required.
type Config struct {
	Loader      ModuleLoader
	Responder   engine.Responder
	Decoder     engine.CallDecoder
	Credentials CredentialResolver
	Dispatcher  *dispatch.Dispatcher

	// Guard authorizes calls before dispatch. Nil allows every call.
	Guard engine.CallGuard

	// Journal records every acknowledgment. Nil disables journaling.
	Journal InvocationRecorder

	Telemetry *telemetry.Telemetry

	// LogStreamName returns the FAILED fallback physical id. Defaults to the
	// Lambda log stream name.
	LogStreamName func() string
}

// Handler processes lifecycle events. It is safe for concurrent use.
type Handler struct {
	loader        ModuleLoader
	responder     engine.Responder
	decoder       engine.CallDecoder
	credentials   CredentialResolver
	dispatcher    *dispatch.Dispatcher
	guard         engine.CallGuard
	journal       InvocationRecorder
	tel           *telemetry.Telemetry
	logger        *telemetry.Logger
	logStreamName func() string
}

// New creates a handler, filling unset collaborators with defaults.
func New(cfg Config) (*Handler, error) {
	if cfg.Loader == nil {
		return nil, errors.New("handler: module loader is required")
	}
	if cfg.Responder == nil {
		return nil, errors.New("handler: responder is required")
	}

	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.Nop()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = codec.NewDecoder()
	}
	if cfg.Credentials == nil {
		cfg.Credentials = credentials.NewResolver(credentials.WithTelemetry(tel.Logger, tel.Metrics))
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatch.NewDispatcher(tel.Logger, tel.Metrics, tel.Tracer)
	}
	if cfg.LogStreamName == nil {
		cfg.LogStreamName = func() string { return lambdacontext.LogStreamName }
	}

	return &Handler{
		loader:        cfg.Loader,
		responder:     cfg.Responder,
		decoder:       cfg.Decoder,
		credentials:   cfg.Credentials,
		dispatcher:    cfg.Dispatcher,
		guard:         cfg.Guard,
		journal:       cfg.Journal,
		tel:           tel,
		logger:        tel.Logger.NewComponentLogger("handler"),
		logStreamName: cfg.LogStreamName,
	}, nil
}

// Handle processes the event and delivers exactly one acknowledgment.
// Processing failures become FAILED acknowledgments; only a failure to
// deliver the acknowledgment is returned.
func (h *Handler) Handle(ctx context.Context, event cfn.Event) error {
	ack := h.Process(ctx, event)

	if err := h.responder.Respond(ctx, &event, ack); err != nil {
		h.logger.WithError(err).
			WithField("request_id", event.RequestID).
			Error("Failed to deliver acknowledgment")
		return fmt.Errorf("failed to deliver acknowledgment: %w", err)
	}
	return nil
}

// Process runs the event and returns the acknowledgment without delivering it.
func (h *Handler) Process(ctx context.Context, event cfn.Event) engine.Acknowledgment {
	requestType := string(event.RequestType)
	logger := h.logger.WithRequest(event.RequestID, requestType, event.LogicalResourceID)
	ctx = logger.WithContext(ctx)

	ctx, span := h.tel.Tracer.StartInvocationSpan(ctx, event.RequestID, requestType, event.LogicalResourceID)
	defer span.End()

	timer := telemetry.NewTimer()
	h.publish(event, telemetry.EventTypeInvocationStarted, telemetry.EventLevelInfo, "invocation started", nil)

	var target callTarget
	ack, err := h.acknowledge(ctx, &event, &target, span, timer, logger)
	h.record(ctx, &event, target, ack, err, timer.Duration())
	return ack
}

// acknowledge runs the event and builds its acknowledgment, recording the
// outcome on the span, metrics and events.
func (h *Handler) acknowledge(ctx context.Context, event *cfn.Event, target *callTarget, span trace.Span, timer *telemetry.Timer, logger *telemetry.Logger) (engine.Acknowledgment, error) {
	requestType := string(event.RequestType)

	physicalID, data, err := h.run(ctx, event, target, logger)
	if err != nil {
		reason := err.Error()
		if reason == "" {
			reason = ReasonInternalError
		}
		fallbackID := h.fallbackPhysicalID(event)

		logger.WithError(err).WithFields(map[string]interface{}{
			"error_code":  engine.CodeOf(err),
			"error_class": string(engine.ClassOf(err)),
		}).Error("Invocation failed")
		telemetry.RecordError(span, err)
		h.tel.Metrics.RecordInvocation(requestType, string(engine.StatusFailed), timer.Duration())
		h.publish(*event, telemetry.EventTypeInvocationFailed, telemetry.EventLevelError, reason,
			map[string]interface{}{"code": engine.CodeOf(err)})

		return engine.Acknowledgment{
			Status:             engine.StatusFailed,
			Reason:             reason,
			PhysicalResourceID: fallbackID,
			Data:               map[string]string{},
		}, err
	}

	span.SetAttributes(telemetry.AttrPhysicalID.String(physicalID))
	telemetry.RecordSuccess(span)
	h.tel.Metrics.RecordInvocation(requestType, string(engine.StatusSuccess), timer.Duration())
	h.publish(*event, telemetry.EventTypeInvocationSucceeded, telemetry.EventLevelInfo, "invocation succeeded",
		map[string]interface{}{"physical_resource_id": physicalID, "keys": len(data)})
	logger.WithFields(map[string]interface{}{
		"physical_resource_id": physicalID,
		"keys":                 len(data),
	}).Info("Invocation succeeded")

	return engine.Acknowledgment{
		Status:             engine.StatusSuccess,
		Reason:             ReasonOK,
		PhysicalResourceID: physicalID,
		Data:               data,
	}, nil
}

// callTarget is what run resolved before dispatch, for the journal.
type callTarget struct {
	packageName string
	action      string
}

// record journals the acknowledgment. Journal failures are logged only.
func (h *Handler) record(ctx context.Context, event *cfn.Event, target callTarget, ack engine.Acknowledgment, err error, duration time.Duration) {
	if h.journal == nil {
		return
	}

	data, marshalErr := json.Marshal(ack.Data)
	if marshalErr != nil {
		data = []byte("{}")
	}

	inv := &stores.Invocation{
		RequestID:          event.RequestID,
		RequestType:        string(event.RequestType),
		StackID:            event.StackID,
		LogicalResourceID:  event.LogicalResourceID,
		PhysicalResourceID: ack.PhysicalResourceID,
		Package:            target.packageName,
		Action:             target.action,
		Status:             ack.Status,
		Reason:             ack.Reason,
		ErrorCode:          engine.CodeOf(err),
		Data:               string(data),
		Duration:           duration,
	}
	if recordErr := h.journal.RecordInvocation(ctx, inv); recordErr != nil {
		h.logger.WithError(recordErr).WithField("request_id", event.RequestID).Warn("Failed to journal invocation")
	}
}

// run is the linear pass over one event. Panics are converted to errors so
// that a FAILED acknowledgment is still sent.
func (h *Handler) run(ctx context.Context, event *cfn.Event, target *callTarget, logger *telemetry.Logger) (physicalID string, data map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = engine.NewPermanentError(fmt.Sprint(r), nil)
		}
	}()

	inv, err := h.decoder.DecodeInvocation(event)
	if err != nil {
		return "", nil, err
	}
	if err := inv.RequestType.Validate(); err != nil {
		return "", nil, err
	}

	physicalID = ResolvePhysicalID(inv)
	call := inv.ActiveCall()
	if call == nil {
		logger.Debug("No call configured for request type")
		return physicalID, map[string]string{}, nil
	}

	target.action = call.Action
	packageName, err := naming.ResolvePackageName(call.Service)
	if err != nil {
		return "", nil, err
	}
	target.packageName = packageName
	logger = logger.WithFields(map[string]interface{}{
		"package": packageName,
		"action":  call.Action,
	})
	h.logEvent(event, logger)

	if err := h.authorize(ctx, event, inv, call, packageName, physicalID); err != nil {
		return "", nil, err
	}

	m, err := h.loader.Load(ctx, packageName, inv.InstallLatest)
	if err != nil {
		return "", nil, err
	}
	logger = logger.WithPackage(m.Package, m.Version)

	creds, err := h.credentials.Resolve(ctx, call.AssumedRoleArn, physicalID, call.Region)
	if err != nil {
		return "", nil, err
	}

	params := h.decoder.DecodeParameters(call.Parameters, physicalID)

	flat := normalize.FlatResponse{}
	data = map[string]string{}
	result, err := h.dispatcher.Dispatch(ctx, m, call, params, creds)
	switch {
	case err == nil:
		var regionErr error
		flat, regionErr = normalize.WithDiagnostics(ctx, result.Client, result.Response)
		if regionErr != nil {
			logger.WithError(regionErr).WithField("error_code", engine.CodeOf(regionErr)).
				Debug("Region not resolvable, omitted from response")
		}
		data = normalize.Filter(flat, normalize.OutputPrefixes(call))
	case errpolicy.ShouldSuppress(err, call.IgnoreErrorCodesMatching):
		code := engine.ErrorCode(err)
		command := dispatch.CommandName(call.Action)
		logger.WithError(err).WithFields(map[string]interface{}{
			"error_code": code,
			"pattern":    call.IgnoreErrorCodesMatching,
		}).Warn("Ignoring error matching ignoreErrorCodesMatching")
		trace.SpanFromContext(ctx).SetAttributes(
			telemetry.AttrSuppressed.Bool(true),
			telemetry.AttrErrorCode.String(code),
		)
		h.tel.Metrics.RecordSuppressedError(packageName, command)
		h.publish(*event, telemetry.EventTypeErrorSuppressed, telemetry.EventLevelWarning, err.Error(),
			map[string]interface{}{"package": packageName, "command": command, "code": code})
	case engine.CodeOf(err) == engine.ErrCodeAPICall:
		if _, perr := errpolicy.Match(engine.ErrorCode(err), call.IgnoreErrorCodesMatching); perr != nil {
			logger.WithError(perr).Warn("Invalid ignoreErrorCodesMatching pattern, error not ignored")
		}
		return "", nil, err
	default:
		return "", nil, err
	}

	if path, ok := call.ResponsePath(); ok {
		if value, found := flat[path]; found {
			physicalID = value
		} else {
			logger.WithField("response_path", path).Warn("Response path not present in response, keeping physical id")
		}
	}

	return physicalID, data, nil
}

func (h *Handler) authorize(ctx context.Context, event *cfn.Event, inv *engine.Invocation, call *engine.CallDescriptor, packageName, physicalID string) error {
	if h.guard == nil {
		return nil
	}
	err := h.guard.Authorize(ctx, engine.GuardInput{
		Service:            call.Service,
		Package:            packageName,
		Action:             call.Action,
		Region:             call.Region,
		RequestType:        inv.RequestType,
		AssumedRoleArn:     call.AssumedRoleArn,
		LogicalResourceID:  inv.LogicalResourceID,
		PhysicalResourceID: physicalID,
	})
	if err != nil && errors.Is(err, engine.ErrPolicyDenied) {
		h.publish(*event, telemetry.EventTypePolicyDenied, telemetry.EventLevelWarning, err.Error(),
			map[string]interface{}{"package": packageName, "action": call.Action})
	}
	return err
}

// ResolvePhysicalID picks the physical id before dispatch. Create prefers
// the explicit id of Create, then Update, then Delete, then the logical id.
// Update and Delete prefer their own explicit id, then the event's id.
func ResolvePhysicalID(inv *engine.Invocation) string {
	if inv.RequestType == engine.RequestCreate {
		for _, call := range []*engine.CallDescriptor{inv.Create, inv.Update, inv.Delete} {
			if id, ok := call.ExplicitID(); ok {
				return id
			}
		}
		return inv.LogicalResourceID
	}

	if id, ok := inv.ActiveCall().ExplicitID(); ok {
		return id
	}
	return inv.PhysicalResourceID
}

// fallbackPhysicalID is the id reported with FAILED acknowledgments.
func (h *Handler) fallbackPhysicalID(event *cfn.Event) string {
	if name := h.logStreamName(); name != "" {
		return name
	}
	if event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	return event.LogicalResourceID
}

// logEvent logs the event with the pre-signed response URL redacted.
func (h *Handler) logEvent(event *cfn.Event, logger *telemetry.Logger) {
	redacted := *event
	redacted.ResponseURL = redactedURL
	doc, err := json.Marshal(redacted)
	if err != nil {
		logger.WithError(err).Warn("Failed to encode event for logging")
		return
	}
	logger.RawJSON("event", doc, "Processing request")
}

func (h *Handler) publish(event cfn.Event, eventType, level, message string, data map[string]interface{}) {
	h.tel.Events.Publish(telemetry.Event{
		Type:              eventType,
		Source:            "handler",
		RequestID:         event.RequestID,
		LogicalResourceID: event.LogicalResourceID,
		Message:           message,
		Level:             level,
		Timestamp:         time.Now(),
		Data:              data,
	})
}
