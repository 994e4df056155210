// Package engine provides the core types and interfaces for sdkbridge.
//
// # Overview
//
// sdkbridge turns a declarative custom-resource descriptor ("call service X,
// action Y, with parameters P") into a provider API call and reports a flat
// result back to the orchestrator. One lifecycle event is handled per
// invocation, in a single linear pass:
//
//  1. Decode - typed CallDescriptors per verb (CallDecoder)
//  2. Identify - resolve the physical resource id
//  3. Resolve - map the service to a client package and load its module
//  4. Dispatch - build client and command, send, apply the error policy
//  5. Report - flatten, filter and acknowledge (Responder)
//
// # Core Domain Types
//
//   - CallDescriptor: one API action with its output and error policies
//   - Invocation: the decoded event with the three optional descriptors
//   - Acknowledgment: the SUCCESS/FAILED outcome with data
//
// # Error Classification
//
// Errors are EngineError values carrying a class and a code. The message is
// what the orchestrator sees as the failure reason, so it is kept verbatim:
//
//	if errors.Is(err, engine.ErrPackageNotFound) {
//	    // the client package could not be resolved
//	}
package engine
