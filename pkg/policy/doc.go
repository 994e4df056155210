// Package policy authorizes provider calls with Open Policy Agent.
//
// Policies are Rego modules that define a deny set. Each element is either a
// message string or an object with "message" and optional "severity". A call
// is denied when any enabled policy produces a violation with severity error
// or critical; info and warning violations are logged only.
//
// The input document is engine.GuardInput:
//
//	{
//	  "service": "S3",
//	  "package": "@aws-sdk/client-s3",
//	  "action": "listBuckets",
//	  "region": "us-east-1",
//	  "requestType": "Create",
//	  "assumedRoleArn": "arn:aws:iam::123456789012:role/reader",
//	  "logicalResourceId": "MyResource",
//	  "physicalResourceId": "MyResource"
//	}
//
// Example policy:
//
//	package sdkbridge.guard
//
//	deny contains msg if {
//	    input.action == "deleteBucket"
//	    msg := "bucket deletion is not allowed"
//	}
//
// Usage:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"/opt/policies"}); err != nil {
//	    return err
//	}
//	if err := eng.Authorize(ctx, input); err != nil {
//	    // errors.Is(err, engine.ErrPolicyDenied)
//	}
//
// An engine with no enabled policies allows every call. Built-in policies are
// registered disabled and switched on with EnablePolicy.
package policy
