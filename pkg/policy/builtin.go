package policy

import (
	"time"
)

// Built-in policy names.
const (
	BuiltinReadOnly         = "read-only"
	BuiltinNoRoleAssumption = "no-role-assumption"
	BuiltinRegionRequired   = "region-required"
)

// GetBuiltinPolicies returns all built-in policies, disabled.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		readOnlyPolicy(),
		noRoleAssumptionPolicy(),
		regionRequiredPolicy(),
	}
}

// readOnlyPolicy denies actions that are not reads.
func readOnlyPolicy() Policy {
	return Policy{
		Name:        BuiltinReadOnly,
		Description: "Only allows read actions (Get, List, Describe, Head, Query, Scan, Search, Lookup)",
		Severity:    SeverityError,
		Tags:        []string{"access"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package sdkbridge.builtin.readonly

read_prefixes := ["get", "list", "describe", "head", "query", "scan", "search", "lookup", "batchget"]

read_action(action) if {
	some prefix in read_prefixes
	startswith(action, prefix)
}

deny contains violation if {
	not read_action(lower(input.action))
	violation := {
		"message": sprintf("Action %s of %s is not a read action", [input.action, input.package]),
		"severity": "error",
	}
}
`,
	}
}

// noRoleAssumptionPolicy denies calls that assume a role.
func noRoleAssumptionPolicy() Policy {
	return Policy{
		Name:        BuiltinNoRoleAssumption,
		Description: "Denies calls that assume another role",
		Severity:    SeverityError,
		Tags:        []string{"credentials"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package sdkbridge.builtin.noassume

deny contains violation if {
	input.assumedRoleArn != ""
	violation := {
		"message": sprintf("Assuming role %s is not allowed", [input.assumedRoleArn]),
		"severity": "error",
	}
}
`,
	}
}

// regionRequiredPolicy warns when a call relies on the ambient region.
func regionRequiredPolicy() Policy {
	return Policy{
		Name:        BuiltinRegionRequired,
		Description: "Warns when a call does not name a region",
		Severity:    SeverityWarning,
		Tags:        []string{"conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package sdkbridge.builtin.region

deny contains violation if {
	not input.region
	violation := {
		"message": sprintf("Call %s does not set a region", [input.action]),
		"severity": "warning",
	}
}
`,
	}
}
