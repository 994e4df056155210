package errpolicy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

func apiError(code string) error {
	return engine.NewAPICallError("@aws-sdk/client-iam", "GetRoleCommand",
		&smithy.GenericAPIError{Code: code, Message: code + " happened"})
}

func TestShouldSuppress(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		pattern string
		want    bool
	}{
		{"no pattern", apiError("NotFound"), "", false},
		{"exact match", apiError("NotFound"), "NotFound", true},
		{"non matching", apiError("NotFound"), "Throttl.*", false},
		{"unanchored", apiError("NoSuchEntity"), "Such", true},
		{"alternation", apiError("ResourceNotFoundException"), "NoSuchEntity|ResourceNotFound.*", true},
		{"anchored miss", apiError("XNotFound"), "^NotFound$", false},
		{"wrapped", fmt.Errorf("dispatch: %w", apiError("NoSuchEntity")), "NoSuchEntity", true},
		{"invalid pattern", apiError("NotFound"), "(", false},
		{"api error without code", engine.NewAPICallError("@aws-sdk/client-iam", "GetRoleCommand", errors.New("boom")), ".*", true},
		{"plain error", errors.New("boom"), ".*", false},
		{"bare provider error", &smithy.GenericAPIError{Code: "NotFound"}, "NotFound", false},
		{"command not found", engine.NewCommandNotFoundError("@aws-sdk/client-iam", "DeleteEverythingCommand"), ".*", false},
		{"client not found", engine.NewClientNotFoundError("@aws-sdk/client-iam"), ".*", false},
		{"invalid input", engine.NewPermanentError("bad params", nil).WithCode(engine.ErrCodeInvalidInput), "^$", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSuppress(tt.err, tt.pattern); got != tt.want {
				t.Errorf("ShouldSuppress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchReportsInvalidPattern(t *testing.T) {
	ok, err := Match("NotFound", "[")
	if err == nil {
		t.Error("Expected compile error")
	}
	if ok {
		t.Error("Invalid pattern must not match")
	}
}

func TestMatchECMAScriptSyntax(t *testing.T) {
	// \d in ECMAScript mode matches ASCII digits only.
	ok, err := Match("Error503", `Error\d{3}`)
	if err != nil {
		t.Fatalf("Match() returned error: %v", err)
	}
	if !ok {
		t.Error("Expected match")
	}
}
