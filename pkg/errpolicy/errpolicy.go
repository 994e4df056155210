// Package errpolicy decides whether an SDK error is benign for a call.
package errpolicy

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// MatchTimeout bounds a single pattern evaluation.
const MatchTimeout = time.Second

// ShouldSuppress reports whether err should be swallowed under the
// ignoreErrorCodesMatching pattern. Only errors returned by the API call
// itself (API_CALL_ERROR) are candidates; structural failures such as a
// missing client or command never are. An empty or invalid pattern never
// suppresses.
func ShouldSuppress(err error, pattern string) bool {
	if engine.CodeOf(err) != engine.ErrCodeAPICall {
		return false
	}
	ok, _ := Match(engine.ErrorCode(err), pattern)
	return ok
}

// Match tests the pattern, with JavaScript RegExp semantics, against an
// error code. The match is unanchored. Errors without a code are tested as
// the empty string.
func Match(code, pattern string) (bool, error) {
	if pattern == "" {
		return false, nil
	}

	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return false, fmt.Errorf("invalid ignoreErrorCodesMatching pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = MatchTimeout

	ok, err := re.MatchString(code)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate ignoreErrorCodesMatching pattern %q: %w", pattern, err)
	}
	return ok, nil
}
