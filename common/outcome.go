package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/devopsext/utils"
)

// ProbeStatus is the closed outcome taxonomy of a single probe. A missing
// case in the report routing is a defect, not a silent failure bucket.
type ProbeStatus int

const (
	StatusUnknown ProbeStatus = iota
	StatusSuccess
	StatusUnexpectedContent
	StatusInvalidContent
	StatusCloudflare
	StatusServerError
	StatusRateLimited
	StatusUnauthorized
	StatusError
	StatusTimeout
	StatusRequestFail
)

func (s ProbeStatus) String() string {

	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUnexpectedContent:
		return "UNEXPECTED_CONTENT"
	case StatusInvalidContent:
		return "INVALID_CONTENT"
	case StatusCloudflare:
		return "CONTENT_IS_CLOUDFLARE"
	case StatusServerError:
		return "SERVER_ERROR_50X"
	case StatusRateLimited:
		return "429"
	case StatusUnauthorized:
		return "401"
	case StatusError:
		return "ERROR"
	case StatusTimeout:
		return "TIME_OUT"
	case StatusRequestFail:
		return "REQUEST_FAIL"
	}
	return "UNKNOWN"
}

// LatencyUnknown marks a latency that could not be measured (timeout or
// implausible value). Sorting treats it as +infinity.
const LatencyUnknown = float64(-1)

// ProbeOutcome is the result of probing one concrete URL.
type ProbeOutcome struct {
	Status    ProbeStatus
	Code      int
	Data      string
	Latency   float64
	Timestamp time.Time
}

// ValidationRules decide whether an extracted response text counts as a
// real service answer: every include word must be present and the fail
// pattern must not match.
type ValidationRules struct {
	IncludeWords []string
	failRegex    *regexp.Regexp
}

// NewValidationRules compiles the ruleset, an invalid pattern fails fast
// at startup rather than per probe.
func NewValidationRules(includeWords []string, failPattern string) (*ValidationRules, error) {

	words := []string{}
	for _, w := range includeWords {
		if utils.IsEmpty(w) {
			return nil, fmt.Errorf("validation rules contain an empty include word")
		}
		words = append(words, w)
	}

	var re *regexp.Regexp
	if !utils.IsEmpty(failPattern) {
		var err error
		re, err = regexp.Compile(failPattern)
		if err != nil {
			return nil, fmt.Errorf("validation rules have invalid fail pattern %s, error: %s", failPattern, err)
		}
	}

	r := &ValidationRules{
		IncludeWords: words,
		failRegex:    re,
	}
	return r, nil
}

// Validate returns true when the text satisfies the ruleset.
func (vr *ValidationRules) Validate(text string) bool {

	for _, w := range vr.IncludeWords {
		if !strings.Contains(text, w) {
			return false
		}
	}

	if vr.failRegex != nil && vr.failRegex.MatchString(text) {
		return false
	}
	return true
}
