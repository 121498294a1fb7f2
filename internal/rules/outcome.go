package rules

import "strings"

// JobOutcome classifies a completed job's field data.
type JobOutcome string

const (
	// OutcomeRegisterFilled means a usable meter register reading was captured.
	OutcomeRegisterFilled JobOutcome = "register_filled"
	// OutcomeNoAccess means no reading was captured but an access obstacle
	// was recorded.
	OutcomeNoAccess JobOutcome = "no_access"
	// OutcomeIncomplete means neither a reading nor an access status exists.
	OutcomeIncomplete JobOutcome = "incomplete"
)

// JobData is the loosely-typed field data captured during a site visit.
// Register values and IDs arrive as decoded JSON, so elements may be
// strings, numbers, or nil.
type JobData struct {
	RegisterValues []any          `json:"registerValues,omitempty"`
	RegisterIDs    []any          `json:"registerIds,omitempty"`
	Reading        map[string]any `json:"reading,omitempty"`
	CustomerRead   string         `json:"customerRead,omitempty"`
	NoAccessReason string         `json:"noAccessReason,omitempty"`
}

// legacyReadingKeys are the meter types recognized on the legacy reading map.
var legacyReadingKeys = [...]string{"electric", "gas", "water"}

// NoAccessReasons is the closed set of canonical no-access reasons. Matching
// is exact after trimming; partial matches and case variants are rejected.
var NoAccessReasons = [...]string{
	"Property locked - no key access",
	"Dog on property - safety concern",
	"Occupant not home - appointment required",
	"Meter location inaccessible",
	"Property under construction",
	"Hazardous conditions present",
	"Permission denied by occupant",
	"Meter damaged - requires repair first",
}

var noAccessReasonSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(NoAccessReasons))
	for _, r := range NoAccessReasons {
		m[r] = struct{}{}
	}
	return m
}()

// HasRegisterFilled reports whether the job captured a usable register
// reading. Any one of three signals suffices: a leading register value that
// is not nil/empty/zero, a leading register ID that is not nil/empty, or a
// legacy electric/gas/water reading that is not nil/empty. A numeric zero is
// rejected on the register-value path but accepted on the legacy path; the
// asymmetry matches long-standing behavior and is left as is.
func HasRegisterFilled(job JobData) bool {
	if len(job.RegisterValues) > 0 && registerValueFilled(job.RegisterValues[0]) {
		return true
	}
	if len(job.RegisterIDs) > 0 && registerIDFilled(job.RegisterIDs[0]) {
		return true
	}
	for _, key := range legacyReadingKeys {
		if v, ok := job.Reading[key]; ok && legacyReadingFilled(v) {
			return true
		}
	}
	return false
}

// registerValueFilled rejects nil, empty strings, and numeric zero.
func registerValueFilled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return true
	}
}

// registerIDFilled rejects nil and empty strings only.
func registerIDFilled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	default:
		return true
	}
}

// legacyReadingFilled rejects nil and empty strings; numeric zero passes.
func legacyReadingFilled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	default:
		return true
	}
}

// HasNoAccessStatus reports whether the job carries either a customer-read
// access status or a no-access reason.
func HasNoAccessStatus(job JobData) bool {
	return job.CustomerRead != "" || job.NoAccessReason != ""
}

// IsValidNoAccessReason reports whether the trimmed text exactly matches one
// of the canonical no-access reasons.
func IsValidNoAccessReason(text string) bool {
	_, ok := noAccessReasonSet[strings.TrimSpace(text)]
	return ok
}

// Classify maps a job's field data to its outcome. A filled register always
// wins over a recorded no-access status; jobs with neither are incomplete.
func Classify(job JobData) JobOutcome {
	if HasRegisterFilled(job) {
		return OutcomeRegisterFilled
	}
	if HasNoAccessStatus(job) {
		return OutcomeNoAccess
	}
	return OutcomeIncomplete
}
