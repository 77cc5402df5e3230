package internaldefs

import (
	"github.com/nmscott14/authgate"
)

// CounterDef defines a public type used by authgate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authgate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricSessionRotated, Name: "authgate_session_rotated_total", Help: "Session credential rotations."},
	{ID: authgate.MetricSessionRejected, Name: "authgate_session_rejected_total", Help: "Session credentials rejected as expired or invalid."},
	{ID: authgate.MetricSignupSuccess, Name: "authgate_signup_success_total", Help: "Successful account creations."},
	{ID: authgate.MetricSignupDuplicate, Name: "authgate_signup_duplicate_total", Help: "Signups rejected as duplicate email or username."},
	{ID: authgate.MetricProfileUpdate, Name: "authgate_profile_update_total", Help: "Applied profile updates."},
	{ID: authgate.MetricVerificationIssued, Name: "authgate_verification_issued_total", Help: "Issued email-verification tokens."},
	{ID: authgate.MetricVerificationConfirmed, Name: "authgate_verification_confirmed_total", Help: "Confirmed email verifications."},
	{ID: authgate.MetricVerificationFailure, Name: "authgate_verification_failure_total", Help: "Rejected email-verification attempts."},
	{ID: authgate.MetricVerificationRateLimited, Name: "authgate_verification_rate_limited_total", Help: "Verification requests rejected by the re-issuance cooldown."},
	{ID: authgate.MetricResetIssued, Name: "authgate_reset_issued_total", Help: "Issued password-reset tokens."},
	{ID: authgate.MetricResetConfirmed, Name: "authgate_reset_confirmed_total", Help: "Confirmed password resets."},
	{ID: authgate.MetricResetFailure, Name: "authgate_reset_failure_total", Help: "Rejected password-reset attempts."},
	{ID: authgate.MetricResetRateLimited, Name: "authgate_reset_rate_limited_total", Help: "Reset requests rejected by the re-issuance cooldown."},
	{ID: authgate.MetricDeliveryFailure, Name: "authgate_delivery_failure_total", Help: "Failed token deliveries."},
	{ID: authgate.MetricRateLimitHit, Name: "authgate_rate_limit_hit_total", Help: "Requests denied by the per-IP limiter."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// eight-bucket layout.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
