package internaldefs

import (
	authengine "github.com/pulsefit/authengine"
)

// CounterDef maps an engine counter to its exported metric name.
type CounterDef struct {
	ID   authengine.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported metric name.
type HistogramDef struct {
	ID   authengine.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter table. Both exporters iterate it, so
// the two surfaces always expose the same names.
var CounterDefs = []CounterDef{
	{ID: authengine.MetricLoginSuccess, Name: "authengine_login_success_total", Help: "Successful logins."},
	{ID: authengine.MetricLoginFailure, Name: "authengine_login_failure_total", Help: "Failed login attempts."},
	{ID: authengine.MetricLoginThrottled, Name: "authengine_login_throttled_total", Help: "Login attempts denied by the throttle."},
	{ID: authengine.MetricTwoFactorRequired, Name: "authengine_two_factor_required_total", Help: "Logins parked in a pending two-factor session."},
	{ID: authengine.MetricTwoFactorSuccess, Name: "authengine_two_factor_success_total", Help: "Completed two-factor logins."},
	{ID: authengine.MetricTwoFactorFailure, Name: "authengine_two_factor_failure_total", Help: "Failed two-factor completions."},
	{ID: authengine.MetricTwoFactorReplay, Name: "authengine_two_factor_replay_total", Help: "Two-factor completions against an already-consumed pending session."},
	{ID: authengine.MetricRefreshSuccess, Name: "authengine_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authengine.MetricRefreshFailure, Name: "authengine_refresh_failure_total", Help: "Failed refresh attempts, excluding reuse."},
	{ID: authengine.MetricRefreshReuse, Name: "authengine_refresh_reuse_total", Help: "Refresh token reuses; each one revoked a session family."},
	{ID: authengine.MetricRefreshThrottled, Name: "authengine_refresh_throttled_total", Help: "Refresh attempts denied by the throttle."},
	{ID: authengine.MetricSessionCreated, Name: "authengine_session_created_total", Help: "Created sessions."},
	{ID: authengine.MetricSessionRevoked, Name: "authengine_session_revoked_total", Help: "Revoked sessions."},
	{ID: authengine.MetricLogout, Name: "authengine_logout_total", Help: "Logout operations."},
	{ID: authengine.MetricRegisterSuccess, Name: "authengine_register_success_total", Help: "Successful registrations."},
	{ID: authengine.MetricRegisterFailure, Name: "authengine_register_failure_total", Help: "Failed registration attempts."},
}

// HistogramDefs is the shared histogram table.
var HistogramDefs = []HistogramDef{
	{ID: authengine.MetricVerifyLatency, Name: "authengine_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed millisecond buckets.
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

// HistogramBoundSuffix renders the same bounds as metric-name-safe
// suffixes for backends without native histogram support.
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
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
