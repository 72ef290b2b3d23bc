package domain

import (
	"errors"
	"strings"
)

var (
	// ErrUpstreamMalformed indicates the upstream responded with a payload of the wrong shape.
	ErrUpstreamMalformed = errors.New("upstream payload malformed")
	// ErrUpstreamUnavailable indicates the upstream timed out, refused the connection or returned a non-2xx status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// DegradationPolicyMode enumerates how upstream failures are surfaced to clients.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient answers every upstream failure with the stored window.
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects requests whose upstream payload is malformed.
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationReason captures why a fetch could not contribute new numbers.
type DegradationReason string

const (
	// DegradationReasonUpstreamMalformed denotes a response without a usable numbers list.
	DegradationReasonUpstreamMalformed DegradationReason = "upstream_malformed"
	// DegradationReasonUpstreamUnavailable denotes timeouts, network failures and non-2xx statuses.
	DegradationReasonUpstreamUnavailable DegradationReason = "upstream_unavailable"
)

// DegradationPolicy centralises how the service responds when the upstream fetch fails.
type DegradationPolicy struct {
	mode DegradationPolicyMode
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalises textual input into a supported policy mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// IsStrict indicates whether the policy rejects malformed upstream payloads.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}

// AllowsFallback determines if the request may continue with the stored window for the given reason.
// Unavailability always degrades gracefully; malformed payloads only under the lenient policy.
func (p DegradationPolicy) AllowsFallback(reason DegradationReason) bool {
	if reason == DegradationReasonUpstreamMalformed {
		return !p.IsStrict()
	}
	return true
}

// ClassifyFetchError maps an upstream error onto a degradation reason.
func ClassifyFetchError(err error) DegradationReason {
	if errors.Is(err, ErrUpstreamMalformed) {
		return DegradationReasonUpstreamMalformed
	}
	return DegradationReasonUpstreamUnavailable
}
