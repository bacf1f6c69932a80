package lightning

import "errors"

var (
	// ErrServiceFailed reports a node RPC or stream that returned a
	// non-success status for a reason the caller cannot remedy by retrying.
	ErrServiceFailed = errors.New("lightning service failed")

	// ErrServiceUnavailable reports a payment attempt that failed for a
	// transient reason. The caller may retry or reroute.
	ErrServiceUnavailable = errors.New("lightning service unavailable")

	// ErrPolicyViolation reports a precondition failure. No RPC has been
	// attempted.
	ErrPolicyViolation = errors.New("policy violation")
)
