package domain

import "fmt"

// ValidationError reports malformed manual input. It is surfaced to the
// user inline and its result is never cached.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// ScanFailure reports that the scan boundary was unreachable or returned
// malformed data. It is returned to the immediate caller, never retried
// automatically.
type ScanFailure struct {
	Domain string
	Cause  string
	Err    error
}

func (e *ScanFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan failed for %s: %s: %v", e.Domain, e.Cause, e.Err)
	}
	return fmt.Sprintf("scan failed for %s: %s", e.Domain, e.Cause)
}

func (e *ScanFailure) Unwrap() error { return e.Err }

// DeliveryFailure reports that a page or UI surface could not be reached
// for a side-effect message. Callers swallow it after logging; these are
// best-effort notifications, not guaranteed delivery.
type DeliveryFailure struct {
	Target string
	Err    error
}

func (e *DeliveryFailure) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Target, e.Err)
}

func (e *DeliveryFailure) Unwrap() error { return e.Err }
