// Package syncerr defines the error kinds surfaced by the sync core.
//
// Errors are wrapped with fmt.Errorf("...: %w") on their way up and can be
// checked using errors.Is():
//
//	if errors.Is(err, syncerr.ErrAuth) {
//	    // ask the user to sign in again
//	}
package syncerr

import "errors"

var (
	// ErrNetwork is returned when the transport failed or timed out.
	// No local writes happen after it.
	ErrNetwork = errors.New("network error")

	// ErrAuth is returned when the remote rejected the credential.
	// It is never retried silently.
	ErrAuth = errors.New("credential rejected")

	// ErrPolicyViolation is returned for a single record whose merge would
	// break an entity invariant. The record is skipped, the pass continues.
	ErrPolicyViolation = errors.New("merge policy violation")

	// ErrStoreTransaction is returned when a local transaction failed.
	// Nothing from that transaction scope is applied.
	ErrStoreTransaction = errors.New("store transaction failed")

	// ErrAlreadySyncing is reported when a sync was requested while another
	// session is in flight. The request is dropped.
	ErrAlreadySyncing = errors.New("sync already in progress")
)

// ErrorKind names the category of an error
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindNetwork         ErrorKind = "network"
	KindAuth            ErrorKind = "auth"
	KindPolicyViolation ErrorKind = "policy_violation"
	KindStore           ErrorKind = "store"
	KindUnknown         ErrorKind = "unknown"
)

// Kind classifies err. Auth wins over network when both are wrapped.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrStoreTransaction):
		return KindStore
	case errors.Is(err, ErrPolicyViolation):
		return KindPolicyViolation
	default:
		return KindUnknown
	}
}
