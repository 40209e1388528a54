package service

import "errors"

var (
	// ErrLinkNotFound means no link exists for the id.
	ErrLinkNotFound = errors.New("link not found")
	// ErrLinkExpired means the link is past its expiry; it overrides every other state.
	ErrLinkExpired = errors.New("link expired")
	// ErrLinkBurned means a burn-after-reading link was already read once.
	ErrLinkBurned = errors.New("this link has already been burned")
	// ErrOutOfSyncRange means the current window falls outside the stored code sequence.
	ErrOutOfSyncRange = errors.New("time out of sync range")
	// ErrInvalidInput wraps link creation validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// Failure is a stable tag for a redemption error that hosts can branch on.
type Failure string

const (
	FailureNone      Failure = ""
	FailureNotFound  Failure = "not_found"
	FailureExpired   Failure = "expired"
	FailureBurned    Failure = "burned"
	FailureOutOfSync Failure = "out_of_sync"
	FailureInternal  Failure = "internal"
)

// Classify maps err onto its Failure tag. Unknown errors are internal.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrLinkNotFound):
		return FailureNotFound
	case errors.Is(err, ErrLinkExpired):
		return FailureExpired
	case errors.Is(err, ErrLinkBurned):
		return FailureBurned
	case errors.Is(err, ErrOutOfSyncRange):
		return FailureOutOfSync
	default:
		return FailureInternal
	}
}

// Retriable reports whether the requester may succeed by retrying with a corrected clock.
func (f Failure) Retriable() bool {
	return f == FailureOutOfSync
}
