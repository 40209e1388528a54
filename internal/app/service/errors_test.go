package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Failure
	}{
		{nil, FailureNone},
		{ErrLinkNotFound, FailureNotFound},
		{ErrLinkExpired, FailureExpired},
		{ErrLinkBurned, FailureBurned},
		{ErrOutOfSyncRange, FailureOutOfSync},
		{fmt.Errorf("redeem: %w", ErrLinkBurned), FailureBurned},
		{errors.New("boom"), FailureInternal},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestFailure_Retriable(t *testing.T) {
	for _, f := range []Failure{FailureNotFound, FailureExpired, FailureBurned, FailureInternal} {
		if f.Retriable() {
			t.Fatalf("%q must not be retriable", f)
		}
	}
	if !FailureOutOfSync.Retriable() {
		t.Fatal("out_of_sync should be retriable")
	}
}
