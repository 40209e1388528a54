package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// DefaultFreshnessHorizon bounds how much of the future a burn-after-reading
// view discloses.
const DefaultFreshnessHorizon = 180 * time.Second

// Window is the part of a code sequence disclosed for one read.
type Window struct {
	Codes []string
	// Index is the position of Codes[0] in the full sequence.
	Index int
	// FirstCodeTimestamp is the start of Codes[0]'s validity window.
	FirstCodeTimestamp int64
}

// SelectWindow picks the codes valid at now. Window k spans
// [origin+k*period, origin+(k+1)*period), so every now inside one window
// yields the same result.
//
// Burn-after-reading links disclose ceil(horizon/period) codes; other links
// disclose everything from the current code to the end. Both truncate at the
// end of the sequence.
func SelectWindow(codes []string, period, origin int64, burnAfterReading bool, now time.Time, horizon time.Duration) (Window, error) {
	if period <= 0 {
		return Window{}, fmt.Errorf("select window: invalid period %d", period)
	}

	index := floorDiv(now.Unix()-origin, period)
	if index < 0 || index >= int64(len(codes)) {
		return Window{}, ErrOutOfSyncRange
	}

	windowStart := origin + index*period

	var selected []string
	if burnAfterReading {
		selected = lo.Subset(codes, int(index), uint(codesPerHorizon(horizon, period)))
	} else {
		selected = codes[index:]
	}

	return Window{
		Codes:              slices.Clone(selected),
		Index:              int(index),
		FirstCodeTimestamp: windowStart,
	}, nil
}

// codesPerHorizon is ceil(horizon/period), never less than one.
func codesPerHorizon(horizon time.Duration, period int64) int64 {
	if horizon <= 0 {
		horizon = DefaultFreshnessHorizon
	}
	secs := int64((horizon + time.Second - 1) / time.Second)
	n := (secs + period - 1) / period
	if n < 1 {
		return 1
	}
	return n
}

// floorDiv rounds toward negative infinity, unlike Go's / operator.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
