// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"strconv"
)

const (
	// minProgressStep is the smallest height delta between two progress
	// notifications.
	minProgressStep = 10

	// progressStepDivisor splits the initial catch-up distance into at
	// most this many progress notifications.
	progressStepDivisor = 1000

	// progressComplete is the rendered value of a fully synced store.
	progressComplete = "1.000000"

	// progressNone is the rendered value of a store with nothing synced.
	progressNone = "0.000000"
)

// progressTracker derives a throttled completion fraction from the local and
// remote heights.  It is owned by the engine and must only be used with the
// engine lock held.
type progressTracker struct {
	// value is the completion fraction rendered with six decimals.
	value string

	// step is the minimum local height delta between notifications.
	step int32

	// latest is the local height at which progress was last reported.
	latest int32
}

// progressStep returns the notification granularity for a catch-up from
// local to remote: one thousandth of the distance, but never less than
// minProgressStep.
func progressStep(local, remote BlockRef) int32 {
	step := (remote.Height - local.Height) / progressStepDivisor
	if step < minProgressStep {
		step = minProgressStep
	}
	return step
}

// progressValue renders local.Height / remote.Height with six decimals,
// clamped to [0, 1].  A remote chain at height zero or below is complete once
// the local height reaches it.
func progressValue(local, remote BlockRef) string {
	if remote.Height <= 0 {
		if local.Height >= remote.Height {
			return progressComplete
		}
		return progressNone
	}

	value := float64(local.Height) / float64(remote.Height)
	switch {
	case value < 0:
		value = 0
	case value > 1:
		value = 1
	}
	return strconv.FormatFloat(value, 'f', 6, 64)
}

// newProgressTracker returns a tracker seeded for a catch-up from local to
// remote.  The value is left empty until the first update.
func newProgressTracker(local, remote BlockRef) *progressTracker {
	return &progressTracker{
		step:   progressStep(local, remote),
		latest: local.Height,
	}
}

// update recomputes the completion value and reports whether a progress
// notification is due.  A notification is due once the local height has
// advanced by at least step since the last one, or whenever the value reads
// as complete.  latest is moved to the local height before returning true so
// one threshold crossing yields exactly one notification.
func (p *progressTracker) update(local, remote BlockRef) bool {
	p.value = progressValue(local, remote)
	if local.Height >= p.latest+p.step || p.value == progressComplete {
		p.latest = local.Height
		return true
	}
	return false
}
