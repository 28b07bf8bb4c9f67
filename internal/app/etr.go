package app

import (
	"fmt"
	"math"
	"time"
)

const (
	// etrSampleInterval throttles how often a new rate sample is accepted.
	etrSampleInterval = 2 * time.Second
	// etrAlpha is the EMA weight given to the newest rate sample.
	etrAlpha = 0.3
	// etrMinRate is the activity floor: below this the transfer counts as
	// stalled and no estimate is shown.
	etrMinRate = 0.1
	// etrMinWindow rejects measurement windows too short to divide by.
	etrMinWindow = 0.1

	etrPlaceholder = "calculating..."
)

// ETRTracker converts raw progress counters into a smoothed
// seconds-remaining estimate. One tracker lives per acquisition session and
// is reset to empty when the session starts. Callers pass the clock in, so
// the tracker itself is deterministic.
type ETRTracker struct {
	started      bool
	startedAt    time.Time
	lastUpdate   time.Time
	lastItems    int
	rate         float64
	hasRate      bool
	remaining    float64
	hasRemaining bool
}

// Reset returns the tracker to its empty state.
func (t *ETRTracker) Reset() {
	*t = ETRTracker{}
}

// Sample feeds one progress observation into the tracker.
func (t *ETRTracker) Sample(items, total int, now time.Time) {
	if !t.started {
		t.started = true
		t.startedAt = now
		t.lastUpdate = now
		t.lastItems = items
		return
	}

	if now.Sub(t.lastUpdate) < etrSampleInterval {
		return
	}

	if items == 0 || total == 0 {
		t.hasRemaining = false
		return
	}

	delta := items - t.lastItems
	seconds := now.Sub(t.lastUpdate).Seconds()
	if delta <= 0 || seconds < etrMinWindow {
		// Keep the current estimate but start a fresh window.
		t.lastUpdate = now
		t.lastItems = items
		return
	}

	instant := float64(delta) / seconds
	if t.hasRate {
		t.rate = etrAlpha*instant + (1-etrAlpha)*t.rate
	} else {
		t.rate = instant
		t.hasRate = true
	}

	if t.rate < etrMinRate {
		t.hasRemaining = false
	} else {
		t.remaining = float64(total-items) / t.rate
		t.hasRemaining = true
	}

	t.lastUpdate = now
	t.lastItems = items
}

// Remaining returns the estimated seconds remaining and whether an estimate
// should be displayed at all.
func (t *ETRTracker) Remaining() (float64, bool) {
	return t.remaining, t.hasRemaining
}

// Rate returns the smoothed items-per-second rate, if one has been seeded.
func (t *ETRTracker) Rate() (float64, bool) {
	return t.rate, t.hasRate
}

// FormatRemaining renders a seconds-remaining value for display. Sub-minute
// values round up to whole seconds; minutes and the minutes remainder of an
// hour round up and carry a "~" approximation marker.
func FormatRemaining(seconds float64, known bool) string {
	if !known || seconds < 0 {
		return etrPlaceholder
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds remaining", int(math.Ceil(seconds)))
	}
	if seconds < 3600 {
		return fmt.Sprintf("~%dm remaining", int(math.Ceil(seconds/60)))
	}
	hours := int(seconds) / 3600
	minutes := int(math.Ceil((seconds - float64(hours)*3600) / 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if minutes == 0 {
		return fmt.Sprintf("~%dh remaining", hours)
	}
	return fmt.Sprintf("~%dh %dm remaining", hours, minutes)
}
