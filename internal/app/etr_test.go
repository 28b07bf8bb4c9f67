package app

import (
	"math"
	"testing"
	"time"
)

func TestFormatRemainingBoundaries(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0s remaining"},
		{5.1, "6s remaining"},
		{59, "59s remaining"},
		{60, "~1m remaining"},
		{119, "~2m remaining"},
		{120, "~2m remaining"},
		{121, "~3m remaining"},
		{3600, "~1h remaining"},
		{3601, "~1h 1m remaining"},
		{3660, "~1h 1m remaining"},
		{3661, "~1h 2m remaining"},
		{7199, "~2h remaining"},
		{7200, "~2h remaining"},
		{7201, "~2h 1m remaining"},
	}
	for _, c := range cases {
		if got := FormatRemaining(c.seconds, true); got != c.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestFormatRemainingUnknownUsesPlaceholder(t *testing.T) {
	if got := FormatRemaining(0, false); got != "calculating..." {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := FormatRemaining(-1, true); got != "calculating..." {
		t.Fatalf("expected placeholder for negative seconds, got %q", got)
	}
}

func TestTrackerFirstSampleOnlySeedsBaseline(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	if _, ok := tracker.Remaining(); ok {
		t.Fatal("expected no estimate after the baseline sample")
	}
	if _, ok := tracker.Rate(); ok {
		t.Fatal("expected no rate after the baseline sample")
	}
}

func TestTrackerSeedsRateFromFirstRealSample(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	tracker.Sample(20, 100, base.Add(2*time.Second))

	rate, ok := tracker.Rate()
	if !ok || rate != 5 {
		t.Fatalf("expected seeded rate 5, got %v (ok=%v)", rate, ok)
	}
	remaining, ok := tracker.Remaining()
	if !ok || remaining != 16 {
		t.Fatalf("expected 16s remaining, got %v (ok=%v)", remaining, ok)
	}
}

func TestTrackerThrottlesRapidSamples(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	tracker.Sample(15, 100, base.Add(time.Second))
	if _, ok := tracker.Remaining(); ok {
		t.Fatal("sample inside the throttle window must not produce an estimate")
	}

	// The throttled sample did not move the baseline; the next accepted
	// sample measures from the original one.
	tracker.Sample(20, 100, base.Add(2*time.Second))
	rate, _ := tracker.Rate()
	if rate != 5 {
		t.Fatalf("expected rate 5 measured from baseline, got %v", rate)
	}
}

func TestTrackerEMAConvergesAndStaysPositive(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Seed at 5 items/s, then hold a steady 10 items/s.
	tracker.Sample(0, 1000, base)
	tracker.Sample(10, 1000, base.Add(2*time.Second))

	now := base.Add(2 * time.Second)
	items := 10
	prevRate, _ := tracker.Rate()
	for i := 0; i < 20; i++ {
		now = now.Add(2 * time.Second)
		items += 20
		tracker.Sample(items, 1000, now)
		rate, ok := tracker.Rate()
		if !ok || rate < 0 {
			t.Fatalf("rate must stay set and non-negative, got %v (ok=%v)", rate, ok)
		}
		if rate < prevRate {
			t.Fatalf("rate moved away from the steady-state value: %v -> %v", prevRate, rate)
		}
		if rate > 10 {
			t.Fatalf("rate overshot the steady-state value: %v", rate)
		}
		prevRate = rate
	}
	if math.Abs(prevRate-10) > 0.2 {
		t.Fatalf("expected convergence toward 10 items/s, got %v", prevRate)
	}
}

func TestTrackerStallClearsEstimate(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	// 1 item in 20 seconds: 0.05 items/s, below the activity floor.
	tracker.Sample(11, 100, base.Add(20*time.Second))
	if _, ok := tracker.Remaining(); ok {
		t.Fatal("a rate below the stall floor must clear the estimate")
	}
}

func TestTrackerZeroCountersClearEstimate(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	tracker.Sample(20, 100, base.Add(2*time.Second))
	if _, ok := tracker.Remaining(); !ok {
		t.Fatal("expected an estimate before the zero sample")
	}

	tracker.Sample(0, 0, base.Add(4*time.Second))
	if _, ok := tracker.Remaining(); ok {
		t.Fatal("zero counters must clear the estimate")
	}
}

func TestTrackerNoProgressKeepsEstimateAndAdvancesWindow(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	tracker.Sample(20, 100, base.Add(2*time.Second))
	before, ok := tracker.Remaining()
	if !ok {
		t.Fatal("expected an initial estimate")
	}

	// No new items: estimate unchanged, but the window restarts.
	tracker.Sample(20, 100, base.Add(4*time.Second))
	after, ok := tracker.Remaining()
	if !ok || after != before {
		t.Fatalf("expected estimate to stay at %v, got %v (ok=%v)", before, after, ok)
	}

	// The next sample measures from the restarted window, not from base.
	tracker.Sample(30, 100, base.Add(6*time.Second))
	rate, _ := tracker.Rate()
	want := etrAlpha*5 + (1-etrAlpha)*5
	if math.Abs(rate-want) > 1e-9 {
		t.Fatalf("expected rate %v from the fresh window, got %v", want, rate)
	}
}

func TestTrackerResetForgetsSession(t *testing.T) {
	var tracker ETRTracker
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.Sample(10, 100, base)
	tracker.Sample(20, 100, base.Add(2*time.Second))
	tracker.Reset()

	if _, ok := tracker.Remaining(); ok {
		t.Fatal("reset must clear the estimate")
	}
	tracker.Sample(5, 100, base.Add(10*time.Second))
	if _, ok := tracker.Rate(); ok {
		t.Fatal("first sample after reset must only seed the baseline")
	}
}
