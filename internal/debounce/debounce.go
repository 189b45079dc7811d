// Package debounce turns noisy level samples into stable transitions.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package debounce

import "time"

// Result describes what a sample did to the detector.
type Result int

const (
	// None means the stable level did not change.
	None Result = iota
	// Baseline means the first stable level was just established.
	Baseline
	// Changed means the stable level flipped.
	Changed
)

func (r Result) String() string {
	switch r {
	case Baseline:
		return "BASELINE"
	case Changed:
		return "CHANGED"
	default:
		return "NONE"
	}
}

// Counts tracks the number of transitions since startup.
type Counts struct {
	On  int
	Off int
}

// Detector debounces a single line. A level must be seen continuously for
// the debounce period before it becomes stable, both for the first (baseline)
// level and for every later transition.
type Detector struct {
	period time.Duration

	// Current stable (debounced) level
	stable bool
	// Pending level during debounce
	pending    bool
	hasPending bool
	// Time when pending level was first observed
	pendingSince time.Time
	// Whether we have established a baseline
	baselined bool

	counts Counts
}

// New creates a detector with the given debounce period. A zero period
// accepts every level on its first sample.
func New(period time.Duration) *Detector {
	return &Detector{period: period}
}

// Process takes a new sample and reports what happened.
func (d *Detector) Process(level bool, now time.Time) Result {
	// First time seeing this line
	if !d.baselined {
		if !d.hasPending || d.pending != level {
			// Start observing, or restart because the level changed
			d.pending = level
			d.hasPending = true
			d.pendingSince = now
		}
		if now.Sub(d.pendingSince) >= d.period {
			d.stable = level
			d.baselined = true
			d.hasPending = false
			return Baseline
		}
		return None
	}

	// Already baselined - detect transitions
	if level == d.stable {
		// No change from stable level, clear any pending
		d.hasPending = false
		return None
	}

	if !d.hasPending || d.pending != level {
		d.pending = level
		d.hasPending = true
		d.pendingSince = now
	}

	// Same pending level, check debounce
	if now.Sub(d.pendingSince) >= d.period {
		d.stable = level
		d.hasPending = false
		if level {
			d.counts.On++
		} else {
			d.counts.Off++
		}
		return Changed
	}

	return None
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Stable returns the current stable level. It is false before the baseline.
func (d *Detector) Stable() bool {
	return d.stable
}

// Counts returns the transition counts.
func (d *Detector) Counts() Counts {
	return d.counts
}

// Period returns the debounce period.
func (d *Detector) Period() time.Duration {
	return d.period
}
