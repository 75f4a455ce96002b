package firmware

import "time"

// Timer is a free-running tick source polled by the loop. Expired reports
// whether the timer overflowed since the last call and clears the flag.
type Timer interface {
	Expired() bool
}

// Ticker is a Timer backed by a time.Ticker. Ticks missed between two polls
// collapse into one.
type Ticker struct {
	t *time.Ticker
}

// NewTicker returns a Ticker that overflows every period.
func NewTicker(period time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(period)}
}

// Expired implements Timer. It never blocks.
func (t *Ticker) Expired() bool {
	select {
	case <-t.t.C:
		return true
	default:
		return false
	}
}

// Stop turns off the ticker.
func (t *Ticker) Stop() {
	t.t.Stop()
}

const (
	// BaseThreshold is the number of ticks per fall step before any line is
	// cleared.
	BaseThreshold = 8
	// LinesPerLevel cleared lines shorten the fall period by one tick.
	LinesPerLevel = 10
)

// Threshold returns how many ticks the active piece waits between fall steps.
// Holding soft drop makes it fall on every tick.
func Threshold(lines uint16, soft bool) uint {
	if soft {
		return 1
	}
	level := uint(lines / LinesPerLevel)
	if level >= BaseThreshold-1 {
		return 1
	}
	return BaseThreshold - level
}
