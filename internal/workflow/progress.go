package workflow

import (
	"math/rand"
	"time"
)

// Simulated progress never passes this value before the agent completes.
const progressCeiling = 85

// advanceProgress adds step to cur, capped at the ceiling. ok is false
// once the ceiling was already reached.
func advanceProgress(cur, step int) (next int, ok bool) {
	if cur >= progressCeiling {
		return cur, false
	}
	next = cur + step
	if next > progressCeiling {
		next = progressCeiling
	}
	return next, true
}

// randomStep returns 5..15.
func randomStep() int { return 5 + rand.Intn(11) }

// tickChannel returns a ticker channel, or nil when interval disables
// ticking. A nil channel never fires in a select.
func tickChannel(interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}
