// Package pacer provides fixed-rate frame pacing with sub-millisecond accuracy.
package pacer

import "time"

// guard is how long before each deadline the coarse sleep ends and the
// pacer spins on the clock instead. OS schedulers can overshoot a sleep
// by roughly their tick granularity; the spin burns CPU for the final
// stretch in exchange for hitting the deadline exactly.
const guard = time.Millisecond

// Pacer issues wake-ups at a fixed frame rate. Deadlines advance by
// exactly one interval per tick regardless of how long the tick body
// took, so a slow tick makes the schedule catch up instead of
// resynchronizing to the wall clock. The long-run tick count stays
// accurate at the cost of occasional back-to-back ticks.
type Pacer struct {
	interval time.Duration
	deadline time.Time
	ticks    uint64
	late     uint64
}

// New creates a pacer emitting fps ticks per second, starting now.
func New(fps int) *Pacer {
	return &Pacer{
		interval: time.Second / time.Duration(fps),
		deadline: time.Now(),
	}
}

// Interval returns the fixed gap between deadlines.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next deadline, then advances it by one
// interval. A deadline that already passed returns immediately.
func (p *Pacer) Wait() {
	now := time.Now()
	if now.Before(p.deadline) {
		if diff := p.deadline.Sub(now); diff > guard {
			time.Sleep(diff - guard)
		}
		for time.Now().Before(p.deadline) {
		}
	} else if p.ticks > 0 {
		p.late++
	}
	p.deadline = p.deadline.Add(p.interval)
	p.ticks++
}

// Ticks returns how many deadlines have been issued.
func (p *Pacer) Ticks() uint64 {
	return p.ticks
}

// Late returns how many deadlines had already passed when Wait was
// called, an indicator that tick bodies exceed the frame interval.
func (p *Pacer) Late() uint64 {
	return p.late
}
