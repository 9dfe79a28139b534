/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import "time"

// DefaultReconnectGrace is how long a disconnected player keeps their seat.
const DefaultReconnectGrace = 45 * time.Second

// Task is a cancellable scheduled callback.
type Task interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// purgeTask is the pending removal of one disconnected player. Its
// identity matters: an expiring callback only acts if the player still
// holds the very same task.
type purgeTask struct {
	task Task
	due  time.Time
}

// armPurge replaces any pending removal with t.
func (p *Player) armPurge(t *purgeTask) {
	p.cancelPurge()
	p.purge = t
}

// cancelPurge stops and forgets the pending removal, if any.
func (p *Player) cancelPurge() bool {
	if p.purge == nil {
		return false
	}
	if p.purge.task != nil {
		p.purge.task.Stop()
	}
	p.purge = nil
	return true
}
