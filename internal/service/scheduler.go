package service

import "time"

// Timer is a cancellable pending callback
type Timer interface {
	Stop() bool
}

// Scheduler arms delayed callbacks. The generation tracker takes it as a
// dependency so tests can drive the poll loop deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

// NewWallScheduler returns the production scheduler backed by time.AfterFunc
func NewWallScheduler() Scheduler {
	return wallScheduler{}
}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
