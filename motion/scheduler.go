// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package motion

// Scheduler tracks which bodies are currently animating. A body that is not
// running keeps its position exactly until it is started again.
//
// Scheduler is not safe for concurrent use; it belongs to the goroutine that
// drives the board.
type Scheduler struct {
	running map[int64]struct{}
}

// NewScheduler returns a Scheduler with nothing running.
func NewScheduler() *Scheduler {
	return &Scheduler{running: make(map[int64]struct{})}
}

// Start resumes id. It reports whether id was stopped before.
func (s *Scheduler) Start(id int64) bool {
	if _, ok := s.running[id]; ok {
		return false
	}
	s.running[id] = struct{}{}
	return true
}

// Stop freezes id. It reports whether id was running before.
func (s *Scheduler) Stop(id int64) bool {
	if _, ok := s.running[id]; !ok {
		return false
	}
	delete(s.running, id)
	return true
}

// Running reports whether id is animating.
func (s *Scheduler) Running(id int64) bool {
	_, ok := s.running[id]
	return ok
}

// Len returns the number of running bodies.
func (s *Scheduler) Len() int {
	return len(s.running)
}
