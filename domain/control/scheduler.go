package control

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// DefaultTickInterval is the transmission period.
const DefaultTickInterval = 100 * time.Millisecond

// Link is the outbound message channel to the vehicle. Send is fire and
// forget; false means the message was dropped.
type Link interface {
	Send(message string) bool
}

// SchedulerStats counts tick outcomes.
type SchedulerStats struct {
	Sent       uint64 `json:"sent"`
	Suppressed uint64 `json:"suppressed"`
	Dropped    uint64 `json:"dropped"`
}

// Scheduler transmits the latest offered command once per tick, skipping
// commands equal to the last one the link accepted.
type Scheduler struct {
	link     Link
	interval time.Duration
	logger   customlog.Logger
	onSent   func(cmd drive.Command)

	// Single-slot mailbox; Offer overwrites, Tick takes.
	pending atomic.Pointer[drive.Command]

	mu       sync.Mutex
	lastSent *drive.Command
	stats    SchedulerStats

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewScheduler creates a stopped scheduler. onSent, if not nil, is called
// after every accepted send, including SendNow.
func NewScheduler(link Link, interval time.Duration, logger customlog.Logger, onSent func(drive.Command)) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		link:     link,
		interval: interval,
		logger:   logger,
		onSent:   onSent,
	}
}

// Offer replaces the pending command.
func (s *Scheduler) Offer(cmd drive.Command) {
	s.pending.Store(&cmd)
}

// Pending returns the command waiting for the next tick.
func (s *Scheduler) Pending() (drive.Command, bool) {
	if p := s.pending.Load(); p != nil {
		return *p, true
	}
	return drive.Command{}, false
}

// LastSent returns the last command the link accepted.
func (s *Scheduler) LastSent() (drive.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSent == nil {
		return drive.Command{}, false
	}
	return *s.lastSent, true
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Tick takes the pending command and sends it unless it repeats the last
// sent one. A send the link drops is discarded; the next offer supersedes it.
// Tick reports whether a message went out.
func (s *Scheduler) Tick() bool {
	p := s.pending.Swap(nil)
	if p == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSent != nil && *s.lastSent == *p {
		s.stats.Suppressed++
		return false
	}
	return s.sendLocked(*p)
}

// SendNow sends cmd immediately, outside the tick cycle.
func (s *Scheduler) SendNow(cmd drive.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(cmd)
}

func (s *Scheduler) sendLocked(cmd drive.Command) bool {
	wire, err := cmd.Wire()
	if err != nil {
		s.logger.Errorf("Refusing to send %s: %v", cmd, err)
		s.stats.Dropped++
		return false
	}

	if !s.link.Send(wire) {
		s.logger.Debugf("Link dropped %s", cmd)
		s.stats.Dropped++
		return false
	}

	s.lastSent = &cmd
	s.stats.Sent++
	s.logger.Debugf("Sent %s as %q", cmd, wire)
	if s.onSent != nil {
		s.onSent(cmd)
	}
	return true
}

// Reset clears both the pending and the last sent command.
func (s *Scheduler) Reset() {
	s.ClearPending()
	s.ForgetLastSent()
}

// ClearPending discards the command waiting for the next tick.
func (s *Scheduler) ClearPending() {
	s.pending.Store(nil)
}

// ForgetLastSent makes the next pending command eligible even if it equals
// the previous send.
func (s *Scheduler) ForgetLastSent() {
	s.mu.Lock()
	s.lastSent = nil
	s.mu.Unlock()
}

// Start begins ticking. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	s.logger.Debugf("Scheduler started (every %v)", s.interval)
}

// Stop halts ticking and waits for an in-flight tick to finish. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	s.logger.Debugf("Scheduler stopped")
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.stop != nil
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
