package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// DefaultSettleDelay is how long operator input stays disabled after a toggle.
const DefaultSettleDelay = 100 * time.Millisecond

var ErrTransitionInProgress = errors.New("mode transition in progress")

// ModeMachine owns the operating mode and runs the side effects of entering
// each mode against the scheduler.
type ModeMachine struct {
	scheduler *Scheduler
	settle    time.Duration
	logger    customlog.Logger
	onChange  func(mode drive.Mode)

	// transition is held for the whole of a toggle and for link resyncs, so
	// their sends never interleave.
	transition sync.Mutex
	busy       atomic.Bool
	mode       atomic.Int32
	// stopped is only written under transition.
	stopped bool
}

// NewModeMachine returns a machine in Joystick mode with the scheduler
// stopped; call Start to enter the initial mode.
func NewModeMachine(scheduler *Scheduler, settle time.Duration, logger customlog.Logger, onChange func(drive.Mode)) *ModeMachine {
	if settle < 0 {
		settle = 0
	}
	m := &ModeMachine{
		scheduler: scheduler,
		settle:    settle,
		logger:    logger,
		onChange:  onChange,
	}
	m.mode.Store(int32(drive.ModeJoystick))
	return m
}

// Mode returns the current mode.
func (m *ModeMachine) Mode() drive.Mode {
	return drive.Mode(m.mode.Load())
}

// Transitioning reports whether a toggle is settling.
func (m *ModeMachine) Transitioning() bool {
	return m.busy.Load()
}

// Start enters the current mode without sending anything. The vehicle gets
// its explicit stop when the link comes up.
func (m *ModeMachine) Start() {
	m.transition.Lock()
	defer m.transition.Unlock()

	if m.stopped {
		return
	}
	if m.Mode() == drive.ModeJoystick {
		m.scheduler.Reset()
		m.scheduler.Start()
	}
}

// Stop halts the scheduler, waiting out any running transition. Later
// toggles fail with ErrControllerClosed.
func (m *ModeMachine) Stop() {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.stopped = true
	m.scheduler.Stop()
}

// Toggle flips the mode. Leaving Joystick stops the scheduler and discards
// the pending command before the settle delay. After the delay it either
// sends Drive(0,0) and starts the scheduler (Joystick) or sends
// ModeSwitch(Path). A toggle while another is settling fails with
// ErrTransitionInProgress. If ctx ends during the settle delay the previous
// mode is restored and nothing is sent.
func (m *ModeMachine) Toggle(ctx context.Context) (drive.Mode, error) {
	if !m.transition.TryLock() {
		return m.Mode(), ErrTransitionInProgress
	}
	defer m.transition.Unlock()

	if m.stopped {
		return m.Mode(), ErrControllerClosed
	}

	m.busy.Store(true)
	defer m.busy.Store(false)

	from := m.Mode()
	to := from.Other()
	// The scheduler is quiet before the mode reads Path.
	if from == drive.ModeJoystick {
		m.scheduler.Stop()
		m.scheduler.ClearPending()
	}
	m.mode.Store(int32(to))
	m.logger.Infof("Switching mode %s -> %s", from, to)

	if err := m.wait(ctx); err != nil {
		m.mode.Store(int32(from))
		if from == drive.ModeJoystick {
			m.scheduler.Start()
		}
		m.logger.Warnf("Mode switch to %s abandoned: %v", to, err)
		return from, err
	}

	switch to {
	case drive.ModeJoystick:
		m.scheduler.Reset()
		if !m.scheduler.SendNow(drive.Stop()) {
			m.logger.Warnf("Stop on entering %s was not delivered", to)
		}
		m.scheduler.Start()
	case drive.ModePath:
		m.scheduler.ClearPending()
		if !m.scheduler.SendNow(drive.FormatMode(drive.ModePath)) {
			m.logger.Warnf("Mode switch command was not delivered")
		}
	}

	m.logger.Infof("Mode is now %s", to)
	if m.onChange != nil {
		m.onChange(to)
	}
	return to, nil
}

// Resync tells a freshly connected vehicle the current mode: an explicit stop
// in Joystick mode, the mode switch in Path mode.
func (m *ModeMachine) Resync() bool {
	m.transition.Lock()
	defer m.transition.Unlock()

	if m.stopped {
		return false
	}
	if m.Mode() == drive.ModeJoystick {
		return m.scheduler.SendNow(drive.Stop())
	}
	return m.scheduler.SendNow(drive.FormatMode(drive.ModePath))
}

func (m *ModeMachine) wait(ctx context.Context) error {
	if m.settle == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
