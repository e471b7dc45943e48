// Package control turns joystick input into a paced stream of vehicle
// commands and manages the Joystick/Path operating modes.
package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/pkg/seriallink"
	"github.com/dinacontroller/bridge/pkg/telemetry"
)

var ErrControllerClosed = errors.New("controller closed")

// Publisher receives telemetry events. Publish must not block.
type Publisher interface {
	Publish(ev telemetry.Event) bool
}

type nopPublisher struct{}

func (nopPublisher) Publish(telemetry.Event) bool { return false }

// Options configures a Controller.
type Options struct {
	Link         Link
	Params       drive.Params
	TickInterval time.Duration
	SettleDelay  time.Duration
	Publisher    Publisher
	Session      string
}

// Status is a point-in-time view of the controller.
type Status struct {
	Mode          drive.Mode             `json:"mode"`
	Transitioning bool                   `json:"transitioning"`
	LinkState     string                 `json:"link_state"`
	LinkReady     bool                   `json:"link_ready"`
	Peripheral    *seriallink.Peripheral `json:"peripheral,omitempty"`
	LastSent      *drive.Command         `json:"last_sent,omitempty"`
	Pending       *drive.Command         `json:"pending,omitempty"`
	Stats         SchedulerStats         `json:"stats"`
	Params        drive.Params           `json:"params"`
	Session       string                 `json:"session_id,omitempty"`
}

// Controller ties the mapper, scheduler and mode machine to a link. It is
// the link's Delegate.
type Controller struct {
	logger    customlog.Logger
	publisher Publisher
	session   string

	mapperMu sync.RWMutex
	mapper   drive.Mapper

	scheduler *Scheduler
	modes     *ModeMachine

	linkMu     sync.Mutex
	linkState  seriallink.State
	linkReady  bool
	peripheral *seriallink.Peripheral

	closed atomic.Bool
}

// New validates opts.Params and builds a controller. Call Start to begin.
func New(opts Options, logger customlog.Logger) (*Controller, error) {
	mapper, err := drive.NewMapper(opts.Params)
	if err != nil {
		return nil, err
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	c := &Controller{
		logger:    logger.WithField("component", "control"),
		publisher: opts.Publisher,
		session:   opts.Session,
		mapper:    mapper,
	}
	c.scheduler = NewScheduler(opts.Link, opts.TickInterval, c.logger, c.commandSent)
	c.modes = NewModeMachine(c.scheduler, opts.SettleDelay, c.logger, c.modeChanged)
	return c, nil
}

// Start enters the initial Joystick mode.
func (c *Controller) Start() {
	c.modes.Start()
	c.logger.Infof("Controller started in %s mode", c.modes.Mode())
}

// Close stops transmission. Later toggles fail with ErrControllerClosed.
func (c *Controller) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.modes.Stop()
	c.logger.Infof("Controller stopped: %+v", c.scheduler.Stats())
}

// SubmitInput maps one joystick event and offers the resulting command to
// the scheduler. Input is ignored outside Joystick mode and while a toggle
// settles; accepted is false then.
func (c *Controller) SubmitInput(in drive.PolarInput) (cmd drive.Command, accepted bool) {
	c.mapperMu.RLock()
	cmd = c.mapper.Command(in)
	c.mapperMu.RUnlock()

	if c.closed.Load() || c.modes.Transitioning() || c.modes.Mode() != drive.ModeJoystick {
		return cmd, false
	}
	c.scheduler.Offer(cmd)
	return cmd, true
}

// ToggleMode flips between Joystick and Path mode.
func (c *Controller) ToggleMode(ctx context.Context) (drive.Mode, error) {
	if c.closed.Load() {
		return c.modes.Mode(), ErrControllerClosed
	}
	return c.modes.Toggle(ctx)
}

// Mode returns the current mode.
func (c *Controller) Mode() drive.Mode {
	return c.modes.Mode()
}

// Params returns the active mapping parameters.
func (c *Controller) Params() drive.Params {
	c.mapperMu.RLock()
	defer c.mapperMu.RUnlock()
	return c.mapper.Params()
}

// ApplyProfile swaps in new mapping parameters. The next input uses them.
func (c *Controller) ApplyProfile(params drive.Params) error {
	mapper, err := drive.NewMapper(params)
	if err != nil {
		return err
	}
	c.mapperMu.Lock()
	c.mapper = mapper
	c.mapperMu.Unlock()
	c.logger.WithFields(map[string]interface{}{
		"offset":     params.VerticalAngleOffset,
		"deadzone":   params.DisplacementDeadzone,
		"saturation": params.DisplacementSaturation,
	}).Infof("Applied drive profile")
	return nil
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	st := Status{
		Mode:          c.modes.Mode(),
		Transitioning: c.modes.Transitioning(),
		Stats:         c.scheduler.Stats(),
		Params:        c.Params(),
		Session:       c.session,
	}

	c.linkMu.Lock()
	st.LinkState = c.linkState.String()
	st.LinkReady = c.linkReady
	if c.peripheral != nil {
		p := *c.peripheral
		st.Peripheral = &p
	}
	c.linkMu.Unlock()

	if cmd, ok := c.scheduler.LastSent(); ok {
		st.LastSent = &cmd
	}
	if cmd, ok := c.scheduler.Pending(); ok {
		st.Pending = &cmd
	}
	return st
}

func (c *Controller) OnStateChanged(state seriallink.State) {
	c.linkMu.Lock()
	c.linkState = state
	c.linkMu.Unlock()
	c.logger.Debugf("Link state %s", state)
}

func (c *Controller) OnDiscovered(p seriallink.Peripheral) {
	c.logger.Infof("Discovered vehicle %s", p.Name)
}

// OnReady marks the link usable and resyncs the vehicle with the current
// mode.
func (c *Controller) OnReady(p seriallink.Peripheral) {
	c.linkMu.Lock()
	c.linkReady = true
	c.peripheral = &p
	c.linkMu.Unlock()

	mode := c.modes.Mode()
	c.logger.Infof("Vehicle %s ready in %s mode", p.Name, mode)
	c.publisher.Publish(telemetry.LinkReady(mode, p.Name))

	if c.closed.Load() {
		return
	}
	if !c.modes.Resync() {
		c.logger.Warnf("Resync with %s was not delivered", p.Name)
	}
}

// OnDisconnected marks the link unusable. What the vehicle last received is
// unknown from here on.
func (c *Controller) OnDisconnected(p seriallink.Peripheral, err error) {
	c.linkMu.Lock()
	c.linkReady = false
	c.peripheral = nil
	c.linkMu.Unlock()

	c.scheduler.ForgetLastSent()
	c.logger.Warnf("Vehicle %s disconnected: %v", p.Name, err)
	c.publisher.Publish(telemetry.LinkDown(c.modes.Mode(), p.Name, err))
}

// OnLine logs what the vehicle writes back.
func (c *Controller) OnLine(p seriallink.Peripheral, line string) {
	c.logger.Debugf("%s: %s", p.Name, line)
}

func (c *Controller) commandSent(cmd drive.Command) {
	c.publisher.Publish(telemetry.CommandSent(c.modes.Mode(), cmd))
}

func (c *Controller) modeChanged(mode drive.Mode) {
	c.linkMu.Lock()
	ready := c.linkReady
	c.linkMu.Unlock()
	c.publisher.Publish(telemetry.ModeChanged(mode, ready))
}

var (
	_ seriallink.Delegate     = (*Controller)(nil)
	_ seriallink.LineReceiver = (*Controller)(nil)
)
