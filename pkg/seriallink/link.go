// Package seriallink carries text messages to the vehicle over a serial
// device, such as the RFCOMM port of a Bluetooth SPP module. It owns the
// scan, connect and reconnect lifecycle and reports it to a Delegate.
package seriallink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	customlog "github.com/dinacontroller/bridge/pkg/log"
)

var (
	ErrNotReady    = errors.New("link not ready")
	ErrShortWrite  = errors.New("short write to serial port")
	ErrLinkStopped = errors.New("link stopped")
)

// State is the adapter's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Peripheral identifies a discovered device.
type Peripheral struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Delegate receives lifecycle callbacks. Callbacks run on the link's Run
// goroutine and must not block for long.
type Delegate interface {
	OnStateChanged(state State)
	OnDiscovered(p Peripheral)
	OnReady(p Peripheral)
	OnDisconnected(p Peripheral, err error)
}

// LineReceiver is optionally implemented by a Delegate that wants the lines
// the vehicle writes back.
type LineReceiver interface {
	OnLine(p Peripheral, line string)
}

// Options configures a Link.
type Options struct {
	// Port is an explicit device path; it wins over ScanPatterns.
	Port string
	// ScanPatterns are filepath.Match globs tried against the full device path
	// and its base name.
	ScanPatterns   []string
	Serial         PortOptions
	RescanInterval time.Duration

	// Opener and Lister default to the real serial implementation.
	Opener Opener
	Lister Lister
}

// DefaultRescanInterval is used when Options.RescanInterval is zero.
const DefaultRescanInterval = 2 * time.Second

// Link is a fire-and-forget message channel to the vehicle.
type Link struct {
	opts   Options
	logger customlog.Logger

	mu         sync.Mutex
	port       Port
	peripheral Peripheral
	state      State
	failure    error
}

// New creates a Link. Nothing is opened until Run.
func New(opts Options, logger customlog.Logger) *Link {
	if opts.Opener == nil {
		opts.Opener = OpenSerial
	}
	if opts.Lister == nil {
		opts.Lister = ListSerial
	}
	if opts.RescanInterval <= 0 {
		opts.RescanInterval = DefaultRescanInterval
	}
	return &Link{
		opts:   opts,
		logger: logger.WithField("component", "seriallink"),
	}
}

// Send writes one message to the vehicle. It returns false when the link is
// not ready or the write fails; a failed write tears the connection down and
// the disconnect is reported through the Delegate.
func (l *Link) Send(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		l.logger.Debugf("Dropping %q: %v", message, ErrNotReady)
		return false
	}

	n, err := io.WriteString(l.port, message)
	if err == nil && n != len(message) {
		err = ErrShortWrite
	}
	if err != nil {
		l.logger.Warnf("Write to %s failed: %v", l.peripheral.Path, err)
		l.failure = err
		l.port.Close()
		l.port = nil
		return false
	}
	return true
}

// Ready reports whether messages can currently be sent.
func (l *Link) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// State returns the current lifecycle state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Peripheral returns the connected device, if any.
func (l *Link) Peripheral() (Peripheral, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peripheral, l.port != nil
}

// Run scans for the vehicle, connects, watches the connection and rescans
// after it drops. It returns when ctx is done.
func (l *Link) Run(ctx context.Context, d Delegate) error {
	defer l.setState(d, StateIdle)

	for {
		l.setState(d, StateScanning)
		if p, ok := l.scan(); ok {
			l.logger.Infof("Discovered %s (%s)", p.Name, p.Path)
			d.OnDiscovered(p)
			l.connect(ctx, d, p)
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.opts.RescanInterval):
		}
	}
}

func (l *Link) connect(ctx context.Context, d Delegate, p Peripheral) {
	l.setState(d, StateConnecting)
	port, err := l.opts.Opener(p.Path, l.opts.Serial)
	if err != nil {
		l.logger.Warnf("Failed to connect to %s: %v", p.Path, err)
		return
	}

	l.mu.Lock()
	l.port = port
	l.peripheral = p
	l.failure = nil
	l.mu.Unlock()

	l.logger.Infof("Link ready on %s", p.Path)
	l.setState(d, StateReady)
	d.OnReady(p)

	err = l.monitor(ctx, port, d, p)

	l.mu.Lock()
	if l.port == port {
		l.port = nil
		port.Close()
	}
	if l.failure != nil {
		err = l.failure
		l.failure = nil
	}
	l.mu.Unlock()

	if ctx.Err() != nil {
		err = ErrLinkStopped
	}
	l.logger.Infof("Link to %s lost: %v", p.Path, err)
	d.OnDisconnected(p, err)
}

// monitor reads lines until the port fails or ctx ends.
func (l *Link) monitor(ctx context.Context, port Port, d Delegate, p Peripheral) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
		}
	}()

	receiver, _ := d.(LineReceiver)
	scan := bufio.NewScanner(port)
	for scan.Scan() {
		line := scan.Text()
		l.logger.Debugf("Received from %s: %q", p.Path, line)
		if receiver != nil {
			receiver.OnLine(p, line)
		}
	}
	if err := scan.Err(); err != nil {
		return err
	}
	return io.EOF
}

// scan picks the device to connect to.
func (l *Link) scan() (Peripheral, bool) {
	if l.opts.Port != "" {
		return Peripheral{Name: filepath.Base(l.opts.Port), Path: l.opts.Port}, true
	}

	ports, err := l.opts.Lister()
	if err != nil {
		l.logger.Warnf("Failed to list serial ports: %v", err)
		return Peripheral{}, false
	}
	sort.Strings(ports)

	for _, path := range ports {
		for _, pattern := range l.opts.ScanPatterns {
			if matchPort(pattern, path) {
				return Peripheral{Name: filepath.Base(path), Path: path}, true
			}
		}
	}
	l.logger.Debugf("No serial port matched %v among %d ports", l.opts.ScanPatterns, len(ports))
	return Peripheral{}, false
}

func matchPort(pattern, path string) bool {
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(path))
	return ok
}

func (l *Link) setState(d Delegate, state State) {
	l.mu.Lock()
	changed := l.state != state
	l.state = state
	l.mu.Unlock()

	if changed {
		d.OnStateChanged(state)
	}
}
