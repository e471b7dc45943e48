package telemetry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// ErrQueueFull is counted when an event is dropped because the workers are
// behind.
var ErrQueueFull = errors.New("telemetry queue full")

// Sink delivers events to one observer.
type Sink interface {
	Name() string
	Publish(ev Event) error
	Close() error
}

// DispatcherMetrics tracks what happened to published events.
type DispatcherMetrics struct {
	Queued    int64
	Published int64
	Dropped   int64
	Errors    int64
}

// Dispatcher is a bounded worker pool that hands events to every sink.
// Publish never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	workerCount int
	queueSize   int
	logger      customlog.Logger
	session     string
	sequence    atomic.Uint64
	sinks       []Sink

	mu      sync.Mutex
	queue   chan Event
	running bool
	wg      sync.WaitGroup

	metricsMu sync.Mutex
	metrics   DispatcherMetrics
}

// NewDispatcher creates a dispatcher with a fresh session id. Non-positive
// sizes fall back to one worker and a queue of 64.
func NewDispatcher(workerCount, queueSize int, logger customlog.Logger, sinks ...Sink) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		workerCount: workerCount,
		queueSize:   queueSize,
		logger:      logger.WithField("component", "telemetry"),
		session:     uuid.NewString(),
		sinks:       sinks,
		queue:       make(chan Event, queueSize),
	}
}

// Session identifies this bridge run in every event.
func (d *Dispatcher) Session() string {
	return d.session
}

// Publish stamps ev and queues it. It reports whether the event was queued.
func (d *Dispatcher) Publish(ev Event) bool {
	if ev.Session == "" {
		ev.Session = d.session
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Sequence = d.sequence.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		d.logger.Debugf("Dispatcher not running, discarding %s", ev.Kind)
		d.count(func(m *DispatcherMetrics) { m.Dropped++ })
		return false
	}

	select {
	case d.queue <- ev:
		d.count(func(m *DispatcherMetrics) { m.Queued++ })
		return true
	default:
		d.logger.Warnf("Discarding %s event: %v", ev.Kind, ErrQueueFull)
		d.count(func(m *DispatcherMetrics) { m.Dropped++ })
		return false
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.logger.Infof("Starting telemetry dispatcher with %d workers and %d sinks (session %s)",
		d.workerCount, len(d.sinks), d.session)

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains the queue, waits for the workers and closes the sinks.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()

	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil {
			d.logger.Warnf("Error closing %s sink: %v", sink.Name(), err)
		}
	}

	m := d.Metrics()
	d.logger.Infof("Telemetry dispatcher stopped: published=%d, dropped=%d, errors=%d",
		m.Published, m.Dropped, m.Errors)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	d.logger.Debugf("Telemetry worker %d started", id)

	for ev := range d.queue {
		for _, sink := range d.sinks {
			if err := sink.Publish(ev); err != nil {
				d.logger.Errorf("Sink %s failed on %s: %v", sink.Name(), ev.Kind, err)
				d.count(func(m *DispatcherMetrics) { m.Errors++ })
				continue
			}
			d.count(func(m *DispatcherMetrics) { m.Published++ })
		}
	}

	d.logger.Debugf("Telemetry worker %d stopped", id)
}

func (d *Dispatcher) count(update func(m *DispatcherMetrics)) {
	d.metricsMu.Lock()
	update(&d.metrics)
	d.metricsMu.Unlock()
}

// Metrics returns a copy of the counters.
func (d *Dispatcher) Metrics() DispatcherMetrics {
	d.metricsMu.Lock()
	defer d.metricsMu.Unlock()
	return d.metrics
}

// QueueLength returns the number of events waiting for a worker.
func (d *Dispatcher) QueueLength() int {
	return len(d.queue)
}
