// Package dispatcher routes host command lines to handlers. A command can be
// handled inline or queued to its own worker goroutine.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrClosed         = errors.New("dispatcher closed")
	ErrQueueFull      = errors.New("queue full")
)

// Queued is the result of a command handed to its worker.
const Queued = "queued"

// Event is a host command such as ":SIM:TICK:" with its arguments.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// ParseLine splits a command line into an Event. Blank lines and lines
// starting with '#' yield false.
func ParseLine(line string, now time.Time) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return Event{}, false
	}
	return Event{Command: fields[0], Args: fields[1:], Timestamp: now}, true
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of slog.Logger the dispatcher writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type settings struct {
	queue  int
	wait   bool
	logged bool
}

// Option configures how a command is handled.
type Option func(*settings)

// Buffered hands events to a worker through a queue of size n. Dispatch
// returns Queued without waiting for the handler.
func Buffered(n int) Option {
	return func(s *settings) { s.queue = n }
}

// Blocking makes Dispatch wait for room in a full queue instead of failing
// with ErrQueueFull.
func Blocking() Option {
	return func(s *settings) { s.wait = true }
}

// Logged writes a debug line per event and an error line per failure.
func Logged() Option {
	return func(s *settings) { s.logged = true }
}

type instruments struct {
	queueDepth metric.Int64ObservableGauge
	duration   metric.Float64Histogram
	processed  metric.Int64Counter
	dropped    metric.Int64Counter
	failed     metric.Int64Counter
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	log  Logger
	inst instruments

	mu      sync.RWMutex
	routes  map[string]HandlerFunc
	queues  map[string]chan Event
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is a
// no-op unless a provider is installed.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		log:    log,
		routes: make(map[string]HandlerFunc),
		queues: make(map[string]chan Event),
	}
	if err := d.instrument(meter()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	d.inst.queueDepth, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting per buffered command"))
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(d.observeQueues, d.inst.queueDepth)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	d.inst.duration, err = m.Float64Histogram("dispatcher.event.duration",
		metric.WithDescription("Time spent in the handler, or enqueueing for buffered commands"),
		metric.WithUnit("ms"))
	if err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}
	d.inst.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Buffered events run by a worker"))
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}
	d.inst.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events rejected by a full queue"))
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	d.inst.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Buffered events whose handler returned an error"))
	if err != nil {
		return fmt.Errorf("creating failed counter: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, q := range d.queues {
		o.ObserveInt64(d.inst.queueDepth, int64(len(q)), commandAttr(cmd))
	}
	return nil
}

func commandAttr(cmd string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", cmd))
}

// Register routes command to h. Registering a command twice replaces the
// earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.queue > 0 {
		h = d.queued(command, s.queue, s.wait, h)
	}
	if s.logged {
		h = d.logged(command, h)
	}

	d.mu.Lock()
	d.routes[command] = h
	d.mu.Unlock()
}

// Dispatch runs the handler registered for e.Command.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.routes[e.Command]
	closed := d.closed
	d.mu.RUnlock()
	switch {
	case closed:
		return nil, fmt.Errorf("%w: %s", ErrClosed, e.Command)
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}

	start := time.Now()
	res, err := h(e)
	d.inst.duration.Record(context.Background(), msSince(start), commandAttr(e.Command))
	return res, err
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands lists the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Close rejects further events and returns once every queue is drained.
// Calling it again does nothing.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

// queued starts a worker for command and returns the handler that feeds it.
func (d *Dispatcher) queued(command string, size int, wait bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)
	attr := commandAttr(command)

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q {
			if _, err := h(e); err != nil {
				d.inst.failed.Add(context.Background(), 1, attr)
				d.log.Error("buffered event failed", "command", command, "error", err)
			}
			d.inst.processed.Add(context.Background(), 1, attr)
		}
	}()

	// The read lock keeps Close from closing q under a pending send.
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		if wait {
			q <- e
			return Queued, nil
		}
		select {
		case q <- e:
			return Queued, nil
		default:
			d.inst.dropped.Add(context.Background(), 1, attr)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.log.Debug("handling event", "command", command, "args", len(e.Args))
		res, err := h(e)
		if err != nil {
			d.log.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return res, err
		}
		d.log.Debug("event complete", "command", command, "duration", time.Since(start))
		return res, nil
	}
}
