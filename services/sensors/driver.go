package sensors

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"zigsense-go/bus"
	"zigsense-go/errcode"
	"zigsense-go/types"
	"zigsense-go/x/timex"
)

// Measurer is one peripheral behind the shared bus.
type Measurer interface {
	Name() string
	// Handshake performs the one-time power-on exchange.
	Handshake() error
	// Measure runs one complete measurement.
	Measure(ctx context.Context) ([]Reading, error)
}

// FaultPolicy decides what a sampling loop does after a failed read.
type FaultPolicy uint8

const (
	// FaultReport publishes the fault, skips the cycle and keeps sampling.
	FaultReport FaultPolicy = iota
	// FaultFatal publishes the fault and stops the loop. The supervisor is
	// expected to terminate the process.
	FaultFatal
)

func (p FaultPolicy) String() string {
	if p == FaultFatal {
		return "fatal"
	}
	return "report"
}

// Options configures a Driver. All fields are optional.
type Options struct {
	Policy FaultPolicy
	// Conn, when set, receives faults on sensor/<name>/fault.
	Conn   *bus.Connection
	Logger *slog.Logger
	// FaultQueue is the capacity of the Faults channel. Default 4.
	FaultQueue int
}

// Stats counts loop activity.
type Stats struct {
	Cycles uint64
	Faults uint64
}

// Driver owns one measurer, its callback and the lifetime of its sampling
// goroutine.
type Driver struct {
	m      Measurer
	policy FaultPolicy
	conn   *bus.Connection
	log    *slog.Logger
	unit   time.Duration // length of one interval step

	started atomic.Bool
	running atomic.Bool
	done    chan struct{}

	faultMu sync.Mutex
	faults  chan types.SensorFault

	cycles    atomic.Uint64
	faultsCnt atomic.Uint64
}

func NewDriver(m Measurer, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FaultQueue <= 0 {
		opts.FaultQueue = 4
	}
	return &Driver{
		m:      m,
		policy: opts.Policy,
		conn:   opts.Conn,
		log:    opts.Logger.With("component", "sensor", "sensor", m.Name()),
		unit:   time.Second,
		done:   make(chan struct{}),
		faults: make(chan types.SensorFault, opts.FaultQueue),
	}
}

func (d *Driver) Name() string { return d.m.Name() }

// Init handshakes with the peripheral and, on success, starts sampling every
// intervalSeconds. cb may be nil. A handle can be initialised once; later
// calls return errcode.Busy.
func (d *Driver) Init(ctx context.Context, intervalSeconds uint16, cb Callback) error {
	if intervalSeconds < 1 {
		return errcode.New(errcode.InvalidParams, "sensors.init", "interval must be at least 1 s")
	}
	if !d.started.CompareAndSwap(false, true) {
		return errcode.Busy
	}
	if err := d.m.Handshake(); err != nil {
		close(d.done)
		return errcode.Wrap(errcode.BusInit, d.m.Name()+".init", err)
	}

	interval := time.Duration(intervalSeconds) * d.unit
	d.running.Store(true)
	d.log.Info("sampling started", "interval", interval, "policy", d.policy)
	go d.loop(ctx, interval, cb)
	return nil
}

// Running reports whether the sampling loop is alive.
func (d *Driver) Running() bool { return d.running.Load() }

// Done is closed when the sampling loop exits, or immediately after a
// failed handshake.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Faults delivers fault reports. Older reports are dropped when the reader
// falls behind.
func (d *Driver) Faults() <-chan types.SensorFault { return d.faults }

func (d *Driver) Stats() Stats {
	return Stats{Cycles: d.cycles.Load(), Faults: d.faultsCnt.Load()}
}

func (d *Driver) loop(ctx context.Context, interval time.Duration, cb Callback) {
	defer close(d.done)
	defer d.running.Store(false)

	t := time.NewTimer(0)
	defer t.Stop()
	<-t.C

	for {
		cycle := d.cycles.Add(1)
		readings, err := d.m.Measure(ctx)
		if err != nil {
			fatal := d.policy == FaultFatal
			d.fault(errcode.Wrap(errcode.SensorRead, d.m.Name()+".measure", err), cycle, fatal)
			if fatal {
				d.log.Error("sampling stopped")
				return
			}
		} else if cb != nil {
			cb(readings...)
		}

		t.Reset(interval)
		select {
		case <-ctx.Done():
			d.log.Info("sampling stopping")
			return
		case <-t.C:
		}
	}
}

func (d *Driver) fault(err *errcode.E, cycle uint64, fatal bool) {
	d.faultsCnt.Add(1)
	f := types.SensorFault{
		Sensor: d.m.Name(),
		Code:   string(err.Code()),
		Error:  err.Error(),
		Fatal:  fatal,
		Cycle:  cycle,
		TS:     timex.NowMs(),
	}
	d.log.Warn("sensor read failed", "cycle", cycle, "err", err, "fatal", fatal)

	if d.conn != nil {
		d.conn.Publish(d.conn.NewMessage(bus.T("sensor", d.m.Name(), "fault"), f, false))
	}

	d.faultMu.Lock()
	defer d.faultMu.Unlock()
	for {
		select {
		case d.faults <- f:
			return
		default:
		}
		select {
		case <-d.faults:
		default:
		}
	}
}
