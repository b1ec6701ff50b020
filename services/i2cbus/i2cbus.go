// Package i2cbus owns the shared I2C bus. Both sensor drivers run their own
// sampling goroutines on the same bus, so every transaction is funnelled
// through a single worker goroutine.
package i2cbus

import (
	"context"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"zigsense-go/errcode"
)

// Opener brings up the platform bus. It is called at most once.
type Opener func() (drivers.I2C, error)

type txReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// Transport is a drivers.I2C whose Tx calls are serialised on one worker.
type Transport struct {
	timeout time.Duration // 0 => no deadline

	once    sync.Once
	initErr error
	ready   chan struct{}
	reqs    chan txReq
}

// Ensure compile-time conformance with drivers.I2C
var _ drivers.I2C = (*Transport)(nil)

// New returns an uninitialised transport. timeout bounds enqueue and
// completion of each Tx; zero waits forever.
func New(timeout time.Duration) *Transport {
	return &Transport{
		timeout: timeout,
		ready:   make(chan struct{}),
		reqs:    make(chan txReq, 16),
	}
}

// Init opens the hardware bus and starts the worker. Only the first call
// does any work; later calls return the first call's result. The worker
// exits when ctx is cancelled.
func (t *Transport) Init(ctx context.Context, open Opener) error {
	t.once.Do(func() {
		hw, err := open()
		if err != nil {
			t.initErr = errcode.Wrap(errcode.BusInit, "i2cbus.init", err)
			return
		}
		go t.loop(ctx, hw)
		close(t.ready)
	})
	return t.initErr
}

// Ready reports whether Init has succeeded.
func (t *Transport) Ready() bool {
	select {
	case <-t.ready:
		return true
	default:
		return false
	}
}

func (t *Transport) loop(ctx context.Context, hw drivers.I2C) {
	for {
		select {
		case req := <-t.reqs:
			err := hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tx posts a transaction to the worker and waits for its completion.
func (t *Transport) Tx(addr uint16, w, r []byte) error {
	if !t.Ready() {
		return errcode.New(errcode.BusInit, "i2cbus.tx", "transport not initialised")
	}
	req := txReq{addr: addr, w: w, r: r, done: make(chan error, 1)}

	if t.timeout <= 0 {
		t.reqs <- req
		return <-req.done
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()
	select {
	case t.reqs <- req:
	case <-timer.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		return err
	case <-timer.C:
		return errcode.Timeout
	}
}
