package i2cbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"zigsense-go/errcode"
	"zigsense-go/services/i2cbus/sim"
)

func TestTxBeforeInit(t *testing.T) {
	tr := New(0)
	err := tr.Tx(0x38, []byte{0x71}, make([]byte, 1))
	assert.ErrorIs(t, err, errcode.BusInit)
}

func TestInitOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opens := 0
	open := func() (drivers.I2C, error) {
		opens++
		return sim.NewBench(20, 50, 100), nil
	}
	tr := New(0)
	require.NoError(t, tr.Init(ctx, open))
	require.NoError(t, tr.Init(ctx, open))
	assert.Equal(t, 1, opens)
	assert.True(t, tr.Ready())
}

func TestInitFailureIsSticky(t *testing.T) {
	boom := errors.New("no pins")
	tr := New(0)
	err := tr.Init(context.Background(), func() (drivers.I2C, error) { return nil, boom })
	require.ErrorIs(t, err, errcode.BusInit)
	require.ErrorIs(t, err, boom)

	// A later call cannot resurrect the bus.
	err = tr.Init(context.Background(), func() (drivers.I2C, error) { return sim.NewBus(), nil })
	assert.ErrorIs(t, err, boom)
	assert.False(t, tr.Ready())
}

func TestTransactionsAreSerialised(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bench := sim.NewBench(20, 50, 100)
	bench.SetTxDelay(time.Millisecond)
	tr := New(0)
	require.NoError(t, tr.Init(ctx, func() (drivers.I2C, error) { return bench, nil }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := uint16(0x38)
			if i%2 == 1 {
				addr = 0x23
			}
			_ = tr.Tx(addr, nil, make([]byte, 2))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, bench.Count())
	assert.Equal(t, 1, bench.PeakConcurrency())
}

func TestTxTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := sim.NewBus()
	bus.SetTxDelay(100 * time.Millisecond)
	tr := New(10 * time.Millisecond)
	require.NoError(t, tr.Init(ctx, func() (drivers.I2C, error) { return bus, nil }))

	err := tr.Tx(0x38, nil, make([]byte, 1))
	assert.ErrorIs(t, err, errcode.Timeout)
}

func TestNackPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New(0)
	require.NoError(t, tr.Init(ctx, func() (drivers.I2C, error) { return sim.NewBus(), nil }))
	assert.ErrorIs(t, tr.Tx(0x40, []byte{0x00}, nil), sim.ErrNack)
}
