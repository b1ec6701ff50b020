// Package sim provides register-level models of the AHT20 and BH1750 behind
// a drivers.I2C implementation, for host builds and tests.
package sim

import (
	"errors"
	"math"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// ErrNack is returned for transactions to an address nobody answers.
var ErrNack = errors.New("i2c: nack")

// Peripheral is one simulated device on the bus.
type Peripheral interface {
	Tx(w, r []byte) error
}

// Bus routes transactions by address. It also records the peak number of
// overlapping transactions so callers can verify serialisation.
type Bus struct {
	mu       sync.Mutex
	devs     map[uint16]Peripheral
	inFlight int
	peak     int
	count    int
	txDelay  time.Duration
}

var _ drivers.I2C = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{devs: map[uint16]Peripheral{}}
}

// Attach places p at addr, replacing anything already there.
func (b *Bus) Attach(addr uint16, p Peripheral) {
	b.mu.Lock()
	b.devs[addr] = p
	b.mu.Unlock()
}

// Detach removes the device at addr; later transactions NACK.
func (b *Bus) Detach(addr uint16) {
	b.mu.Lock()
	delete(b.devs, addr)
	b.mu.Unlock()
}

// SetTxDelay makes every transaction take at least d.
func (b *Bus) SetTxDelay(d time.Duration) {
	b.mu.Lock()
	b.txDelay = d
	b.mu.Unlock()
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	p, ok := b.devs[addr]
	b.inFlight++
	b.count++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	delay := b.txDelay
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return ErrNack
	}
	return p.Tx(w, r)
}

// PeakConcurrency returns the highest number of simultaneous transactions seen.
func (b *Bus) PeakConcurrency() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// Count returns the number of transactions seen.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// -----------------------------------------------------------------------------
// AHT20
// -----------------------------------------------------------------------------

// AHT20 models the status byte, the initialise handshake and the 20-bit
// trigger/collect cycle.
type AHT20 struct {
	mu         sync.Mutex
	err        error
	calibrated bool
	busyFor    time.Duration
	readyAt    time.Time
	tempC      float64
	rh         float64
	triggers   int
}

// NewAHT20 returns a device reporting tempC/rh. It comes up uncalibrated
// unless calibrated is set, in which case the initialise command is not needed.
func NewAHT20(tempC, rh float64, calibrated bool) *AHT20 {
	return &AHT20{tempC: tempC, rh: rh, calibrated: calibrated}
}

// Set changes the reported environment.
func (a *AHT20) Set(tempC, rh float64) {
	a.mu.Lock()
	a.tempC, a.rh = tempC, rh
	a.mu.Unlock()
}

// SetConversionTime sets how long the device stays busy after a trigger.
func (a *AHT20) SetConversionTime(d time.Duration) {
	a.mu.Lock()
	a.busyFor = d
	a.mu.Unlock()
}

// Fail makes every following transaction return err; nil clears it.
func (a *AHT20) Fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

// Triggers returns how many measurements were started.
func (a *AHT20) Triggers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.triggers
}

func (a *AHT20) Tx(w, r []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}

	status := byte(0x00)
	if a.calibrated {
		status |= 0x08
	}
	busy := time.Now().Before(a.readyAt)
	if busy {
		status |= 0x80
	}

	if len(w) > 0 {
		switch w[0] {
		case 0xBE: // initialise
			a.calibrated = true
		case 0xBA: // soft reset
			a.calibrated = false
		case 0xAC: // trigger
			a.triggers++
			a.readyAt = time.Now().Add(a.busyFor)
		case 0x71: // status
			if len(r) > 0 {
				r[0] = status
			}
			return nil
		}
		return nil
	}

	if len(r) == 0 {
		return nil
	}
	r[0] = status
	if len(r) < 6 || busy {
		return nil
	}
	hraw := uint32(math.Round(a.rh / 100 * (1 << 20)))
	traw := uint32(math.Round((a.tempC + 50) / 200 * (1 << 20)))
	hraw &= 0xFFFFF
	traw &= 0xFFFFF
	r[1] = byte(hraw >> 12)
	r[2] = byte(hraw >> 4)
	r[3] = byte(hraw<<4) | byte(traw>>16)
	r[4] = byte(traw >> 8)
	r[5] = byte(traw)
	if len(r) > 6 {
		r[6] = 0 // CRC not modelled
	}
	return nil
}

// -----------------------------------------------------------------------------
// BH1750
// -----------------------------------------------------------------------------

// BH1750 models power state and the two byte result register.
type BH1750 struct {
	mu      sync.Mutex
	err     error
	powered bool
	mode    byte
	lux     float64
	modes   int
}

func NewBH1750(lux float64) *BH1750 {
	return &BH1750{lux: lux}
}

// Set changes the reported illuminance.
func (b *BH1750) Set(lux float64) {
	b.mu.Lock()
	b.lux = lux
	b.mu.Unlock()
}

// Fail makes every following transaction return err; nil clears it.
func (b *BH1750) Fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// ModeWrites returns how many measurement-mode opcodes were written.
func (b *BH1750) ModeWrites() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modes
}

func (b *BH1750) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if len(w) > 0 {
		switch w[0] {
		case 0x00:
			b.powered = false
		case 0x01:
			b.powered = true
		case 0x07:
		default:
			if !b.powered {
				return ErrNack
			}
			b.mode = w[0]
			b.modes++
		}
		return nil
	}
	if len(r) < 2 {
		return nil
	}
	counts := b.lux * 1.2
	if b.mode == 0x11 || b.mode == 0x21 {
		counts *= 2
	}
	raw := uint16(math.Min(math.Round(counts), math.MaxUint16))
	r[0], r[1] = byte(raw>>8), byte(raw)
	return nil
}

// -----------------------------------------------------------------------------
// Bench
// -----------------------------------------------------------------------------

// Bench is a bus populated with both sensors at their default addresses.
type Bench struct {
	*Bus
	AHT20  *AHT20
	BH1750 *BH1750
}

// NewBench returns a bus carrying a calibrated AHT20 at 0x38 and a BH1750
// at 0x23.
func NewBench(tempC, rh, lux float64) *Bench {
	b := &Bench{
		Bus:    NewBus(),
		AHT20:  NewAHT20(tempC, rh, true),
		BH1750: NewBH1750(lux),
	}
	b.Attach(0x38, b.AHT20)
	b.Attach(0x23, b.BH1750)
	return b
}
