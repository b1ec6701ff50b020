package zigbee

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"zigsense-go/errcode"
	"zigsense-go/services/sensors"
	"zigsense-go/zcl"
)

// BridgeStats counts bridge outcomes.
type BridgeStats struct {
	Written   uint64
	Saturated uint64
	Rejected  uint64 // conversion or write failures
}

// LastWrite is the most recent value written for one reading kind.
type LastWrite struct {
	Kind  sensors.Kind
	Value int16
}

// Bridge converts readings to ×100 attribute values and writes each one
// through the sink as its own locked operation.
type Bridge struct {
	sink     *Sink
	endpoint uint8
	log      *slog.Logger

	written, saturated, rejected atomic.Uint64

	mu   sync.Mutex
	last map[sensors.Kind]int16
}

func NewBridge(sink *Sink, endpoint uint8, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		sink:     sink,
		endpoint: endpoint,
		log:      log.With("component", "bridge"),
		last:     map[sensors.Kind]int16{},
	}
}

// Callback returns Publish as a sensors.Callback.
func (b *Bridge) Callback() sensors.Callback { return b.Publish }

// Publish writes every reading. Failures are logged and counted, never
// returned to the sampling loop.
func (b *Bridge) Publish(readings ...sensors.Reading) {
	for _, r := range readings {
		if err := b.publish(r); err != nil {
			b.rejected.Add(1)
			b.log.Warn("reading not written", "kind", r.Kind, "value", r.Value, "err", err)
		}
	}
}

func (b *Bridge) publish(r sensors.Reading) (err error) {
	cluster, ok := clusterFor(r.Kind)
	if !ok {
		return errcode.New(errcode.InvalidReading, "zigbee.bridge", "unknown reading kind")
	}
	v, saturated, err := zcl.Centi(r.Value)
	if err != nil {
		return err
	}
	if saturated {
		b.saturated.Add(1)
		b.log.Warn("reading saturated", "kind", r.Kind, "value", r.Value, "written", v)
	}

	defer func() {
		if p := recover(); p != nil {
			err = errcode.Wrap(errcode.AttrWrite, "zigbee.bridge", panicError(p))
		}
	}()
	if err := b.sink.Set(b.endpoint, cluster, zcl.AttrMeasuredValue, v); err != nil {
		return err
	}

	b.written.Add(1)
	b.mu.Lock()
	b.last[r.Kind] = v
	b.mu.Unlock()
	return nil
}

func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Written:   b.written.Load(),
		Saturated: b.saturated.Load(),
		Rejected:  b.rejected.Load(),
	}
}

// Last returns the last written value per kind, in kind order.
func (b *Bridge) Last() []LastWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []LastWrite
	for _, k := range []sensors.Kind{sensors.Temperature, sensors.Humidity, sensors.Illuminance} {
		if v, ok := b.last[k]; ok {
			out = append(out, LastWrite{Kind: k, Value: v})
		}
	}
	return out
}

func clusterFor(k sensors.Kind) (uint16, bool) {
	switch k {
	case sensors.Temperature:
		return zcl.ClusterTemperature, true
	case sensors.Humidity:
		return zcl.ClusterRelativeHumidity, true
	case sensors.Illuminance:
		return zcl.ClusterIlluminance, true
	}
	return 0, false
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	if s, ok := p.(string); ok {
		return errors.New(s)
	}
	return errors.New("panic during attribute write")
}
