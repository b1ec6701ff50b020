package zigbee

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/services/sensors"
	"zigsense-go/zcl"
)

func TestBridgeWritesScaledValues(t *testing.T) {
	st := newFakeStore()
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	b.Publish(
		sensors.Reading{Kind: sensors.Temperature, Value: 23.45},
		sensors.Reading{Kind: sensors.Humidity, Value: 54.3},
		sensors.Reading{Kind: sensors.Illuminance, Value: 12.5},
	)

	cases := []struct {
		cluster uint16
		want    int16
	}{
		{zcl.ClusterTemperature, 2345},
		{zcl.ClusterRelativeHumidity, 5430},
		{zcl.ClusterIlluminance, 1250},
	}
	for _, c := range cases {
		v, ok := st.value(10, c.cluster, zcl.AttrMeasuredValue)
		require.True(t, ok, zcl.ClusterName(c.cluster))
		assert.Equal(t, c.want, v, zcl.ClusterName(c.cluster))
	}
	// One lock acquisition per reading.
	assert.Equal(t, int32(3), st.locks.Load())
	assert.Equal(t, uint64(3), b.Stats().Written)
	assert.Equal(t, []LastWrite{
		{Kind: sensors.Temperature, Value: 2345},
		{Kind: sensors.Humidity, Value: 5430},
		{Kind: sensors.Illuminance, Value: 1250},
	}, b.Last())
}

func TestBridgeRejectsNaN(t *testing.T) {
	st := newFakeStore()
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	b.Publish(sensors.Reading{Kind: sensors.Temperature, Value: math.NaN()})

	_, ok := st.value(10, zcl.ClusterTemperature, zcl.AttrMeasuredValue)
	assert.False(t, ok)
	assert.Zero(t, st.locks.Load())
	assert.Equal(t, uint64(1), b.Stats().Rejected)
}

func TestBridgeSaturates(t *testing.T) {
	st := newFakeStore()
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	b.Publish(sensors.Reading{Kind: sensors.Illuminance, Value: 54612})

	v, _ := st.value(10, zcl.ClusterIlluminance, zcl.AttrMeasuredValue)
	assert.Equal(t, int16(math.MaxInt16), v)
	assert.Equal(t, uint64(1), b.Stats().Saturated)
}

func TestBridgeSwallowsWriteErrors(t *testing.T) {
	st := newFakeStore()
	st.failWith = errors.New("stack rejected write")
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	assert.NotPanics(t, func() {
		b.Publish(sensors.Reading{Kind: sensors.Temperature, Value: 20})
	})
	assert.Equal(t, uint64(1), b.Stats().Rejected)
	assert.True(t, st.free())
}

func TestBridgeRecoversFromPanickingStore(t *testing.T) {
	st := newFakeStore()
	st.panicWith = "corrupt table"
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	assert.NotPanics(t, func() {
		b.Publish(sensors.Reading{Kind: sensors.Humidity, Value: 50})
	})
	assert.True(t, st.free())
	assert.Equal(t, uint64(1), b.Stats().Rejected)
}

func TestBridgeUnknownKind(t *testing.T) {
	st := newFakeStore()
	b := NewBridge(NewSink(st, nil, nil), 10, nil)

	b.Publish(sensors.Reading{Kind: 0, Value: 1})
	assert.Equal(t, uint64(1), b.Stats().Rejected)
	assert.Zero(t, st.locks.Load())
}

func TestBridgeConcurrentCallbacks(t *testing.T) {
	st := newFakeStore()
	b := NewBridge(NewSink(st, nil, nil), 10, nil)
	temp, light := b.Callback(), b.Callback()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			temp(sensors.Reading{Kind: sensors.Temperature, Value: 20}, sensors.Reading{Kind: sensors.Humidity, Value: 40})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			light(sensors.Reading{Kind: sensors.Illuminance, Value: 300})
		}
	}()
	wg.Wait()

	assert.False(t, st.overlap.Load())
	assert.Equal(t, uint64(300), b.Stats().Written)
}
