//go:build !rp2040 && !rp2350

package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/bus"
	"zigsense-go/services/config"
	"zigsense-go/types"
)

type sent struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{topic, payload, qos, retained})
	return nil
}

func (f *fakePublisher) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func TestMirrorForwardsAttributeUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	pub := &fakePublisher{}
	m, err := New(pub, config.MirrorConfig{TopicPrefix: "zigsense/bench/", QoS: 1}, nil)
	require.NoError(t, err)
	m.Start(ctx, b.NewConnection("mirror"))

	src := b.NewConnection("sink")
	want := types.AttributeUpdate{Endpoint: 10, Cluster: 0x0402, Attr: 0, Value: 2345, TS: 1}
	src.Publish(src.NewMessage(bus.T("attr", "10", "0402", "0000"), want, false))

	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, time.Millisecond)
	got := pub.all()[0]
	assert.Equal(t, "zigsense/bench/attr/10/0402/0000", got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.False(t, got.retained)

	var dec types.AttributeUpdate
	require.NoError(t, cbor.Unmarshal(got.payload, &dec))
	assert.Equal(t, want, dec)
}

func TestMirrorKeepsRetainFlag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	src := b.NewConnection("zigbee")
	src.Publish(src.NewMessage(bus.T("zigbee", "state"), types.CommissioningStatus{State: "joined"}, true))

	pub := &fakePublisher{}
	m, err := New(pub, config.MirrorConfig{}, nil)
	require.NoError(t, err)
	m.Start(ctx, b.NewConnection("mirror"))

	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, time.Millisecond)
	got := pub.all()[0]
	assert.Equal(t, "zigbee/state", got.topic)
	assert.True(t, got.retained)
}

func TestMirrorCountsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	pub := &fakePublisher{err: errors.New("not connected")}
	m, err := New(pub, config.MirrorConfig{}, nil)
	require.NoError(t, err)
	m.Start(ctx, b.NewConnection("mirror"))

	src := b.NewConnection("sensors")
	src.Publish(src.NewMessage(bus.T("sensor", "bh1750", "fault"), types.SensorFault{Sensor: "bh1750"}, false))

	require.Eventually(t, func() bool { return m.Stats().Failed == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, m.Stats().Sent)
}

func TestNewRejectsQoS(t *testing.T) {
	_, err := New(&fakePublisher{}, config.MirrorConfig{QoS: 3}, nil)
	assert.Error(t, err)
}
