package heartbeat

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/bus"
	"zigsense-go/types"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *syncBuffer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func (w *syncBuffer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}

func TestHeartbeatTracksBusState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	pub := b.NewConnection("pub")
	pub.Publish(pub.NewMessage(bus.T("zigbee", "state"), types.CommissioningStatus{State: "joined"}, true))

	var out syncBuffer
	s := New(slog.New(slog.NewTextHandler(&out, nil)))
	require.NoError(t, s.Start(ctx, b.NewConnection("heartbeat")))

	require.Eventually(t, func() bool { return s.Snapshot().State == "joined" }, time.Second, time.Millisecond)

	pub.Publish(pub.NewMessage(bus.T("attr", "10", "0402", "0000"), types.AttributeUpdate{Value: 2345}, false))
	pub.Publish(pub.NewMessage(bus.T("sensor", "aht20", "fault"), types.SensorFault{Sensor: "aht20"}, false))

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Writes["attr/10/0402/0000"] == 2345 && snap.Faults == 1
	}, time.Second, time.Millisecond)
}

func TestHeartbeatIntervalFromConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	pub := b.NewConnection("cfg")
	pub.Publish(pub.NewMessage(bus.T("config", "heartbeat"), types.HeartbeatConfig{IntervalSeconds: 1}, true))

	var out syncBuffer
	s := New(slog.New(slog.NewTextHandler(&out, nil)))
	require.NoError(t, s.Start(ctx, b.NewConnection("heartbeat")))

	require.Eventually(t, func() bool { return s.Beats() >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "msg=heartbeat")
	assert.Contains(t, out.String(), "state=unknown")
}
