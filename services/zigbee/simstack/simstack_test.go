package simstack

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/errcode"
	"zigsense-go/services/zigbee"
	"zigsense-go/zcl"
)

func descriptor(t *testing.T) *zigbee.Descriptor {
	t.Helper()
	d, err := zigbee.BuildDescriptor(zigbee.DescriptorConfig{Manufacturer: "zigsense", Model: "ZS-1", TempMinC: 10, TempMaxC: 50})
	require.NoError(t, err)
	return d
}

func runCommissioner(t *testing.T, st *Stack) (*zigbee.Commissioner, context.CancelFunc) {
	t.Helper()
	c := zigbee.NewCommissioner(st, zigbee.CommissionerConfig{
		Descriptor: descriptor(t),
		RetryDelay: 10 * time.Millisecond,
	}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	return c, cancel
}

func waitJoined(t *testing.T, c *zigbee.Commissioner) {
	t.Helper()
	select {
	case <-c.Joined():
	case <-time.After(2 * time.Second):
		t.Fatalf("not joined, state %s", c.State())
	}
}

func TestFactoryNewJoinsAfterFailures(t *testing.T) {
	st := New(Options{SteeringFailures: 3, Latency: time.Millisecond})
	c, cancel := runCommissioner(t, st)
	defer cancel()

	waitJoined(t, c)
	require.Eventually(t, func() bool { return c.Stats().Finalizations == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, 4, st.SteeringAttempts())
	assert.Equal(t, uint32(3), c.Stats().Retries)
	assert.Equal(t, zigbee.AllChannelsMask, st.ChannelMask())
	require.Len(t, st.Reporting(), 1)
	assert.Equal(t, uint16(300), st.Reporting()[0].MaxInterval)
	assert.False(t, st.IsFactoryNew())

	sigs := st.Signals()
	require.NotEmpty(t, sigs)
	assert.Equal(t, zigbee.StackReady{}, sigs[0])
	assert.Equal(t, zigbee.SteeringResult{Result: zigbee.StatusOK}, sigs[len(sigs)-1])
}

func TestMemberRebootsIntoJoined(t *testing.T) {
	st := New(Options{Member: true, Latency: time.Millisecond})
	c, cancel := runCommissioner(t, st)
	defer cancel()

	waitJoined(t, c)
	assert.Zero(t, st.SteeringAttempts())
	assert.Empty(t, st.Reporting())
}

func TestFailedInitNeverSteers(t *testing.T) {
	st := New(Options{InitStatus: zigbee.StatusFail, Latency: time.Millisecond})
	c, cancel := runCommissioner(t, st)
	defer cancel()

	require.Eventually(t, func() bool { return len(st.Signals()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, zigbee.StateUninitialized, c.State())
	assert.Len(t, st.Signals(), 1)
}

func TestAttributeWritesNeedLock(t *testing.T) {
	st := New(Options{})
	require.NoError(t, st.Register(descriptor(t)))

	err := st.SetAttribute(10, zcl.ClusterTemperature, zcl.RoleServer, zcl.AttrMeasuredValue, int16(1), false)
	assert.ErrorIs(t, err, errcode.AttrWrite)

	require.True(t, st.Lock(zigbee.WaitForever))
	require.NoError(t, st.SetAttribute(10, zcl.ClusterTemperature, zcl.RoleServer, zcl.AttrMeasuredValue, int16(2345), false))
	assert.Error(t, st.SetAttribute(10, zcl.ClusterTemperature, zcl.RoleServer, zcl.AttrMeasuredValue, 2345, false), "int is not int16")
	assert.Error(t, st.SetAttribute(10, 0x0006, zcl.RoleServer, 0, int16(1), false), "unknown cluster")
	st.Unlock()

	v, ok := st.Value(10, zcl.ClusterTemperature, zcl.AttrMeasuredValue)
	require.True(t, ok)
	assert.Equal(t, int16(2345), v)
	assert.Equal(t, 1, st.Writes())
}

func TestLockTimeout(t *testing.T) {
	st := New(Options{})
	require.True(t, st.Lock(time.Millisecond))
	assert.False(t, st.Lock(5*time.Millisecond))
	st.Unlock()
	assert.True(t, st.Lock(time.Millisecond))
	st.Unlock()
}

func TestSinkWritesContendWithMainLoop(t *testing.T) {
	st := New(Options{Latency: time.Millisecond})
	c, cancel := runCommissioner(t, st)
	defer cancel()
	waitJoined(t, c)

	sink := zigbee.NewSink(st, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, sink.Set(10, zcl.ClusterRelativeHumidity, zcl.AttrMeasuredValue, int16(i*1000+j)))
				st.ScheduleAlarm(0, func() {})
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 200, st.Writes())
}

func TestReportingRejectsUnknownAttribute(t *testing.T) {
	st := New(Options{})
	require.NoError(t, st.Register(descriptor(t)))

	assert.NoError(t, st.UpdateReporting(zigbee.DefaultTemperatureReporting(10)))
	assert.Error(t, st.UpdateReporting(zigbee.ReportingConfig{Endpoint: 10, Cluster: zcl.ClusterBasic, Attr: zcl.AttrZCLVersion}))
	assert.Error(t, st.UpdateReporting(zigbee.DefaultTemperatureReporting(11)))
	assert.Error(t, st.SetPrimaryChannelMask(1<<27))
}

func TestRegisterTwice(t *testing.T) {
	st := New(Options{})
	require.NoError(t, st.Register(descriptor(t)))
	assert.ErrorIs(t, st.Register(descriptor(t)), errcode.Busy)
}
