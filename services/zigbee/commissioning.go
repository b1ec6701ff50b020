package zigbee

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"zigsense-go/bus"
	"zigsense-go/errcode"
	"zigsense-go/types"
	"zigsense-go/x/timex"
)

// State is the commissioning state of the node.
type State uint8

const (
	StateUninitialized State = iota
	StateStackReady
	StateSteering
	StateJoined
	StateSteeringFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStackReady:
		return "stack_ready"
	case StateSteering:
		return "steering"
	case StateJoined:
		return "joined"
	case StateSteeringFailed:
		return "steering_failed"
	default:
		return "unknown"
	}
}

// DefaultRetryDelay separates a failed steering attempt from the next one.
const DefaultRetryDelay = 1000 * time.Millisecond

var TopicState = bus.T("zigbee", "state")

// CommissionerConfig is what the commissioner applies to the stack.
type CommissionerConfig struct {
	Descriptor  *Descriptor
	Reporting   ReportingConfig // default DefaultTemperatureReporting on the descriptor's endpoint
	ChannelMask uint32        // default AllChannelsMask
	RetryDelay  time.Duration // default DefaultRetryDelay
}

// Stats counts commissioning activity.
type Stats struct {
	State         State
	Retries       uint32 // steering re-requests issued by the retry alarm
	Finalizations uint32
}

// Commissioner drives the join sequence from stack signals.
type Commissioner struct {
	stack Stack
	cfg   CommissionerConfig
	conn  *bus.Connection // optional
	log   *slog.Logger

	mu            sync.Mutex
	registered    bool
	state         State
	finalized     bool
	retryPending  bool
	retries       uint32
	finalizations uint32
	joined        chan struct{}
}

func NewCommissioner(stack Stack, cfg CommissionerConfig, conn *bus.Connection, log *slog.Logger) *Commissioner {
	if cfg.ChannelMask == 0 {
		cfg.ChannelMask = AllChannelsMask
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Reporting == (ReportingConfig{}) && cfg.Descriptor != nil {
		cfg.Reporting = DefaultTemperatureReporting(cfg.Descriptor.Endpoint())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Commissioner{
		stack:  stack,
		cfg:    cfg,
		conn:   conn,
		log:    log.With("component", "commissioner"),
		joined: make(chan struct{}),
	}
}

// Register hands the descriptor to the stack. It is done at most once; Run
// calls it if the caller has not.
func (c *Commissioner) Register() error {
	c.mu.Lock()
	done := c.registered
	c.mu.Unlock()
	if done {
		return nil
	}
	if c.cfg.Descriptor == nil {
		return errcode.New(errcode.InvalidDescriptor, "zigbee.register", "no descriptor")
	}
	if err := c.stack.Register(c.cfg.Descriptor); err != nil {
		return errcode.Wrap(errcode.StackInit, "zigbee.register", err)
	}
	c.mu.Lock()
	c.registered = true
	c.mu.Unlock()
	c.publish(StatusOK)
	return nil
}

// Run registers the descriptor if needed and then runs the stack main loop
// until ctx ends or the stack fails.
func (c *Commissioner) Run(ctx context.Context) error {
	if err := c.Register(); err != nil {
		return err
	}
	if err := c.stack.Run(ctx, c.HandleSignal); err != nil && ctx.Err() == nil {
		return errcode.Wrap(errcode.StackInit, "zigbee.run", err)
	}
	return nil
}

// HandleSignal is the stack's signal handler.
func (c *Commissioner) HandleSignal(sig Signal) {
	switch s := sig.(type) {
	case StackReady:
		c.onStackReady(s)
	case DeviceStart:
		c.onDeviceStart(s)
	case SteeringResult:
		c.onSteering(s)
	case nil:
		c.log.Warn("nil signal")
	default:
		c.log.Info("zdo signal", "signal", sig, "status", sig.Status())
	}
}

func (c *Commissioner) onStackReady(s StackReady) {
	if !s.Result.OK() {
		c.log.Error("zigbee stack initialisation failed", "status", s.Result)
		return
	}
	c.log.Info("zigbee stack initialised")
	c.setState(StateStackReady, s.Result)
	if err := c.stack.StartCommissioning(ModeInitialization); err != nil {
		c.log.Error("initialisation request failed", "err", err)
	}
}

func (c *Commissioner) onDeviceStart(s DeviceStart) {
	if !s.Result.OK() {
		c.log.Warn("device start failed", "signal", s, "status", s.Result)
		c.setState(StateSteeringFailed, s.Result)
		return
	}
	factoryNew := c.stack.IsFactoryNew()
	c.log.Info("device started", "reboot", s.Reboot, "factory_new", factoryNew)
	if !factoryNew {
		c.setState(StateJoined, s.Result)
		c.markJoined()
		return
	}
	c.steer(s.Result)
}

func (c *Commissioner) onSteering(s SteeringResult) {
	if c.State() == StateJoined {
		c.log.Debug("steering result after join ignored", "status", s.Result)
		return
	}
	if !s.Result.OK() {
		c.log.Warn("network steering was not successful", "status", s.Result)
		c.setState(StateSteeringFailed, s.Result)
		c.scheduleRetry()
		return
	}
	c.setState(StateJoined, s.Result)
	c.finalize()
}

// steer requests network steering. A failed request counts as a failed
// steering attempt.
func (c *Commissioner) steer(cause Status) {
	c.setState(StateSteering, cause)
	if err := c.stack.StartCommissioning(ModeNetworkSteering); err != nil {
		c.log.Warn("steering request failed", "err", err)
		c.setState(StateSteeringFailed, StatusFail)
		c.scheduleRetry()
	}
}

func (c *Commissioner) scheduleRetry() {
	c.mu.Lock()
	if c.retryPending {
		c.mu.Unlock()
		return
	}
	c.retryPending = true
	c.mu.Unlock()
	c.stack.ScheduleAlarm(c.cfg.RetryDelay, c.retry)
}

func (c *Commissioner) retry() {
	c.mu.Lock()
	c.retryPending = false
	if c.state != StateSteeringFailed {
		c.mu.Unlock()
		return
	}
	c.retries++
	n := c.retries
	c.mu.Unlock()

	c.log.Info("retrying network steering", "attempt", n)
	c.steer(StatusOK)
}

func (c *Commissioner) finalize() {
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	c.finalizations++
	c.mu.Unlock()

	if err := c.stack.UpdateReporting(c.cfg.Reporting); err != nil {
		c.log.Error("reporting configuration failed", "err", errcode.Wrap(errcode.StackInit, "zigbee.reporting", err))
	}
	if err := c.stack.SetPrimaryChannelMask(c.cfg.ChannelMask); err != nil {
		c.log.Error("channel mask not applied", "err", err)
	}
	info := c.stack.NetworkInfo()
	c.log.Info("joined network successfully",
		"ext_pan_id", info.ExtendedPANString(),
		"pan_id", info.PANID,
		"channel", info.Channel,
		"short_addr", info.ShortAddress)
	c.markJoined()
}

func (c *Commissioner) markJoined() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.joined:
	default:
		close(c.joined)
	}
}

func (c *Commissioner) setState(s State, cause Status) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug("state", "from", prev, "to", s)
	}
	c.publish(cause)
}

func (c *Commissioner) publish(cause Status) {
	if c.conn == nil {
		return
	}
	st := c.Stats()
	c.conn.Publish(c.conn.NewMessage(TopicState, types.CommissioningStatus{
		State:   st.State.String(),
		Retries: st.Retries,
		Status:  cause.String(),
		TS:      timex.NowMs(),
	}, true))
}

// State returns the current commissioning state.
func (c *Commissioner) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Joined is closed once the node holds network membership.
func (c *Commissioner) Joined() <-chan struct{} { return c.joined }

func (c *Commissioner) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{State: c.state, Retries: c.retries, Finalizations: c.finalizations}
}
