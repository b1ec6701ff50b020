// Package simstack is a loopback network stack. It answers commissioning
// requests with scripted signals, keeps the attribute table in memory and
// runs alarms on its own goroutine, like the radio stack's main loop does.
package simstack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zigsense-go/errcode"
	"zigsense-go/services/zigbee"
	"zigsense-go/zcl"
)

// Options scripts the stack's behaviour. All fields are optional.
type Options struct {
	// Member starts the device with network membership (not factory new).
	Member bool
	// SteeringFailures is how many steering attempts fail before one succeeds.
	SteeringFailures int
	// InitStatus is reported by the first StackReady signal.
	InitStatus zigbee.Status
	// Latency between a request and its signal. Default 5 ms.
	Latency time.Duration
	Network zigbee.NetworkInfo
	Logger  *slog.Logger
}

type attrKey struct {
	ep      uint8
	cluster uint16
	attr    uint16
}

// Stack implements zigbee.Stack and zigbee.AttributeStore.
type Stack struct {
	opts Options
	log  *slog.Logger

	lock   chan struct{} // the stack lock; a token present means held
	events chan func()
	done   chan struct{}

	mu          sync.Mutex
	desc        *zigbee.Descriptor
	handler     func(zigbee.Signal)
	running     bool
	member      bool
	attempts    int
	reporting   []zigbee.ReportingConfig
	channelMask uint32
	signals     []zigbee.Signal
	attrs       map[attrKey]any
	writes      int
}

var (
	_ zigbee.Stack          = (*Stack)(nil)
	_ zigbee.AttributeStore = (*Stack)(nil)
)

func New(opts Options) *Stack {
	if opts.Latency <= 0 {
		opts.Latency = 5 * time.Millisecond
	}
	if opts.Network == (zigbee.NetworkInfo{}) {
		opts.Network = zigbee.NetworkInfo{
			ExtendedPANID: [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			PANID:         0x1a62,
			Channel:       15,
			ShortAddress:  0x4d2f,
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Stack{
		opts:   opts,
		log:    opts.Logger.With("component", "simstack"),
		lock:   make(chan struct{}, 1),
		events: make(chan func(), 16),
		done:   make(chan struct{}),
		member: opts.Member,
		attrs:  map[attrKey]any{},
	}
}

// Register seeds the attribute table from the descriptor's server clusters.
func (s *Stack) Register(d *zigbee.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.desc != nil {
		return errcode.New(errcode.Busy, "simstack.register", "endpoint already registered")
	}
	if s.running {
		return errcode.New(errcode.NotReady, "simstack.register", "stack already running")
	}
	s.desc = d
	for _, c := range d.Clusters() {
		if c.Role != zcl.RoleServer {
			continue
		}
		for _, a := range c.Attributes {
			s.attrs[attrKey{d.Endpoint(), c.ID, a.ID}] = a.Value
		}
	}
	return nil
}

// Run processes signals and alarms until ctx ends. The stack lock is held
// while each event runs.
func (s *Stack) Run(ctx context.Context, handler func(zigbee.Signal)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errcode.Busy
	}
	if s.desc == nil {
		s.mu.Unlock()
		return errcode.New(errcode.StackInit, "simstack.run", "no endpoint registered")
	}
	s.running = true
	s.handler = handler
	s.reply(zigbee.StackReady{Result: s.opts.InitStatus})
	s.mu.Unlock()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("main loop stopping")
			return nil
		case ev := <-s.events:
			s.Lock(zigbee.WaitForever)
			ev()
			s.Unlock()
		}
	}
}

// post queues fn for the main loop after d.
func (s *Stack) post(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case s.events <- fn:
		case <-s.done:
		}
	})
}

// reply delivers sig to the handler after the configured latency. s.mu
// must be held.
func (s *Stack) reply(sig zigbee.Signal) {
	h := s.handler
	s.post(s.opts.Latency, func() {
		s.mu.Lock()
		s.signals = append(s.signals, sig)
		s.mu.Unlock()
		h(sig)
	})
}

func (s *Stack) StartCommissioning(mode zigbee.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errcode.New(errcode.NotReady, "simstack.commission", "stack not running")
	}
	switch mode {
	case zigbee.ModeInitialization:
		reboot := s.member
		s.reply(zigbee.DeviceStart{Reboot: reboot, Result: zigbee.StatusOK})
	case zigbee.ModeNetworkSteering:
		s.attempts++
		if s.attempts <= s.opts.SteeringFailures {
			s.reply(zigbee.SteeringResult{Result: zigbee.StatusTimeout})
			return nil
		}
		s.member = true
		s.reply(zigbee.SteeringResult{Result: zigbee.StatusOK})
	default:
		return errcode.New(errcode.InvalidParams, "simstack.commission", "unsupported mode "+mode.String())
	}
	return nil
}

func (s *Stack) IsFactoryNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.member
}

// UpdateReporting accepts reporting only for reportable server attributes
// of the registered endpoint.
func (s *Stack) UpdateReporting(cfg zigbee.ReportingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "simstack.reporting"
	if s.desc == nil || cfg.Endpoint != s.desc.Endpoint() {
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("unknown endpoint %d", cfg.Endpoint))
	}
	c, ok := s.desc.Cluster(cfg.Cluster, zcl.RoleServer)
	if !ok {
		return errcode.New(errcode.InvalidParams, op, "unknown cluster "+zcl.ClusterName(cfg.Cluster))
	}
	a, ok := c.Attribute(cfg.Attr)
	if !ok || !a.Access.CanReport() {
		return errcode.New(errcode.InvalidParams, op, "attribute not reportable")
	}
	if cfg.MaxInterval != 0 && cfg.MinInterval > cfg.MaxInterval {
		return errcode.New(errcode.InvalidParams, op, "min interval above max")
	}
	s.reporting = append(s.reporting, cfg)
	return nil
}

func (s *Stack) SetPrimaryChannelMask(mask uint32) error {
	if mask == 0 || mask&^zigbee.AllChannelsMask != 0 {
		return errcode.New(errcode.InvalidParams, "simstack.channels", fmt.Sprintf("mask 0x%08x outside channels 11..26", mask))
	}
	s.mu.Lock()
	s.channelMask = mask
	s.mu.Unlock()
	return nil
}

// ScheduleAlarm runs fn on the main loop after d.
func (s *Stack) ScheduleAlarm(d time.Duration, fn func()) {
	s.post(d, fn)
}

func (s *Stack) NetworkInfo() zigbee.NetworkInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.member {
		return zigbee.NetworkInfo{}
	}
	return s.opts.Network
}

// -----------------------------------------------------------------------------
// Attribute store
// -----------------------------------------------------------------------------

func (s *Stack) Lock(timeout time.Duration) bool {
	if timeout == zigbee.WaitForever {
		s.lock <- struct{}{}
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.lock <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (s *Stack) Unlock() {
	select {
	case <-s.lock:
	default:
		panic("simstack: unlock of unlocked stack")
	}
}

// SetAttribute replaces an existing server attribute. The stack lock must be
// held and the value must keep the attribute's type.
func (s *Stack) SetAttribute(ep uint8, cluster uint16, role zcl.Role, attr uint16, value any, reportNow bool) error {
	const op = "simstack.set"
	if len(s.lock) == 0 {
		return errcode.New(errcode.AttrWrite, op, "stack lock not held")
	}
	if role != zcl.RoleServer {
		return errcode.New(errcode.InvalidParams, op, "only server attributes are writable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attrKey{ep, cluster, attr}
	old, ok := s.attrs[k]
	if !ok {
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("no attribute %d/0x%04x/0x%04x", ep, cluster, attr))
	}
	if fmt.Sprintf("%T", old) != fmt.Sprintf("%T", value) {
		return errcode.New(errcode.InvalidParams, op, fmt.Sprintf("type %T, want %T", value, old))
	}
	s.attrs[k] = value
	s.writes++
	return nil
}

// Value returns the stored value of one attribute.
func (s *Stack) Value(ep uint8, cluster, attr uint16) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[attrKey{ep, cluster, attr}]
	return v, ok
}

// Writes returns how many attribute writes were accepted.
func (s *Stack) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Signals returns the signals delivered so far.
func (s *Stack) Signals() []zigbee.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]zigbee.Signal(nil), s.signals...)
}

// Reporting returns the reporting configurations applied so far.
func (s *Stack) Reporting() []zigbee.ReportingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]zigbee.ReportingConfig(nil), s.reporting...)
}

func (s *Stack) ChannelMask() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelMask
}

// SteeringAttempts returns how many steering requests were received.
func (s *Stack) SteeringAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
