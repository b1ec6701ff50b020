// Package node wires the sensor node together: config, bus, I2C transport,
// sampling drivers, the reading bridge and the commissioner, and supervises
// them for the lifetime of the process.
package node

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"zigsense-go/bus"
	"zigsense-go/drivers/aht20"
	"zigsense-go/drivers/bh1750"
	"zigsense-go/errcode"
	"zigsense-go/services/config"
	"zigsense-go/services/heartbeat"
	"zigsense-go/services/i2cbus"
	"zigsense-go/services/sensors"
	"zigsense-go/services/zigbee"
	"zigsense-go/services/zigbee/simstack"
	"zigsense-go/types"
	"zigsense-go/zcl"
)

// Stack is a network stack together with its attribute store.
type Stack interface {
	zigbee.Stack
	zigbee.AttributeStore
}

// Options configures a Node. Config is required; the rest default from it.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	Bus    *bus.Bus
	// Opener brings up the sensor bus. Default i2cbus.PlatformOpener.
	Opener i2cbus.Opener
	// Stack defaults to the loopback stack scripted by the zigbee config.
	Stack Stack
}

// Node is one running sensor node.
type Node struct {
	cfg *config.Config
	log *slog.Logger
	bus *bus.Bus

	transport    *i2cbus.Transport
	opener       i2cbus.Opener
	stack        Stack
	desc         *zigbee.Descriptor
	sink         *zigbee.Sink
	bridge       *zigbee.Bridge
	commissioner *zigbee.Commissioner
	heartbeat    *heartbeat.Service

	mu      sync.Mutex
	drivers []*sensors.Driver
}

// New builds every component. Descriptor construction failures are
// returned here and are fatal to startup.
func New(opts Options) (*Node, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errcode.New(errcode.InvalidConfig, "node.new", "no config")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	b := opts.Bus
	if b == nil {
		b = bus.NewBus(8)
	}
	opener := opts.Opener
	if opener == nil {
		opener = i2cbus.PlatformOpener(i2cbus.Pins{ID: cfg.I2C.Bus, SDA: cfg.I2C.SDA, SCL: cfg.I2C.SCL, Hz: cfg.I2C.Hz})
	}
	stack := opts.Stack
	if stack == nil {
		stack = simstack.New(simstack.Options{
			Member:           cfg.Zigbee.SimMember,
			SteeringFailures: cfg.Zigbee.SimSteeringFailures,
			Logger:           log,
		})
	}

	desc, err := zigbee.BuildDescriptor(zigbee.DescriptorConfig{
		Endpoint:     cfg.Zigbee.Endpoint,
		Manufacturer: cfg.Device.Manufacturer,
		Model:        cfg.Device.Model,
		PowerSource:  cfg.Device.PowerSourceCode(),
		TempMinC:     cfg.Zigbee.TempMinC,
		TempMaxC:     cfg.Zigbee.TempMaxC,
	})
	if err != nil {
		return nil, err
	}

	sink := zigbee.NewSink(stack, b.NewConnection("sink"), log)
	n := &Node{
		cfg:       cfg,
		log:       log.With("component", "node"),
		bus:       b,
		transport: i2cbus.New(time.Duration(cfg.I2C.TimeoutMs) * time.Millisecond),
		opener:    opener,
		stack:     stack,
		desc:      desc,
		sink:      sink,
		bridge:    zigbee.NewBridge(sink, desc.Endpoint(), log),
		heartbeat: heartbeat.New(log),
	}
	n.commissioner = zigbee.NewCommissioner(stack, zigbee.CommissionerConfig{
		Descriptor: desc,
		Reporting: zigbee.ReportingConfig{
			Endpoint:    desc.Endpoint(),
			Cluster:     zcl.ClusterTemperature,
			Attr:        zcl.AttrMeasuredValue,
			MinInterval: cfg.Zigbee.Reporting.MinInterval,
			MaxInterval: cfg.Zigbee.Reporting.MaxInterval,
			Delta:       cfg.Zigbee.Reporting.Delta,
		},
		ChannelMask: cfg.Zigbee.ChannelMask,
		RetryDelay:  time.Duration(cfg.Zigbee.RetryDelayMs) * time.Millisecond,
	}, b.NewConnection("zigbee"), log)
	return n, nil
}

// Run starts every component and blocks until ctx ends, the stack fails, or
// a sensor with the fatal fault policy faults.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	config.NewConfigService(n.log).PublishConfig(n.bus.NewConnection("config"), n.cfg)
	if err := n.heartbeat.Start(ctx, n.bus.NewConnection("heartbeat")); err != nil {
		return err
	}
	if err := startMirror(ctx, n.cfg.Mirror, n.bus, n.log); err != nil {
		n.log.Warn("attribute mirror disabled", "err", err)
	}

	if err := n.commissioner.Register(); err != nil {
		return err
	}
	stackErr := make(chan error, 1)
	go func() { stackErr <- n.commissioner.Run(ctx) }()

	fatal := make(chan types.SensorFault, 1)
	if err := n.transport.Init(ctx, n.opener); err != nil {
		n.log.Error("sensor bus unavailable", "err", err)
	} else {
		n.startSensors(ctx, fatal)
	}

	select {
	case <-ctx.Done():
		n.log.Info("node stopping")
		return nil
	case err := <-stackErr:
		if err != nil {
			n.log.Error("network stack stopped", "err", err)
		}
		return err
	case f := <-fatal:
		n.log.Error("unrecoverable sensor fault", "sensor", f.Sensor, "err", f.Error)
		return errcode.New(errcode.SensorRead, "node.supervise", f.Sensor+": "+f.Error)
	}
}

func (n *Node) startSensors(ctx context.Context, fatal chan<- types.SensorFault) {
	policy := sensors.FaultReport
	if n.cfg.Sensors.FaultPolicy == "fatal" {
		policy = sensors.FaultFatal
	}
	var ms []sensors.Measurer
	if c := n.cfg.Sensors.AHT20; c.Enabled {
		ms = append(ms, sensors.NewAHT20(n.i2c(), aht20.Config{Address: c.Address}))
	}
	if c := n.cfg.Sensors.BH1750; c.Enabled {
		ms = append(ms, sensors.NewBH1750(n.i2c(), bh1750.Config{Address: c.Address}))
	}

	for _, m := range ms {
		d := sensors.NewDriver(m, sensors.Options{
			Policy: policy,
			Conn:   n.bus.NewConnection("sensor-" + m.Name()),
			Logger: n.log,
		})
		if err := d.Init(ctx, n.cfg.Sensors.IntervalSeconds, n.bridge.Callback()); err != nil {
			n.log.Error("sensor not started", "sensor", m.Name(), "err", err)
			continue
		}
		n.mu.Lock()
		n.drivers = append(n.drivers, d)
		n.mu.Unlock()
		go n.supervise(ctx, d, fatal)
	}
}

// supervise drains a driver's fault reports and escalates fatal ones.
func (n *Node) supervise(ctx context.Context, d *sensors.Driver, fatal chan<- types.SensorFault) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-d.Faults():
			if !f.Fatal {
				continue
			}
			select {
			case fatal <- f:
			default:
			}
			return
		}
	}
}

func (n *Node) i2c() drivers.I2C { return n.transport }

func (n *Node) Commissioner() *zigbee.Commissioner { return n.commissioner }
func (n *Node) Bridge() *zigbee.Bridge             { return n.bridge }
func (n *Node) Descriptor() *zigbee.Descriptor     { return n.desc }
func (n *Node) Heartbeat() *heartbeat.Service      { return n.heartbeat }

// Drivers returns the sampling drivers that started.
func (n *Node) Drivers() []*sensors.Driver {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*sensors.Driver(nil), n.drivers...)
}
