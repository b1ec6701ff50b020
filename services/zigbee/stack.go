package zigbee

import (
	"context"
	"fmt"
	"math"
	"time"

	"zigsense-go/zcl"
)

// WaitForever is the lock timeout writers use: they never give up.
const WaitForever time.Duration = math.MaxInt64

// Mode is a top-level commissioning mode.
type Mode uint8

const (
	ModeInitialization  Mode = 0x00
	ModeNetworkSteering Mode = 0x02
)

func (m Mode) String() string {
	switch m {
	case ModeInitialization:
		return "initialization"
	case ModeNetworkSteering:
		return "network_steering"
	default:
		return fmt.Sprintf("mode(0x%x)", uint8(m))
	}
}

// AllChannelsMask selects every 2.4 GHz channel (11..26).
const AllChannelsMask uint32 = 0x07FFF800

// NetworkInfo describes the network the device joined.
type NetworkInfo struct {
	ExtendedPANID [8]byte // little-endian, as the stack stores it
	PANID         uint16
	Channel       uint8
	ShortAddress  uint16
}

// ExtendedPANString formats the extended PAN id most-significant byte first.
func (n NetworkInfo) ExtendedPANString() string {
	e := n.ExtendedPANID
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		e[7], e[6], e[5], e[4], e[3], e[2], e[1], e[0])
}

// Stack is the mesh network stack as seen by the commissioner.
type Stack interface {
	// Register hands the device model to the stack. Called once, before Run.
	Register(d *Descriptor) error
	// StartCommissioning requests a top-level commissioning step. The
	// outcome arrives later as a signal.
	StartCommissioning(mode Mode) error
	// IsFactoryNew reports whether the device holds no network membership.
	IsFactoryNew() bool
	UpdateReporting(cfg ReportingConfig) error
	SetPrimaryChannelMask(mask uint32) error
	// ScheduleAlarm runs fn once on the stack's own context after d.
	ScheduleAlarm(d time.Duration, fn func())
	NetworkInfo() NetworkInfo
	// Run is the stack's main loop. It delivers signals to handler on the
	// stack's processing goroutine and blocks until ctx ends or the stack
	// fails.
	Run(ctx context.Context, handler func(Signal)) error
}

// AttributeStore is the stack's shared table of reportable values, guarded
// by one process-wide lock.
type AttributeStore interface {
	// Lock acquires the stack lock, waiting at most timeout. It reports
	// whether the lock was taken.
	Lock(timeout time.Duration) bool
	Unlock()
	SetAttribute(endpoint uint8, cluster uint16, role zcl.Role, attr uint16, value any, reportNow bool) error
}
