package zigbee

import "fmt"

// Status is the result code that accompanies every stack signal. Values
// follow the stack's native error numbering; zero is success.
type Status int32

const (
	StatusOK           Status = 0
	StatusFail         Status = -1
	StatusInvalidState Status = 0x103
	StatusNotFound     Status = 0x105
	StatusTimeout      Status = 0x107
)

func (s Status) OK() bool { return s == StatusOK }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFail:
		return "fail"
	case StatusInvalidState:
		return "invalid_state"
	case StatusNotFound:
		return "not_found"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(0x%x)", int32(s))
	}
}

// Signal is a stack-level event delivered to the commissioner. The concrete
// types below are the only implementations.
type Signal interface {
	Status() Status
	fmt.Stringer
	isSignal()
}

// StackReady reports that the stack finished its own initialisation and is
// waiting for a top-level commissioning request.
type StackReady struct{ Result Status }

// DeviceStart reports the outcome of the initialisation commissioning step,
// on first start (Reboot=false) or after a reboot.
type DeviceStart struct {
	Reboot bool
	Result Status
}

// SteeringResult reports the outcome of a network steering attempt.
type SteeringResult struct{ Result Status }

// Other carries any signal the commissioner has no transition for.
type Other struct {
	ID     uint32
	Result Status
}

func (s StackReady) Status() Status     { return s.Result }
func (s DeviceStart) Status() Status    { return s.Result }
func (s SteeringResult) Status() Status { return s.Result }
func (s Other) Status() Status          { return s.Result }

func (StackReady) String() string { return "stack_ready" }
func (s DeviceStart) String() string {
	if s.Reboot {
		return "device_reboot"
	}
	return "device_first_start"
}
func (SteeringResult) String() string { return "steering" }
func (s Other) String() string        { return fmt.Sprintf("signal(0x%x)", s.ID) }

func (StackReady) isSignal()     {}
func (DeviceStart) isSignal()    {}
func (SteeringResult) isSignal() {}
func (Other) isSignal()          {}
