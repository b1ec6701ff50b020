package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"
	NotReady      Code = "not_ready"
	UnknownBus    Code = "unknown_bus"

	// Peripheral and bus.
	BusInit    Code = "bus_init"
	SensorRead Code = "sensor_read"

	// Network stack.
	StackInit      Code = "stack_init"
	SteeringFailed Code = "steering_failed"
	AttrWrite      Code = "attr_write"

	// Startup construction.
	InvalidDescriptor Code = "invalid_descriptor"
	InvalidReading    Code = "invalid_reading"
	InvalidConfig     Code = "invalid_config"

	Error Code = "error" // generic fallback
)

// E carries a code together with the failing operation and its cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.BusInit) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E. A nil cause is allowed.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// New builds an *E with a message and no cause.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error. The outermost *E
// wins over any code it wraps.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}
