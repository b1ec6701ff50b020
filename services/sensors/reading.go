// Package sensors runs the periodic sampling loops of the node's physical
// sensors and hands their readings to a registered callback.
package sensors

// Kind names the physical quantity of a reading.
type Kind uint8

const (
	Temperature Kind = iota + 1 // °C
	Humidity                    // %RH
	Illuminance                 // lx
)

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Illuminance:
		return "illuminance"
	default:
		return "unknown"
	}
}

// Reading is one measured value in physical units.
type Reading struct {
	Kind  Kind
	Value float64
}

// Callback receives the readings of one sampling cycle. It runs on the
// sampling goroutine.
type Callback func(readings ...Reading)
