package zigbee

import (
	"fmt"

	"zigsense-go/errcode"
	"zigsense-go/zcl"
)

// Attribute is one attribute definition with its initial value.
type Attribute struct {
	ID     uint16
	Type   zcl.DataType
	Access zcl.Access
	Value  any
}

// Cluster is one side (server or client) of a cluster on the endpoint.
type Cluster struct {
	ID         uint16
	Role       zcl.Role
	Attributes []Attribute
}

// Attribute returns the attribute with the given id.
func (c Cluster) Attribute(id uint16) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}

// Descriptor is the immutable device model registered with the stack.
type Descriptor struct {
	endpoint      uint8
	profileID     uint16
	deviceID      uint16
	deviceVersion uint8
	clusters      []Cluster
}

func (d *Descriptor) Endpoint() uint8      { return d.endpoint }
func (d *Descriptor) ProfileID() uint16    { return d.profileID }
func (d *Descriptor) DeviceID() uint16     { return d.deviceID }
func (d *Descriptor) DeviceVersion() uint8 { return d.deviceVersion }

// Clusters returns a deep copy of the cluster list.
func (d *Descriptor) Clusters() []Cluster {
	out := make([]Cluster, len(d.clusters))
	for i, c := range d.clusters {
		out[i] = Cluster{ID: c.ID, Role: c.Role, Attributes: append([]Attribute(nil), c.Attributes...)}
	}
	return out
}

// Cluster looks up one cluster side.
func (d *Descriptor) Cluster(id uint16, role zcl.Role) (Cluster, bool) {
	for _, c := range d.clusters {
		if c.ID == id && c.Role == role {
			return Cluster{ID: c.ID, Role: c.Role, Attributes: append([]Attribute(nil), c.Attributes...)}, true
		}
	}
	return Cluster{}, false
}

// DescriptorConfig carries device identity and measurable ranges.
type DescriptorConfig struct {
	Endpoint     uint8
	Manufacturer string
	Model        string
	PowerSource  uint8
	TempMinC     float64
	TempMaxC     float64
}

const DefaultEndpoint uint8 = 10

// BuildDescriptor assembles the temperature sensor endpoint: Basic,
// Identify (server and client), Temperature, Relative Humidity and
// Illuminance measurement.
func BuildDescriptor(cfg DescriptorConfig) (*Descriptor, error) {
	const op = "zigbee.descriptor"
	if cfg.Endpoint == 0 {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Endpoint > 240 {
		return nil, errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("endpoint %d out of range 1..240", cfg.Endpoint))
	}

	manufacturer, err := zcl.CharString(cfg.Manufacturer)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidDescriptor, op+".manufacturer", err)
	}
	model, err := zcl.CharString(cfg.Model)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidDescriptor, op+".model", err)
	}

	if cfg.TempMinC >= cfg.TempMaxC {
		return nil, errcode.New(errcode.InvalidDescriptor, op, "temperature min must be below max")
	}
	tmin, sat1, err1 := zcl.Centi(cfg.TempMinC)
	tmax, sat2, err2 := zcl.Centi(cfg.TempMaxC)
	if err1 != nil || err2 != nil || sat1 || sat2 {
		return nil, errcode.New(errcode.InvalidDescriptor, op, "temperature bounds not representable")
	}

	ro := zcl.AccessRead
	rr := zcl.AccessRead | zcl.AccessReport

	measurement := func(id uint16, min, max int16) Cluster {
		return Cluster{ID: id, Role: zcl.RoleServer, Attributes: []Attribute{
			{ID: zcl.AttrMeasuredValue, Type: zcl.TypeInt16, Access: rr, Value: int16(0)},
			{ID: zcl.AttrMinMeasuredValue, Type: zcl.TypeInt16, Access: ro, Value: min},
			{ID: zcl.AttrMaxMeasuredValue, Type: zcl.TypeInt16, Access: ro, Value: max},
		}}
	}

	d := &Descriptor{
		endpoint:      cfg.Endpoint,
		profileID:     zcl.ProfileHomeAutomation,
		deviceID:      zcl.DeviceTemperatureSensor,
		deviceVersion: 0,
		clusters: []Cluster{
			{ID: zcl.ClusterBasic, Role: zcl.RoleServer, Attributes: []Attribute{
				{ID: zcl.AttrZCLVersion, Type: zcl.TypeUint8, Access: ro, Value: zcl.ZCLVersion8},
				{ID: zcl.AttrPowerSource, Type: zcl.TypeEnum8, Access: ro, Value: cfg.PowerSource},
				{ID: zcl.AttrManufacturerName, Type: zcl.TypeCharStr, Access: ro, Value: manufacturer},
				{ID: zcl.AttrModelIdentifier, Type: zcl.TypeCharStr, Access: ro, Value: model},
			}},
			{ID: zcl.ClusterIdentify, Role: zcl.RoleServer, Attributes: []Attribute{
				{ID: zcl.AttrIdentifyTime, Type: zcl.TypeUint16, Access: ro | zcl.AccessWrite, Value: uint16(0)},
			}},
			{ID: zcl.ClusterIdentify, Role: zcl.RoleClient},
			measurement(zcl.ClusterTemperature, tmin, tmax),
			measurement(zcl.ClusterRelativeHumidity, 0, 10000),
			// 0 and 0xFFFF mean "unknown" for the illuminance bounds.
			measurement(zcl.ClusterIlluminance, 0, 0x7FFF),
		},
	}
	return d, nil
}
