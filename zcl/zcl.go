// Package zcl holds the Zigbee Cluster Library identifiers and value
// encodings the node exposes.
package zcl

// Profiles and device types.
const (
	ProfileHomeAutomation uint16 = 0x0104

	DeviceTemperatureSensor uint16 = 0x0302
)

// Cluster identifiers.
const (
	ClusterBasic            uint16 = 0x0000
	ClusterIdentify         uint16 = 0x0003
	ClusterIlluminance      uint16 = 0x0400
	ClusterTemperature      uint16 = 0x0402
	ClusterRelativeHumidity uint16 = 0x0405
)

// Attribute identifiers.
const (
	// Basic
	AttrZCLVersion       uint16 = 0x0000
	AttrApplicationVer   uint16 = 0x0001
	AttrManufacturerName uint16 = 0x0004
	AttrModelIdentifier  uint16 = 0x0005
	AttrPowerSource      uint16 = 0x0007

	// Identify
	AttrIdentifyTime uint16 = 0x0000

	// Shared by the measurement clusters.
	AttrMeasuredValue    uint16 = 0x0000
	AttrMinMeasuredValue uint16 = 0x0001
	AttrMaxMeasuredValue uint16 = 0x0002
	AttrTolerance        uint16 = 0x0003
)

// Basic cluster enumerations.
const (
	ZCLVersion8 uint8 = 0x08

	PowerSourceUnknown uint8 = 0x00
	PowerSourceMains   uint8 = 0x01
	PowerSourceBattery uint8 = 0x03
	PowerSourceDC      uint8 = 0x04
)

// Role distinguishes the server and client side of a cluster on an endpoint.
type Role uint8

const (
	RoleServer Role = 0x01
	RoleClient Role = 0x02
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// DataType is a ZCL attribute data type.
type DataType uint8

const (
	TypeUint8   DataType = 0x20
	TypeUint16  DataType = 0x21
	TypeInt16   DataType = 0x29
	TypeEnum8   DataType = 0x30
	TypeCharStr DataType = 0x42
)

// Access flags
type Access uint8

const (
	AccessRead   Access = 0x01
	AccessWrite  Access = 0x02
	AccessReport Access = 0x04
)

func (a Access) CanRead() bool   { return a&AccessRead != 0 }
func (a Access) CanWrite() bool  { return a&AccessWrite != 0 }
func (a Access) CanReport() bool { return a&AccessReport != 0 }

// ClusterName returns a display name for the clusters this node knows.
func ClusterName(id uint16) string {
	switch id {
	case ClusterBasic:
		return "basic"
	case ClusterIdentify:
		return "identify"
	case ClusterIlluminance:
		return "illuminance"
	case ClusterTemperature:
		return "temperature"
	case ClusterRelativeHumidity:
		return "humidity"
	default:
		return "unknown"
	}
}
