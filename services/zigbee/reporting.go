package zigbee

import "zigsense-go/zcl"

// ReportingConfig is the server-side reporting schedule of one attribute.
type ReportingConfig struct {
	Endpoint    uint8
	Cluster     uint16
	Attr        uint16
	MinInterval uint16 // seconds
	MaxInterval uint16 // seconds
	Delta       uint16 // reportable change, in attribute units
}

// DefaultTemperatureReporting reports the measured temperature at least
// every five minutes and on any change of 1.00 °C.
func DefaultTemperatureReporting(endpoint uint8) ReportingConfig {
	return ReportingConfig{
		Endpoint:    endpoint,
		Cluster:     zcl.ClusterTemperature,
		Attr:        zcl.AttrMeasuredValue,
		MinInterval: 0,
		MaxInterval: 300,
		Delta:       100,
	}
}
