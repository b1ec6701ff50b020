package types

// Payloads carried on the in-process bus. Timestamps are Unix milliseconds.

// ---- Sensors ----

// SensorFault is published on sensor/<name>/fault when a sampling cycle fails.
type SensorFault struct {
	Sensor string `json:"sensor" cbor:"1,keyasint"`
	Code   string `json:"code" cbor:"2,keyasint"` // errcode value
	Error  string `json:"error" cbor:"3,keyasint"`
	Fatal  bool   `json:"fatal" cbor:"4,keyasint"`
	Cycle  uint64 `json:"cycle" cbor:"5,keyasint"`
	TS     int64  `json:"ts_ms" cbor:"6,keyasint"`
}

// ---- Zigbee ----

// CommissioningStatus is retained on zigbee/state.
type CommissioningStatus struct {
	State   string `json:"state" cbor:"1,keyasint"`
	Retries uint32 `json:"retries" cbor:"2,keyasint"`
	Status  string `json:"status,omitempty" cbor:"3,keyasint,omitempty"` // status of the signal that caused the transition
	TS      int64  `json:"ts_ms" cbor:"4,keyasint"`
}

// AttributeUpdate is published on attr/<endpoint>/<cluster>/<attr> after a
// successful locked write.
type AttributeUpdate struct {
	Endpoint uint8  `json:"endpoint" cbor:"1,keyasint"`
	Cluster  uint16 `json:"cluster" cbor:"2,keyasint"`
	Attr     uint16 `json:"attr" cbor:"3,keyasint"`
	Value    int16  `json:"value" cbor:"4,keyasint"`
	TS       int64  `json:"ts_ms" cbor:"5,keyasint"`
}

// ---- Heartbeat ----

// HeartbeatConfig is retained on config/heartbeat.
type HeartbeatConfig struct {
	IntervalSeconds int `json:"interval" yaml:"interval"`
}
