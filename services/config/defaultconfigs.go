package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (selected at build time, see main.go)
// Val: YAML document for that device; omitted keys keep their defaults
// -----------------------------------------------------------------------------

const cfgPico = `
device:
  manufacturer: zigsense
  model: ZS-THL1
  power_source: dc
i2c:
  bus: i2c0
  sda: 4
  scl: 5
  hz: 100000
sensors:
  interval: 10
  fault_policy: report
  aht20: {enabled: true}
  bh1750: {enabled: true}
zigbee:
  endpoint: 10
  temp_min_c: 10
  temp_max_c: 50
heartbeat:
  interval: 30
logging:
  level: info
  format: text
  output: uart0
  baud: 115200
`

// Host bench: simulated peripherals and the loopback stack.
const cfgBench = `
device:
  manufacturer: zigsense
  model: ZS-THL1-BENCH
sensors:
  interval: 2
zigbee:
  retry_delay_ms: 1000
  sim_steering_failures: 2
heartbeat:
  interval: 5
logging:
  level: debug
  format: text
  output: stdout
mirror:
  enabled: false
  broker: tcp://localhost:1883
  topic_prefix: zigsense/bench
`

var embeddedConfigs = map[string]string{
	"pico":  cfgPico,
	"bench": cfgBench,
}
