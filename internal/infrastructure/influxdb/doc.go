// Package influxdb provides optional time-series telemetry for VoxHome
// IoT Core. When enabled, numeric device attributes are written to an
// InfluxDB v2 bucket on every mutation, giving dashboards a live view of
// brightness, fan speed and AC temperature over time. The core is fully
// functional with telemetry disabled.
package influxdb
