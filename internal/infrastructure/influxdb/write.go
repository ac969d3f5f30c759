package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceMetric records one numeric device attribute.
//
// This is the telemetry hook called on every state mutation (commands and
// drift alike) for attributes like brightness, speed and temperature. The
// write is non-blocking; points are batched and sent asynchronously.
//
//	client.WriteDeviceMetric("ac", "living room", "temperature", 24.5)
func (c *Client) WriteDeviceMetric(deviceType, location, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device":   deviceType,
			"location": location,
			"field":    field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
