package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRelayState records one point per relay slot from a device state
// report.
//
// Each point lands in the relay_state measurement, tagged by device_id
// and slot number, with the on/off value as an integer field. Writes
// are non-blocking; data is batched and sent asynchronously. Reports
// from unconnected clients are dropped.
//
// Slot keys arrive in wire form ("relay3"); the numeric suffix becomes
// the slot tag so queries can group by slot across devices.
func (c *Client) WriteRelayState(deviceID string, values map[string]int) {
	if !c.IsConnected() {
		return
	}

	now := time.Now()
	for key, value := range values {
		slot := slotTag(key)

		point := write.NewPoint(
			"relay_state",
			map[string]string{
				"device_id": deviceID,
				"slot":      slot,
			},
			map[string]interface{}{
				"value": value,
			},
			now,
		)

		c.writeAPI.WritePoint(point)
	}
}

// slotTag extracts the numeric slot from a wire key like "relay3".
// Unparseable keys are tagged verbatim rather than dropped.
func slotTag(key string) string {
	const prefix = "relay"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		if _, err := strconv.Atoi(key[len(prefix):]); err == nil {
			return key[len(prefix):]
		}
	}
	return key
}
