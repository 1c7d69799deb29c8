package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEntity = "heatpump"
	MeasurementFault  = "heatpump_fault"
)

// WriteEntityValue records one numeric entity reading.
//
// Example:
//
//	client.WriteEntityValue("tv", "sensor", 34.5, now)
func (c *Client) WriteEntityValue(entityID, kind string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(EntityPoint(entityID, kind, value, ts))
}

// WriteFault records the confirmation of a plant fault.
func (c *Client) WriteFault(fault string, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(FaultPoint(fault, ts))
}

// EntityPoint builds heatpump,entity=<id>,kind=<kind> value=<v>.
func EntityPoint(entityID, kind string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementEntity,
		map[string]string{"entity": entityID, "kind": kind},
		map[string]any{"value": value},
		ts,
	)
}

// FaultPoint builds heatpump_fault,fault=<name> active=1i.
func FaultPoint(fault string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFault,
		map[string]string{"fault": fault},
		map[string]any{"active": int64(1)},
		ts,
	)
}
