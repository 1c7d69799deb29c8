// Package influxdb writes heat pump telemetry to InfluxDB v2.
//
// Every numeric or boolean entity update becomes one point in the heatpump
// measurement, tagged with the entity ID and kind. Confirmed plant faults are
// written to heatpump_fault. Writes are batched and never block the engine.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry history is optional
//	}
//	client.SetOnError(func(err error) { logger.Warn("influx write failed", "error", err) })
//	client.WriteEntityValue("thermal_power", "sensor", 5.8, time.Now())
package influxdb
