// Package regulator nudges max_target_flow_temp so the supply temperature
// follows an externally regulated setpoint (supply_setpoint_regulated).
//
// The regulator runs on every control-loop tick but acts at most once per
// interval (30 s by default), and only while the heat pump is heating with
// the compressor running.
package regulator
