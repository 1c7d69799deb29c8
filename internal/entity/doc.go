// Package entity models one addressable point on the heat pump's CAN bus.
//
// An Entity owns everything needed to poll and decode a single value: the
// request command, the fingerprint of the expected response, the byte window
// that carries the value and the per-entity poll timing.
//
// # Kinds
//
// The kind of an entity is a closed set expressed as the Variant interface:
//
//	Sensor        numeric measurement (decode to float, optional valid range)
//	TextSensor    enumerated key rendered as text (options table)
//	BinarySensor  on/off
//	Number        writable numeric setting
//	Select        writable enumerated setting (options table)
//
// Consumers switch on the concrete Variant type rather than probing for
// capabilities at runtime.
//
// # Matching
//
// Responses are matched with a Fingerprint: seven 16-bit tokens, one per
// payload byte, where Wildcard matches anything. The fingerprint is derived
// from the command once, at construction, by a FingerprintFunc. The derivation
// is pluggable because the controller's echo rules vary between firmware
// revisions; DefaultFingerprint covers the HPSU compact family.
//
// # Thread Safety
//
// Entities are owned by the engine loop and are not safe for concurrent use.
package entity
