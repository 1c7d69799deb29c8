// Package mode keeps the operating_mode selection consistent across
// automatic defrost cycles.
//
// With optimized defrosting enabled the Coordinator switches a heating mode
// to summer while the heat pump defrosts and restores it afterwards. The mode
// to restore is captured when a defrost begins from a heating-classified mode
// and is consumed exactly once when the defrost ends. A manual switch to a
// non-heating mode outside a defrost clears it.
//
// The Coordinator also owns the antifreeze interlock: enabling optimized
// defrosting switches temperature_antifreeze off, and re-enabling antifreeze
// on the controller clears the optimized-defrosting flag.
//
// Both the flag and the restore memory are persisted through flags.Store.
package mode
