// Package drift runs the background simulation that nudges the measured
// temperature of running air conditioners between commands.
//
// The simulator observes the shared device store on a fixed interval,
// applies a small random delta to each unit reporting status "on", and
// fans the resulting state out to the same broadcast, telemetry and
// history sinks a real command would reach. Clamping and rounding are
// owned by the store, so drift can never push a device outside its
// valid range.
//
// Drift is internal simulation, not an external command: it is never
// published on the MQTT side channel.
package drift
