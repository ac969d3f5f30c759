// Package mqtt implements the optional outbound side channel for
// VoxHome IoT Core.
//
// When enabled, every successfully executed device command is mirrored to
// an MQTT topic keyed by device and location (iot/{device}/{location}),
// and the core's own liveness is tracked on iot/system/status via a
// retained status message plus a Last Will for crash detection.
//
// The side channel is fire-and-forget by contract: publish failures are
// surfaced as errors for the caller to log, but the command that triggered
// the publish has already succeeded and stays successful. Nothing in the
// core subscribes to MQTT; state flows one way, out.
package mqtt
