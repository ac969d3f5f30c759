// Package logging provides the structured logger for VoxHome IoT Core,
// a thin wrapper over log/slog configured from the logging section of
// config.yaml.
package logging
