// Package config loads and validates the VoxHome IoT Core configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones: hardcoded defaults, a YAML file, and VOXHOME_* environment
// variables. Load returns a fully validated *Config; components receive
// only the sub-section they need (config.MQTTConfig, config.ServerConfig,
// and so on) rather than the whole structure.
package config
