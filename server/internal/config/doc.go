// Package config loads the server configuration from a YAML file.
//
// Sections:
//   - server: http_port (8080), auth, cors, broadcast_interval (5s), log_level
//   - tolerance: warning_multiplier (1.5, must be >= 1), default_limit
//   - project: building, engineer, date, code and description shown in exports
//   - alerts: rules and webhook targets
//   - events: optional Kafka publication of QC events
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads the file on change and hands the new Config to a callback.
package config
