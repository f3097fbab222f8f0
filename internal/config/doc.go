// Package config loads server, storage and feed settings from a YAML/JSON
// file overlaid with INCIDENTS_* environment variables, validates them, and
// can watch the file for hot reload.
//
// Example:
//
//	cfg, err := config.Load("incidents.yaml")
//	if err != nil { /* handle */ }
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	go config.Watch(ctx, "incidents.yaml", logger, func(c config.Config) {
//	    logger.SetLevel(mustLevel(c.Log.Level))
//	})
package config
