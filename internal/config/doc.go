// Package config provides configuration structures and utilities for biosnap.
// It defines runtime options for browser sessions, data API requests, output
// formats and the import ledger, plus the per-portal and redaction settings
// loaded from the optional .biosnap YAML file.
package config
