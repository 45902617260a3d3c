// Package config loads, normalizes, and validates daemonkit configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the DAEMONKIT_PIDFILE environment override. Paths
// leave this package absolute, which the daemon needs because it changes its
// working directory after detaching.
package config
