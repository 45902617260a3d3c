// Package daemonctl holds the control-plane helpers behind the CLI: turning a
// loaded configuration into a daemon.Context, stopping a running daemon from
// another process, and summarising pidfile state for status output.
package daemonctl
