// Package daemonrun is the service loop that runs once a daemon has started.
//
// Run tags the process with a run ID, journals its start and exit, logs a
// heartbeat, and returns when SIGTERM or SIGINT arrives or when the pidfile
// that names this process disappears or is taken over. The daemon never
// removes its own pidfile; the process that stops it does.
package daemonrun
