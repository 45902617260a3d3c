// Package journal records daemon lifecycle events in SQLite.
//
// The daemon and the control commands append to the same database: the
// daemon writes started/exited, a stopping process writes stop_requested and
// stopped, and the start path records stale pidfiles it cleared. The journal
// is observational only; callers log failures and carry on.
package journal
