// Package daemon turns the calling program into a well-behaved Unix daemon.
//
// Context ties the pieces together in a fixed order: refuse to start when a
// live instance holds the pidfile, detach from the terminal, disable core
// dumps, take the pidfile lock, and finally rebind the standard streams. The
// lock check runs before detachment so a refused start still reports to the
// terminal the user is looking at.
//
// Stopping usually happens from another process. That process builds a
// Context with the same options, calls Attach to adopt the PID recorded in
// the pidfile, and then Stop, which signals the daemon once and removes the
// pidfile on its behalf.
//
// Conditions that would leave a second instance running, or let a process
// stop a daemon it does not own, abort the whole process with status 1 after
// writing a message naming the pidfile.
package daemon
