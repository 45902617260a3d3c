// Package pidlock implements a cooperative single-instance lock backed by a
// pidfile.
//
// The lock is held while the pidfile exists; its content is the decimal PID
// of the owner followed by a newline, the format written by most Unix
// daemons. The file is only ever created with O_EXCL, so the first process to
// create it wins. Reclaiming a stale file (its PID no longer exists) and
// releasing a held file both run under an flock(2) guard on "<path>.lock",
// which keeps a releasing process from removing a file another process has
// just recreated.
//
// Liveness is probed with kill(pid, 0). That probe cannot tell a dead owner
// whose PID was recycled by an unrelated process from a live owner: such a
// file looks held until the unrelated process exits. The pidfile format
// carries nothing else to disambiguate with.
package pidlock
