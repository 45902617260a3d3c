// Package procenv is the process environment capability used by the
// daemonization core.
//
// Every call that mutates process-wide state (forking, session membership,
// standard descriptors, resource limits, signals, exit) goes through System so
// the packages that orchestrate those calls can be exercised against fakes.
// Consumers declare the narrow interface they need (detach.Forker,
// coredump.Limiter, streams.Duplicator, pidlock.Prober) and System satisfies
// all of them.
//
// Fork is a staged re-exec rather than fork(2): a Go process is multi-threaded
// and a raw fork leaves the child runtime unusable. The stage travels in
// StageEnv; images whose stage shows a fork already happened in an ancestor
// observe that fork as having returned 0.
package procenv
