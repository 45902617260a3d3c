// Package main hosts the daemonkit CLI entrypoint and command graph.
//
// The start command is also the daemon: it detaches by re-executing itself
// and ends up running the service loop in the final image. Every other
// command acts on that daemon through its pidfile.
//
// Anything that runs before daemon.Context.Start executes once per detach
// stage, so command setup must stay deterministic and print only in the
// first stage.
package main
