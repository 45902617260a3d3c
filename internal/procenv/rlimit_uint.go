//go:build unix && !freebsd && !dragonfly

package procenv

import "golang.org/x/sys/unix"

func fromRlimit(rlim unix.Rlimit) Limit {
	return Limit{Cur: rlim.Cur, Max: rlim.Max}
}

func toRlimit(limit Limit) unix.Rlimit {
	return unix.Rlimit{Cur: limit.Cur, Max: limit.Max}
}
