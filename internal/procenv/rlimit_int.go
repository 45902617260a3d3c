//go:build freebsd || dragonfly

package procenv

import (
	"math"

	"golang.org/x/sys/unix"
)

// These kernels use signed limits with RLIM_INFINITY at math.MaxInt64.

func fromRlimit(rlim unix.Rlimit) Limit {
	return Limit{Cur: fromSigned(rlim.Cur), Max: fromSigned(rlim.Max)}
}

func toRlimit(limit Limit) unix.Rlimit {
	return unix.Rlimit{Cur: toSigned(limit.Cur), Max: toSigned(limit.Max)}
}

func fromSigned(v int64) uint64 {
	if v < 0 || v == unix.RLIM_INFINITY {
		return math.MaxUint64
	}
	return uint64(v)
}

func toSigned(v uint64) int64 {
	if v > math.MaxInt64 {
		return unix.RLIM_INFINITY
	}
	return int64(v)
}
