package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrNoCPU indicates that /proc/stat had no aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrBadDt indicates a non-positive sampling interval.
	ErrBadDt = errors.New("proc: interval must be > 0")

	// ErrExited indicates that the sampled process no longer exists.
	ErrExited = errors.New("proc: process exited")
)
