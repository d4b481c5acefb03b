package httpapi

import (
	"syscall"
	"time"
)

// processCPUTime returns the process-wide user+system CPU time. Per-request
// CPU cost is reported as the delta across the handler, which is approximate
// under concurrency but cheap and monotonic.
func processCPUTime() time.Duration {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	user := time.Duration(usage.Utime.Sec)*time.Second + time.Duration(usage.Utime.Usec)*time.Microsecond
	system := time.Duration(usage.Stime.Sec)*time.Second + time.Duration(usage.Stime.Usec)*time.Microsecond
	return user + system
}
