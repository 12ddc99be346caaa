package interposer

import (
	"log"
	"os"
)

// The interposer stays silent unless JOYSHIM_LOG is set in the
// environment; host applications own stderr.
var (
	logEnabled = os.Getenv("JOYSHIM_LOG") != ""
	logger     = log.New(os.Stderr, "[joyshim] ", log.LstdFlags|log.Lmicroseconds)
)

func debugf(format string, args ...any) {
	if logEnabled {
		logger.Printf(format, args...)
	}
}

// alertf reports broken internal state (a missing syscall entry) and is
// never gated: continuing silently would corrupt the host's I/O.
func alertf(format string, args ...any) {
	logger.Printf("ALERT: "+format, args...)
}
