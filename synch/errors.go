package synch

import "github.com/pkg/errors"

var (
	ErrWouldBlock   = errors.New("operation would block")
	ErrTimedOut     = errors.New("operation timed out")
	ErrRestart      = errors.New("restart operation")
	ErrInterrupted  = errors.New("interrupted by signal")
	ErrNoSuchWaiter = errors.New("no such waiter")
)

// invariant reports corrupted scheduler state. It never returns.
func invariant(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
