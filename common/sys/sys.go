package sys

import (
	"runtime/debug"

	"github.com/petermattis/goid"
	"prusammu/common/logger"
)

func GetGID() uint64 {
	return uint64(goid.Get())
}

// CatchPanic logs a panic with its stack and swallows it. Used by long-lived
// goroutines (serial reader/writer, prompt timer) so a bug in one of them
// cannot take down the whole daemon.
func CatchPanic() {
	if err := recover(); err != nil {
		logger.Errorf("goroutine %d panic: %v\n%s", GetGID(), err, string(debug.Stack()))
	}
}
