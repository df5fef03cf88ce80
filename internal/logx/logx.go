// Package logx is a small leveled logger for dot11mac's internal
// diagnostics: a default instance, a settable level, no external logging
// dependency.
package logx

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Level identifies a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level that will be emitted. The upper-layer
// debug-toggle command drives this: enabling debug selects LevelDebug,
// disabling it restores LevelInfo.
func SetLevel(l Level) {
	level.Store(int32(l))
}

func enabled(l Level) bool {
	return int32(l) >= level.Load()
}

// Debugf logs at debug level.
func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		log.Println("[DEBUG] " + fmt.Sprintf(format, args...))
	}
}

// Infof logs at info level.
func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		log.Println("[INFO] " + fmt.Sprintf(format, args...))
	}
}

// Warnf logs at warn level.
func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		log.Println("[WARN] " + fmt.Sprintf(format, args...))
	}
}
