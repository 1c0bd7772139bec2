package vips

// #include "bridge.h"
import "C"
import (
	"log"
	"sync"
	"unsafe"
)

// LogLevel is a GLib log level. Lower values are more severe.
type LogLevel int

// LogLevel values forwarded from the VIPS log domain
const (
	LogLevelError    LogLevel = C.G_LOG_LEVEL_ERROR
	LogLevelCritical LogLevel = C.G_LOG_LEVEL_CRITICAL
	LogLevelWarning  LogLevel = C.G_LOG_LEVEL_WARNING
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelCritical:
		return "critical"
	case LogLevelWarning:
		return "warning"
	}
	return "unknown"
}

// LoggingHandlerFunction receives engine log messages
type LoggingHandlerFunction func(domain string, level LogLevel, message string)

var (
	loggingOnce      sync.Once
	loggingLock      sync.RWMutex
	loggingHandler   LoggingHandlerFunction = defaultLoggingHandler
	loggingVerbosity                        = LogLevelWarning
)

// SetLogging routes engine messages at or above verbosity to handler.
// The registration is process-wide and replaces any earlier handler; call it
// once at startup, before concurrent use. A nil handler restores the default,
// which writes to the standard logger.
func SetLogging(handler LoggingHandlerFunction, verbosity LogLevel) {
	if handler == nil {
		handler = defaultLoggingHandler
	}

	loggingLock.Lock()
	loggingHandler = handler
	loggingVerbosity = verbosity
	loggingLock.Unlock()

	installLoggingHandler()
}

// installLoggingHandler registers the C side of the shim with GLib once
func installLoggingHandler() {
	loggingOnce.Do(func() {
		C.setup_logging_handler()
	})
}

//export goLoggingHandler
func goLoggingHandler(domain *C.char, level C.int, message *C.char) {
	l := LogLevel(level)

	loggingLock.RLock()
	handler, verbosity := loggingHandler, loggingVerbosity
	loggingLock.RUnlock()

	if l > verbosity {
		return
	}
	handler(C.GoString(domain), l, C.GoString(message))
}

func defaultLoggingHandler(domain string, level LogLevel, message string) {
	log.Printf("[%s.%s] %s", domain, level, message)
}

// emitLog sends a message through the engine's own log domain
func emitLog(level LogLevel, message string) {
	cMessage := C.CString(message)
	defer C.free(unsafe.Pointer(cMessage))
	C.emit_log(C.int(level), cMessage)
}
