// Package vips is a thin cgo façade over libvips. It exposes the handful of
// engine operations used to produce thumbnails: load, thumbnail, colourspace
// conversion, gaussian blur, JPEG and WebP export, and metadata scrubbing.
//
// Startup must be called once, before any concurrent use of the package.
package vips

// #cgo pkg-config: vips
// #include "bridge.h"
import "C"
import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

// Config holds the engine settings applied by Startup
type Config struct {
	// ConcurrencyLevel is the number of engine threads per operation. Zero means one.
	ConcurrencyLevel int
	// MaxCacheFiles, MaxCacheMem and MaxCacheSize size the engine operation cache.
	// Zero disables the respective limit, which with all three zero disables the cache.
	MaxCacheFiles int
	MaxCacheMem   int
	MaxCacheSize  int
	ReportLeaks   bool
	CacheTrace    bool
}

// MemoryStats is a snapshot of the engine's tracked memory
type MemoryStats struct {
	Mem     int64
	MemHigh int64
	Files   int64
	Allocs  int64
}

var (
	// Version is the libvips version string, set by Startup
	Version string
	// MajorVersion, MinorVersion and MicroVersion are set by Startup
	MajorVersion int
	MinorVersion int
	MicroVersion int
)

var (
	// ErrImageClosed is returned by operations on a nil or closed Image
	ErrImageClosed = errors.New("vips: image is closed")
	// ErrEmptyBuffer is returned when an operation is handed no input bytes
	ErrEmptyBuffer = errors.New("vips: empty buffer")
	// ErrUnsupportedFormat is returned when the engine has no loader or saver for a format
	ErrUnsupportedFormat = errors.New("vips: unsupported format")
)

// operations the façade calls unconditionally; savers are checked on use
var requiredOperations = []string{
	"thumbnail_buffer",
	"colourspace",
	"gaussblur",
	"copy",
	"autorot",
}

var (
	startupOnce sync.Once
	startupErr  error
	running     bool
)

// Startup initializes libvips. Only the first call has any effect; later
// calls return the result of the first. A nil config keeps one thread per
// operation and disables the engine cache.
func Startup(config *Config) error {
	startupOnce.Do(func() {
		startupErr = startup(config)
	})
	return startupErr
}

func startup(config *Config) error {
	// vips_init must run on a single, stable thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// libvips may keep argv0 for the life of the process
	if C.vips_init(C.CString("vipsbridge")) != 0 {
		return fmt.Errorf("unable to initialize vips: %w", handleVipsError("vips_init"))
	}

	MajorVersion = int(C.vips_version(0))
	MinorVersion = int(C.vips_version(1))
	MicroVersion = int(C.vips_version(2))
	Version = C.GoString(C.vips_version_string())
	if MajorVersion < 8 || (MajorVersion == 8 && MinorVersion < 10) {
		return fmt.Errorf("vips %s is too old, 8.10 or later is required", Version)
	}

	if config == nil {
		config = &Config{}
	}
	concurrency := config.ConcurrencyLevel
	if concurrency <= 0 {
		concurrency = 1
	}
	C.vips_concurrency_set(C.int(concurrency))
	C.vips_cache_set_max(C.int(config.MaxCacheSize))
	C.vips_cache_set_max_mem(C.size_t(config.MaxCacheMem))
	C.vips_cache_set_max_files(C.int(config.MaxCacheFiles))
	C.vips_leak_set(toGboolean(config.ReportLeaks))
	C.vips_cache_set_trace(toGboolean(config.CacheTrace))

	installLoggingHandler()

	var missing []string
	for _, name := range requiredOperations {
		if !HasOperation(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("vips %s lacks operations: %s", Version, strings.Join(missing, ", "))
	}

	running = true
	return nil
}

// Shutdown tears libvips down. The engine cannot be restarted afterwards.
func Shutdown() {
	if running {
		running = false
		C.vips_shutdown()
	}
}

// HasOperation reports whether the engine has an operation registered under name
func HasOperation(name string) bool {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.has_operation(cName) != 0
}

// ReadVipsMemStats fills stats with the engine's current memory counters
func ReadVipsMemStats(stats *MemoryStats) {
	stats.Mem = int64(C.vips_tracked_get_mem())
	stats.MemHigh = int64(C.vips_tracked_get_mem_highwater())
	stats.Allocs = int64(C.vips_tracked_get_allocs())
	stats.Files = int64(C.vips_tracked_get_files())
}

// handleVipsError drains the engine error buffer into an error
func handleVipsError(op string) error {
	defer C.vips_error_clear()

	s := strings.TrimSpace(C.GoString(C.vips_error_buffer()))
	if s == "" {
		return fmt.Errorf("vips: %s failed", op)
	}
	return fmt.Errorf("vips: %s: %s", op, s)
}

func toGboolean(b bool) C.gboolean {
	if b {
		return C.gboolean(1)
	}
	return C.gboolean(0)
}
