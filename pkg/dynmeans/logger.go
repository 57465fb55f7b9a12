package dynmeans

import (
	"log"
	"os"

	"github.com/klauspost/cpuid/v2"
)

// LogLevel gates verbosity: callers opt into a level, and Log calls
// below that level are dropped by the logger itself rather than by call
// sites checking a flag every time.
type LogLevel int8

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "NONE"
	}
}

// Logger is the minimal leveled-logging contract the core consumes. Hosts
// that want structured logs implement this directly; BasicLogger is the
// default used when the caller only asks for verbose=true.
type Logger interface {
	Level() LogLevel
	Log(level LogLevel, msg string, keyvals ...any)
}

// BasicLogger writes to a stdlib *log.Logger, gating on Lvl.
type BasicLogger struct {
	Lvl    LogLevel
	Logger *log.Logger
}

// NewBasicLogger returns a BasicLogger writing to stderr at LogLevelDebug.
func NewBasicLogger() *BasicLogger {
	return &BasicLogger{
		Lvl:    LogLevelDebug,
		Logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (b *BasicLogger) Level() LogLevel { return b.Lvl }

func (b *BasicLogger) Log(level LogLevel, msg string, keyvals ...any) {
	if level > b.Lvl || level == LogLevelNone {
		return
	}
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, level.String(), msg)
	args = append(args, keyvals...)
	b.Logger.Println(args...)
}

type nopLogger struct{}

func (nopLogger) Level() LogLevel                      { return LogLevelNone }
func (nopLogger) Log(LogLevel, string, ...any) {}

// cpuBanner logs a one-line capability summary each time a clusterer is
// constructed with a logger at LogLevelDebug, the way a systems client
// logs the environment it found itself running in before doing real work.
func cpuBanner(logger Logger) {
	if logger.Level() < LogLevelDebug {
		return
	}
	logger.Log(LogLevelDebug, "cpu capabilities",
		"brand", cpuid.CPU.BrandName,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"fma3", cpuid.CPU.Supports(cpuid.FMA3),
		"logical_cores", cpuid.CPU.LogicalCores,
	)
}

// useWideAccumulate reports whether the AVX2-friendly loop shapes should
// be used in sqDist's two-lane accumulation and the sparse approximator's
// kernel-matrix fill. On platforms without AVX2 the naive path is used
// instead; the two paths are numerically equivalent, this only affects
// which loop shape the Go compiler gets to vectorize.
func useWideAccumulate() bool {
	return cpuid.CPU.Supports(cpuid.AVX2)
}
