// Package logger holds the process-wide zap logger. Nothing is logged until
// Init or InitWriter runs; the helpers and Named are safe to call before.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logName = "qcolor.log"

var (
	mu      sync.Mutex
	L       *zap.Logger
	S       *zap.SugaredLogger
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logFile *os.File
)

// Init opens the log file (see Path) and installs the global logger.
func Init(debug bool) error {
	logPath, err := Path()
	if err != nil {
		return err
	}
	return InitFile(logPath, debug)
}

// InitFile installs the global logger writing to logPath. The file is
// truncated on each run.
func InitFile(logPath string, debug bool) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	mu.Unlock()

	install(zapcore.AddSync(f), debug)
	S.Infow("logger initialized", "path", logPath, "debug", debug)
	return nil
}

// InitWriter installs the global logger writing to w.
func InitWriter(w io.Writer, debug bool) {
	install(zapcore.AddSync(w), debug)
}

func install(ws zapcore.WriteSyncer, debug bool) {
	SetDebug(debug)
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})

	mu.Lock()
	defer mu.Unlock()
	L = zap.New(zapcore.NewCore(enc, ws, level), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	S = L.Sugar()
}

// SetDebug switches debug output on or off for every logger handed out so far.
func SetDebug(on bool) {
	if on {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

// Named returns a child of the global logger, or a no-op logger before Init.
func Named(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if L == nil {
		return zap.NewNop().Sugar()
	}
	return L.Named(name).Sugar()
}

// Close flushes the logger and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if L != nil {
		_ = L.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Path returns where Init writes: $QCOLOR_LOG_FILE, else qcolor.log in the
// config directory.
func Path() (string, error) {
	if v := os.Getenv("QCOLOR_LOG_FILE"); v != "" {
		return v, nil
	}
	if v := os.Getenv("QCOLOR_CONFIG_HOME"); v != "" {
		return filepath.Join(v, logName), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qcolor", logName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qcolor", logName), nil
}

func sugar() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return S
}

func Debug(msg string, keysAndValues ...any) {
	if s := sugar(); s != nil {
		s.Debugw(msg, keysAndValues...)
	}
}

func Info(msg string, keysAndValues ...any) {
	if s := sugar(); s != nil {
		s.Infow(msg, keysAndValues...)
	}
}

func Warn(msg string, keysAndValues ...any) {
	if s := sugar(); s != nil {
		s.Warnw(msg, keysAndValues...)
	}
}

func Error(msg string, keysAndValues ...any) {
	if s := sugar(); s != nil {
		s.Errorw(msg, keysAndValues...)
	}
}
