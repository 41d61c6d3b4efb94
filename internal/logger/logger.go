package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log files rotate once they reach MaxLogSizeMB; MaxLogBackups old files are kept.
const (
	MaxLogSizeMB  = 20
	MaxLogBackups = 5
)

// Logger provides logging functionality
type Logger struct {
	*zap.Logger
	file *lumberjack.Logger
}

// NewLogger creates a logger that writes to the console and to a timestamped,
// size-rotated file under logDir. An empty logDir disables the file output.
func NewLogger(logDir string, debug bool) (*Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	var file *lumberjack.Logger
	if logDir != "" {
		// Create log directory if it doesn't exist
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logPath := filepath.Join(logDir, fmt.Sprintf("qa_%s.log", timestamp))
		file = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    MaxLogSizeMB,
			MaxBackups: MaxLogBackups,
		}

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...)),
		file:   file,
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LogCheck logs the outcome of a single check
func (l *Logger) LogCheck(name, outcome string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("check", name),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration),
	}
	if err != nil {
		l.Info("check finished", append(fields, zap.String("detail", err.Error()))...)
		return
	}
	l.Info("check finished", fields...)
}
