package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It is a no-op logger until Initialize runs,
// so packages can log from tests without setup.
var Log = zap.NewNop()

// SugaredLog is a sugared logger for printf-style logging
var SugaredLog = Log.Sugar()

// Initialize sets up the structured logger with file rotation
// logLevel: "debug", "info", "warn", "error" (default: "info")
// logFile: path to log file (default: "server.log")
func Initialize(logLevel string, logFile string) error {
	if logFile == "" {
		logFile = "server.log"
	}

	if logLevel == "" {
		logLevel = "info"
	}

	level := parseLogLevel(logLevel)

	// File output with rotation
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})

	// Console encoder (human-readable for development)
	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	// JSON encoder (machine-readable for production)
	jsonEncoderConfig := zap.NewProductionEncoderConfig()
	jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(jsonEncoderConfig)

	// Both outputs share the level
	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(jsonEncoder, fileWriter, level),
	)

	// Stack traces from error level up
	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	SugaredLog = Log.Sugar()

	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)

	return nil
}

// InitializeConsole sets up a console-only logger, used by the CLI tools
// where a rotating log file would be noise.
func InitializeConsole(logLevel string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(logLevel))
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return
	}
	Log = l
	SugaredLog = Log.Sugar()
}

// Close flushes the logger before shutdown
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// parseLogLevel converts a level name, falling back to info
func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WarnWithFields logs a warning message, optionally with an error
func WarnWithFields(msg string, err error) {
	if err != nil {
		Log.Warn(msg, zap.Error(err))
	} else {
		Log.Warn(msg)
	}
}

// ErrorWithFields logs an error message with an error
func ErrorWithFields(msg string, err error) {
	if err != nil {
		Log.Error(msg, zap.Error(err))
	} else {
		Log.Error(msg)
	}
}

// FatalWithFields logs a fatal error and exits
func FatalWithFields(msg string, err error) {
	if err != nil {
		Log.Fatal(msg, zap.Error(err))
	} else {
		Log.Fatal(msg)
	}
}

// Field helpers for common log keys

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithPostID(postID string) zap.Field {
	return zap.String("post_id", postID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

// WithDuration tags a log line with an elapsed time
func WithDuration(duration interface{}) zap.Field {
	return zap.Any("duration", duration)
}

// WithCoordinates tags a log line with a lat/lng pair
func WithCoordinates(lat, lng float64) zap.Field {
	return zap.Float64s("coords", []float64{lat, lng})
}

// WithSource tags a log line with the places provider name
func WithSource(source string) zap.Field {
	return zap.String("source", source)
}
