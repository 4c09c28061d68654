// Package logging builds the zap logger used by fbfilter: console output,
// optionally teed into a size-rotated log file.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Development selects a colored console encoder at debug level instead
	// of JSON at info level.
	Development bool

	// File, if non-empty, additionally receives all entries as JSON. It is
	// rotated once it exceeds MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

func encoderConfig(dev bool) zapcore.EncoderConfig {
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// New returns a logger for opts. Call Sync before exiting.
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	var consoleEnc zapcore.Encoder
	if opts.Development {
		level = zapcore.DebugLevel
		consoleEnc = zapcore.NewConsoleEncoder(encoderConfig(true))
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encoderConfig(false))
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(false)),
			fileWriter(opts),
			level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func fileWriter(opts Options) zapcore.WriteSyncer {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	})
}
