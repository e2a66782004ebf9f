// Package logging builds the process logger: a zap console encoder with short
// keys and local millisecond timestamps, writing to stderr and optionally to a
// size-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// File, when set, receives a copy of every line with lumberjack rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console defaults to os.Stderr.
	Console io.Writer
}

func localMillis(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
}

// EncoderConfig is the console layout shared by every sink.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		MessageKey:     "M",
		CallerKey:      "C",
		NameKey:        "N",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     localMillis,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return lvl, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}

// New builds a logger. Call Sync before exit.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	enc := zapcore.NewConsoleEncoder(EncoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(console), lvl)}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(rotating(opts)), lvl))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func rotating(opts Options) *lumberjack.Logger {
	size, backups, age := opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays
	if size <= 0 {
		size = 10
	}
	if backups <= 0 {
		backups = 10
	}
	if age <= 0 {
		age = 7
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: backups,
		MaxAge:     age,
		LocalTime:  true,
	}
}
