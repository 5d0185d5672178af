// Package logging builds the zap logger used across jsonform.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mcncl/jsonform/internal/config"
)

// New builds a logger from cfg. The returned close function flushes the
// logger and releases a rotated log file, if any.
func New(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var (
		out      io.Writer
		tty      bool
		closeOut = func() error { return nil }
	)
	switch cfg.Output {
	case "stderr", "":
		out = os.Stderr
		tty = isatty.IsTerminal(os.Stderr.Fd())
	case "stdout":
		out = os.Stdout
		tty = isatty.IsTerminal(os.Stdout.Fd())
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}
		out = lj
		closeOut = lj.Close
	}

	format := cfg.Format
	if format == "" {
		format = "json"
		if tty {
			format = "console"
		}
	}

	log, err := build(out, format, level)
	if err != nil {
		return nil, nil, err
	}

	closer := func() error {
		_ = log.Sync()
		return closeOut()
	}
	return log, closer, nil
}

func build(out io.Writer, format string, level zapcore.Level) (*zap.Logger, error) {
	var enc zapcore.Encoder
	switch format {
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.TimeKey = ""
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core), nil
}
