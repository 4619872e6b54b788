// Package logger provides opinionated zap logging for the opencode client,
// its CLI, and the services built on it.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// NewLogger returns a console logger writing to stdout. Levels are colored
// when stdout is a terminal.
func NewLogger(debug bool) *zap.Logger {
	return New(WithDebug(debug), WithColor(term.IsTerminal(int(os.Stdout.Fd()))))
}

// NewLoggerWithWriters returns a console logger writing to every writer.
func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return New(WithDebug(debug), WithWriters(writers...))
}

// New builds a logger from opts. Without options it logs at Info level in
// console format to stdout.
func New(opts ...Option) *zap.Logger {
	c := &config{
		level:   zap.InfoLevel,
		writers: []io.Writer{os.Stdout},
		caller:  true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.writers) == 0 {
		c.writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(c.writers))
	for _, writer := range c.writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		c.encoder(),
		zapcore.NewMultiWriteSyncer(syncers...),
		c.level,
	)

	if c.caller {
		return zap.New(core, zap.AddCaller())
	}
	return zap.New(core)
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func (c *config) encoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if c.json {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !c.color {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}
