// Package logging defines the Logger capability interface the rest of
// the core depends on, plus a zap-backed implementation that writes
// structured, leveled lines to the daemon's rotated log file.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the capability every component logs through. It is
// satisfied by *ZapLogger in production and by a recording fake in tests.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	Sync() error
}

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger that writes JSON-free, human-scannable lines (one
// per call) to w, at the given minimum level ("debug", "info", "warn").
func New(w zapcore.WriteSyncer, level string) *ZapLogger {
	lvl := zapcore.InfoLevel
	_ = lvl.Set(level)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), w, lvl)
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

func (l *ZapLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *ZapLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *ZapLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *ZapLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *ZapLogger) Sync() error                          { return l.sugar.Sync() }

// Nop is a Logger that discards everything; used where tests don't
// care about log output but a component requires one.
type Nop struct{}

func (Nop) Debugw(string, ...interface{}) {}
func (Nop) Infow(string, ...interface{})  {}
func (Nop) Warnw(string, ...interface{})  {}
func (Nop) Errorw(string, ...interface{}) {}
func (Nop) Sync() error                   { return nil }
