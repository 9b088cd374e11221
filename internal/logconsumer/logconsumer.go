// Package logconsumer attaches the standard log observer to container
// requests and feeds container output to attached consumers.
package logconsumer

import (
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/tcscope/internal/logger"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// Severity of forwarded container output. Not configurable.
const (
	StdoutLevel = zerolog.InfoLevel
	StderrLevel = zerolog.ErrorLevel
)

// LogConsumable is any container request that can take a log consumer.
// WithLogConsumer must return a new value and leave the receiver unchanged.
type LogConsumable[R any] interface {
	WithLogConsumer(consumer model.LogConsumer) R
}

// Observer forwards container output to a zerolog logger: stdout lines at
// StdoutLevel, stderr lines at StderrLevel.
type Observer struct {
	// log is nil for the default observer, which resolves the process logger
	// at write time so that a later logger.Init still takes effect.
	log *zerolog.Logger
}

// NewObserver returns an Observer writing to log.
func NewObserver(log zerolog.Logger) *Observer {
	return &Observer{log: &log}
}

// Default returns the Observer bound to the process logger.
func Default() *Observer {
	return &Observer{}
}

// Accept implements model.LogConsumer.
func (o *Observer) Accept(entry model.LogEntry) {
	log := o.log
	if log == nil {
		log = &logger.Log
	}

	level := StdoutLevel
	if entry.Stream == model.StreamStderr {
		level = StderrLevel
	}
	log.WithLevel(level).Str("stream", entry.Stream.String()).Msg(entry.Line)
}

// WithDefaultLogConsumer returns req with the default Observer attached.
// Nothing is read until the container is started and its logs followed.
func WithDefaultLogConsumer[R LogConsumable[R]](req R) R {
	return req.WithLogConsumer(Default())
}
