package logconsumer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// LogSource opens a container's multiplexed log stream.
type LogSource interface {
	ContainerLogs(ctx context.Context, containerID string, follow bool) (io.ReadCloser, error)
}

// Follow streams the logs of a running container to consumers, one
// model.LogEntry per line, until the container exits or ctx is cancelled.
// Consumers are called sequentially from the calling goroutine.
//
// Cancellation is not an error.
func Follow(ctx context.Context, src LogSource, containerID string, consumers ...model.LogConsumer) error {
	rc, err := src.ContainerLogs(ctx, containerID, true)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	stdout := newLineWriter(model.StreamStdout, consumers)
	stderr := newLineWriter(model.StreamStderr, consumers)

	_, err = stdcopy.StdCopy(stdout, stderr, rc)

	// A container that exits mid-line still gets its last line delivered.
	stdout.flush()
	stderr.flush()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read logs of container %s: %w", model.ShortID(containerID), err)
	}
	return nil
}

// lineWriter splits a byte stream into lines for the consumers.
type lineWriter struct {
	stream    model.Stream
	consumers []model.LogConsumer
	buf       bytes.Buffer
}

func newLineWriter(stream model.Stream, consumers []model.LogConsumer) *lineWriter {
	return &lineWriter{stream: stream, consumers: consumers}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		w.emit(line[:i])
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	entry := model.LogEntry{Stream: w.stream, Line: string(line)}
	for _, c := range w.consumers {
		c.Accept(entry)
	}
}
