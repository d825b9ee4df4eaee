// Package telemetry turns target spans into renderer events and OpenTelemetry data.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffered byte count that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultInterval is how long output may sit in the buffer.
	DefaultInterval = 50 * time.Millisecond
)

// ErrBatcherClosed is returned when writing to a closed LogBatcher.
var ErrBatcherClosed = errors.New("log batcher is closed")

// LogBatcher coalesces target output into fewer, larger chunks.
//
// A size-triggered flush emits only whole lines when the buffer holds a
// newline, so renderers that prefix every line see unbroken lines. Timed
// flushes and Close emit everything that is buffered.
type LogBatcher struct {
	sizeLimit int
	interval  time.Duration
	emit      func([]byte)

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// NewLogBatcher starts a batcher that hands flushed chunks to emit.
// Non-positive limits fall back to the defaults. Call Close to stop it.
func NewLogBatcher(sizeLimit int, interval time.Duration, emit func([]byte)) *LogBatcher {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	b := &LogBatcher{
		sizeLimit: sizeLimit,
		interval:  interval,
		emit:      emit,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

// Write buffers p, flushing when the size limit is reached.
func (b *LogBatcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBatcherClosed
	}

	n, _ := b.buf.Write(p)
	if b.buf.Len() >= b.sizeLimit {
		b.flushLines()
	}
	return n, nil
}

// Flush emits everything buffered so far.
func (b *LogBatcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.flushAll()
	}
}

// Close performs a final flush and waits for the timer loop to exit.
func (b *LogBatcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.stop)
	b.flushAll()
	b.mu.Unlock()

	<-b.done
	return nil
}

func (b *LogBatcher) loop() {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-b.stop:
			return
		}
	}
}

// flushLines emits the buffer up to its last newline, or all of it when no
// newline is buffered. mu must be held.
func (b *LogBatcher) flushLines() {
	cut := bytes.LastIndexByte(b.buf.Bytes(), '\n')
	if cut < 0 {
		b.flushAll()
		return
	}
	b.send(b.buf.Next(cut + 1))
}

// flushAll must be called with mu held.
func (b *LogBatcher) flushAll() {
	if b.buf.Len() == 0 {
		return
	}
	b.send(b.buf.Next(b.buf.Len()))
}

func (b *LogBatcher) send(chunk []byte) {
	data := bytes.Clone(chunk)
	if b.buf.Len() == 0 {
		b.buf.Reset()
	}
	if b.emit != nil {
		b.emit(data)
	}
}
