package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// logLine is one formatted record; severe lines also go to the error sinks.
type logLine struct {
	data   []byte
	severe bool
}

// asyncWriter fans formatted records out to the main sinks and, for severe
// records, to the error sinks. A single goroutine owns every sink.
type asyncWriter struct {
	queue    chan logLine
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	main     []*bufio.Writer
	errs     []*bufio.Writer
	writeErr error
}

func buffered(writers []io.Writer, size int) []*bufio.Writer {
	out := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			out = append(out, bufio.NewWriterSize(w, size))
		}
	}
	return out
}

func newAsyncWriter(main, errs []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan logLine, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		main:     buffered(main, bufSize),
		errs:     buffered(errs, bufSize),
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case l, ok := <-w.queue:
			if !ok {
				w.flushAll()
				return
			}
			if err := w.writeLine(l); err != nil {
				w.setErr(err)
			}
		case ack := <-w.flushReq:
			ack <- w.flushAll()
		}
	}
}

// Write enqueues a copy of p. It blocks when the queue is full rather than
// dropping records.
func (w *asyncWriter) Write(p []byte, severe bool) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- logLine{data: append([]byte(nil), p...), severe: severe}
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.getErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first encountered write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) writeLine(l logLine) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := writeTo(w.main, l.data); err != nil {
		return err
	}
	if l.severe {
		return writeTo(w.errs, l.data)
	}
	return nil
}

func writeTo(sinks []*bufio.Writer, p []byte) error {
	for _, sink := range sinks {
		if _, err := sink.Write(p); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range append(append([]*bufio.Writer(nil), w.main...), w.errs...) {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
