package core

import (
	"fmt"
	"io"
	"sync"
)

// Stream tags an output chunk with its origin.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// ChunkSink receives live output chunks in read order. The chunk slice is
// only valid for the duration of the call; retain a copy if needed. Sinks
// are called from the collector's reader goroutines, one per stream.
type ChunkSink func(stream Stream, chunk []byte)

// Collector drains a child's stdout and stderr concurrently so a full pipe
// on one stream can never deadlock the other. Each stream is captured into
// its own bounded buffer and simultaneously forwarded, uncapped, to the
// live sink. Once a buffer hits its cap, further bytes are dropped and a
// single truncation marker is appended; output is never silently lost and
// memory never grows unbounded. Partial final lines are preserved as read.
type Collector struct {
	limit int
	sink  ChunkSink

	wg     sync.WaitGroup
	stdout boundedBuffer
	stderr boundedBuffer
}

// NewCollector creates a collector with a per-stream byte cap. A nil sink
// disables live forwarding; limit <= 0 uses DefaultMaxOutputBytes.
func NewCollector(limit int, sink ChunkSink) *Collector {
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}
	c := &Collector{limit: limit, sink: sink}
	c.stdout.limit = limit
	c.stderr.limit = limit
	return c
}

// Drain starts one reader goroutine per stream. Either reader may be nil.
func (c *Collector) Drain(stdout, stderr io.Reader) {
	if stdout != nil {
		c.wg.Add(1)
		go c.read(StreamStdout, stdout, &c.stdout)
	}
	if stderr != nil {
		c.wg.Add(1)
		go c.read(StreamStderr, stderr, &c.stderr)
	}
}

// Wait blocks until both readers hit EOF or a read error. It must return
// before the child is reaped so no trailing output is lost.
func (c *Collector) Wait() {
	c.wg.Wait()
}

// Stdout returns the captured stdout and whether it was truncated.
func (c *Collector) Stdout() (string, bool) {
	return c.stdout.contents()
}

// Stderr returns the captured stderr and whether it was truncated.
func (c *Collector) Stderr() (string, bool) {
	return c.stderr.contents()
}

func (c *Collector) read(stream Stream, r io.Reader, buf *boundedBuffer) {
	defer c.wg.Done()

	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if c.sink != nil {
				c.sink(stream, chunk[:n])
			}
			buf.write(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}

// boundedBuffer captures up to limit bytes and notes the overflow.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	dropped   int
	truncated bool
}

func (b *boundedBuffer) write(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - len(b.buf)
	if room <= 0 {
		b.truncated = true
		b.dropped += len(p)
		return
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		b.dropped += len(p) - room
		return
	}
	b.buf = append(b.buf, p...)
}

func (b *boundedBuffer) contents() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.truncated {
		return string(b.buf), false
	}
	marker := fmt.Sprintf("\n... [output truncated, %d bytes dropped]\n", b.dropped)
	return string(b.buf) + marker, true
}
