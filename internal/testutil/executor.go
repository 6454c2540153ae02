package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/runguard/runguard/internal/core"
)

// ScriptedDecider is a core.Decider that replays a scripted sequence of
// answers and records every profile it was asked about. Useful for driving
// the gate through confirm/decline paths without a terminal.
type ScriptedDecider struct {
	mu sync.Mutex

	// Asked contains every profile presented for confirmation, in order.
	Asked []*core.CommandProfile

	index   int
	answers []bool

	// Err, when set, is returned instead of an answer.
	Err error
}

// NewScriptedDecider creates a decider that answers each prompt with the
// next value in answers.
func NewScriptedDecider(answers ...bool) *ScriptedDecider {
	return &ScriptedDecider{answers: answers}
}

// Decide implements core.Decider.
func (d *ScriptedDecider) Decide(ctx context.Context, profile *core.CommandProfile) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Asked = append(d.Asked, profile)
	if d.Err != nil {
		return false, d.Err
	}
	if d.index >= len(d.answers) {
		return false, fmt.Errorf("scripted decider exhausted after %d answers", len(d.answers))
	}
	answer := d.answers[d.index]
	d.index++
	return answer, nil
}

// AskCount returns how many confirmations were requested.
func (d *ScriptedDecider) AskCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Asked)
}

// LastAsked returns the most recent profile presented, or nil.
func (d *ScriptedDecider) LastAsked() *core.CommandProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Asked) == 0 {
		return nil
	}
	return d.Asked[len(d.Asked)-1]
}

// Reset clears recorded profiles and restarts the answer sequence.
func (d *ScriptedDecider) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Asked = nil
	d.index = 0
}

// Chunk is one recorded live-output delivery.
type Chunk struct {
	Stream core.Stream
	Data   []byte
}

// RecordingSink captures live output chunks for inspection. The collector
// calls sinks from two reader goroutines, so all access is guarded.
type RecordingSink struct {
	mu     sync.Mutex
	chunks []Chunk
}

// Sink returns the core.ChunkSink to hand to the engine.
func (s *RecordingSink) Sink() core.ChunkSink {
	return func(stream core.Stream, chunk []byte) {
		data := make([]byte, len(chunk))
		copy(data, chunk)

		s.mu.Lock()
		s.chunks = append(s.chunks, Chunk{Stream: stream, Data: data})
		s.mu.Unlock()
	}
}

// Chunks returns a copy of everything recorded so far, in delivery order.
func (s *RecordingSink) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Stream concatenates every chunk recorded for one stream.
func (s *RecordingSink) Stream(stream core.Stream) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, c := range s.chunks {
		if c.Stream == stream {
			out = append(out, c.Data...)
		}
	}
	return string(out)
}

// Reset clears recorded chunks.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}
