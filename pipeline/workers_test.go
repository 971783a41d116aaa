// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/windrose/povcore/effect"
	"github.com/windrose/povcore/ledsink"
	"github.com/windrose/povcore/rendercontext"
	"github.com/windrose/povcore/revtimer"
)

// fakeClock is an explicit, test-controlled microsecond clock, avoiding
// any dependency on wall-clock time in pipeline tests.
type fakeClock struct {
	us int64
}

func (c *fakeClock) now() revtimer.Timestamp { return revtimer.Timestamp(atomic.LoadInt64(&c.us)) }
func (c *fakeClock) advance(d int64)         { atomic.AddInt64(&c.us, d) }

type fakeSink struct {
	mu     sync.Mutex
	pixels map[int]rendercontext.Color
	shows  int
}

func newFakeSink() *fakeSink { return &fakeSink{pixels: map[int]rendercontext.Color{}} }

func (s *fakeSink) Halt() error    { return nil }
func (s *fakeSink) String() string { return "fakeSink" }
func (s *fakeSink) SetPixel(physicalIndex int, c rendercontext.Color) error {
	s.mu.Lock()
	s.pixels[physicalIndex] = c
	s.mu.Unlock()
	return nil
}
func (s *fakeSink) Show() error {
	s.mu.Lock()
	s.shows++
	s.mu.Unlock()
	return nil
}

var _ ledsink.Sink = (*fakeSink)(nil)

type solidEffect struct {
	effect.Base
	color rendercontext.Color
}

func (e solidEffect) Render(ctx *rendercontext.Context) {
	ctx.FillVirtual(0, rendercontext.VirtualPixelCount, e.color)
}

func TestRenderThenOutputOneFrame(t *testing.T) {
	clock := &fakeClock{us: 1_000_000}
	tm := revtimer.New(revtimer.Config{})
	for i := 0; i < 21; i++ {
		tm.AddPulse(revtimer.Timestamp(i) * 20000)
	}
	// Re-seed the timer's reference point at the fake clock's starting
	// point so the first scheduled target lands shortly after "now".
	tm.AddPulse(clock.now())

	disp := effect.NewDispatcher()
	disp.Register(solidEffect{color: rendercontext.Color{R: 42}})

	pool := NewBufferPool()
	rw := NewRenderWorker(RenderWorkerConfig{
		Timer:      tm,
		Dispatcher: disp,
		Pool:       pool,
		Now:        clock.now,
	})
	sink := newFakeSink()
	ow := NewOutputWorker(OutputWorkerConfig{
		Pool:             pool,
		Sink:             sink,
		Map:              ledsink.DefaultMap(),
		Dispatcher:       disp,
		Now:              clock.now,
		RecordOutputTime: tm.RecordOutputTime,
	})

	rw.Step()
	clock.advance(20000)
	ow.Step()

	if sink.shows != 1 {
		t.Fatalf("shows = %d, want 1", sink.shows)
	}
	sink.mu.Lock()
	col, ok := sink.pixels[1] // arm0 led0 under the default map
	sink.mu.Unlock()
	if !ok {
		t.Fatal("expected physical index 1 to have been written")
	}
	if col.R == 0 {
		t.Fatal("expected non-black pixel from the solid effect")
	}
}

func TestRenderWorkerIdlesWhenNotRotating(t *testing.T) {
	clock := &fakeClock{}
	tm := revtimer.New(revtimer.Config{})
	disp := effect.NewDispatcher()
	disp.Register(solidEffect{})
	pool := NewBufferPool()

	rw := NewRenderWorker(RenderWorkerConfig{
		Timer:      tm,
		Dispatcher: disp,
		Pool:       pool,
		Now:        clock.now,
		IdleSleep:  1,
	})
	rw.Step()

	if _, err := pool.AcquireRead(1); err == nil {
		t.Fatal("no frame should have been rendered while not rotating/warmup incomplete")
	}
}
