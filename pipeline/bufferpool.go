// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pipeline implements the dual-buffer render/output pipeline: a
// BufferPool of exactly two rendercontext.Context values guarded by binary
// semaphore pairs, and the RenderWorker/OutputWorker loops that drive
// frames through them in lockstep with the revolution timer.
//
// The semaphore pairs are each a capacity-1 channel, the idiomatic Go
// stand-in for the binary "free"/"ready" signals the specification
// describes; round-robin write and read order are independent counters
// over the fixed two buffers, so the two signals alone are enough to keep
// the writer and reader from ever crossing each other (I4). This follows
// the same "single producer, single consumer, bounded handoff" shape as
// the teacher's own videosink.handler (other_examples-adjacent
// periph-devices package), just specialized to two fixed slots instead of
// an arbitrary-depth queue.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/windrose/povcore/revtimer"
	"github.com/windrose/povcore/rendercontext"
)

// bufferCount is fixed at 2 by the specification: one buffer being
// written while the other is read, never more.
const bufferCount = 2

// ErrTimeout is returned by AcquireWrite/AcquireRead when no buffer
// becomes available within the requested timeout. It is not a failure
// worth logging loudly: callers count it as a skip (§7).
var ErrTimeout = errors.New("pipeline: buffer acquire timed out")

// WriteLease is a mutable borrow of one buffer, returned by AcquireWrite.
type WriteLease struct {
	index int
	ctx   *rendercontext.Context
}

// Context returns the buffer to populate.
func (l WriteLease) Context() *rendercontext.Context { return l.ctx }

// ReadLease is a read-only borrow of one buffer, returned by AcquireRead.
type ReadLease struct {
	index   int
	ctx     *rendercontext.Context
	targetT revtimer.Timestamp
}

// Context returns the buffer to translate onto the LED bus.
func (l ReadLease) Context() *rendercontext.Context { return l.ctx }

// TargetT is the timestamp the render side deposited for this frame: the
// moment the disc will reach the angle this frame was rendered for.
func (l ReadLease) TargetT() revtimer.Timestamp { return l.targetT }

// BufferPool owns exactly two RenderContext buffers and their semaphore
// pairs. Both buffers start signalled free. Write order and read order
// are independent round-robin counters over {0,1}.
type BufferPool struct {
	buffers [bufferCount]*rendercontext.Context
	free    [bufferCount]chan struct{}
	ready   [bufferCount]chan struct{}
	targetT [bufferCount]revtimer.Timestamp

	writeNext int
	readNext  int
}

// NewBufferPool allocates both RenderContext buffers and marks them free.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	for i := 0; i < bufferCount; i++ {
		p.buffers[i] = rendercontext.New()
		p.free[i] = make(chan struct{}, 1)
		p.ready[i] = make(chan struct{}, 1)
		p.free[i] <- struct{}{}
	}
	return p
}

// AcquireWrite blocks until the next buffer in write round-robin order is
// free, or timeout elapses (ErrTimeout). A non-positive timeout blocks
// without a deadline.
func (p *BufferPool) AcquireWrite(timeout time.Duration) (WriteLease, error) {
	idx := p.writeNext
	if !p.wait(p.free[idx], timeout) {
		return WriteLease{}, ErrTimeout
	}
	p.writeNext = (p.writeNext + 1) % bufferCount
	return WriteLease{index: idx, ctx: p.buffers[idx]}, nil
}

// ReleaseWrite records targetT for this frame and signals the buffer
// ready for the reader.
func (p *BufferPool) ReleaseWrite(lease WriteLease, targetT revtimer.Timestamp) {
	p.targetT[lease.index] = targetT
	p.ready[lease.index] <- struct{}{}
}

// AcquireRead blocks until the next buffer in read round-robin order is
// ready, or timeout elapses (ErrTimeout).
func (p *BufferPool) AcquireRead(timeout time.Duration) (ReadLease, error) {
	idx := p.readNext
	if !p.wait(p.ready[idx], timeout) {
		return ReadLease{}, ErrTimeout
	}
	p.readNext = (p.readNext + 1) % bufferCount
	return ReadLease{index: idx, ctx: p.buffers[idx], targetT: p.targetT[idx]}, nil
}

// ReleaseRead signals the buffer free for the writer again.
func (p *BufferPool) ReleaseRead(lease ReadLease) {
	p.free[lease.index] <- struct{}{}
}

// wait blocks on sem, honoring timeout; returns false on timeout.
func (p *BufferPool) wait(sem chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-sem
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-sem:
		return true
	case <-ctx.Done():
		return false
	}
}
