// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"sync"
	"time"
)

// StallGuard is a watchdog for OutputWorker's tight loop. The original
// firmware's equivalent problem (see
// _examples/original_source/led_display/include/WatchdogHelper.h) is a
// FreeRTOS task-watchdog starvation: when RenderWorker is fast,
// OutputWorker never blocks on the buffer semaphore long enough for the
// idle task to run and feed the platform's own watchdog. Go has no TWDT,
// so StallGuard reimplements the same "prove forward progress every
// iteration" idea as a plain timer: if Feed isn't called within the
// deadline, onStall runs once, exactly like esp_task_wdt firing once per
// starvation episode.
type StallGuard struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Duration
	onStall  func()
	stopped  bool
}

// NewStallGuard creates a StallGuard that calls onStall if Feed is not
// called again within deadline. The guard starts counting immediately.
func NewStallGuard(deadline time.Duration, onStall func()) *StallGuard {
	g := &StallGuard{deadline: deadline, onStall: onStall}
	g.timer = time.AfterFunc(deadline, g.fire)
	return g
}

func (g *StallGuard) fire() {
	g.mu.Lock()
	stopped := g.stopped
	g.mu.Unlock()
	if !stopped && g.onStall != nil {
		g.onStall()
	}
}

// Feed proves the guarded loop made progress this iteration, pushing the
// deadline out. Call once per OutputWorker iteration.
func (g *StallGuard) Feed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if !g.timer.Stop() {
		select {
		case <-g.timer.C:
		default:
		}
	}
	g.timer.Reset(g.deadline)
}

// Stop permanently disarms the guard. Safe to call more than once.
func (g *StallGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.stopped = true
	g.timer.Stop()
}
