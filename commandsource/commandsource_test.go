// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package commandsource

import (
	"context"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/ir"

	"github.com/windrose/povcore/effect"
)

type fakeIRConn struct {
	ch chan ir.Message
}

func (c *fakeIRConn) Channel() <-chan ir.Message { return c.ch }

func TestIRForwardsMappedKeys(t *testing.T) {
	conn := &fakeIRConn{ch: make(chan ir.Message, 2)}
	src := IR{Conn: conn, Map: DefaultIRKeyMap()}

	var mu sync.Mutex
	var got []effect.Command
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		src.Run(ctx, func(c effect.Command) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
		close(done)
	}()

	conn.ch <- ir.Message{Key: "KEY_UP"}
	conn.ch <- ir.Message{Key: "KEY_UNKNOWN"}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d commands, want 1 (unknown key must be ignored)", len(got))
	}
	if got[0].Kind != effect.BrightnessUp {
		t.Fatalf("command kind = %v, want BrightnessUp", got[0].Kind)
	}
}

func TestIRStopsOnChannelClose(t *testing.T) {
	conn := &fakeIRConn{ch: make(chan ir.Message)}
	src := IR{Conn: conn, Map: DefaultIRKeyMap()}
	close(conn.ch)
	err := src.Run(context.Background(), func(effect.Command) {})
	if err != nil {
		t.Fatalf("err = %v, want nil on channel close", err)
	}
}

type fakeEdgePin struct {
	edges chan struct{}
}

func (p *fakeEdgePin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestButtonBankForwardsPresses(t *testing.T) {
	pinA := &fakeEdgePin{edges: make(chan struct{}, 1)}
	pinB := &fakeEdgePin{edges: make(chan struct{}, 1)}

	bank := ButtonBank{
		Buttons: []Button{
			{Pin: pinA, OnPress: effect.Command{Kind: effect.ModeNextCmd}},
			{Pin: pinB, OnPress: effect.Command{Kind: effect.ModePrevCmd}},
		},
		PollTimeout: 20 * time.Millisecond,
	}

	var mu sync.Mutex
	var got []effect.CommandKind
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bank.Run(ctx, func(c effect.Command) {
			mu.Lock()
			got = append(got, c.Kind)
			mu.Unlock()
		})
		close(done)
	}()

	pinA.edges <- struct{}{}
	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, k := range got {
		if k == effect.ModeNextCmd {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a ModeNextCmd forwarded from pinA's press")
	}
}
