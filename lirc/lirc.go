// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lirc is a minimal client for a running lircd daemon's Unix
// socket. commandsource.IR is the only consumer: it wants decoded remote
// key presses on a channel and nothing else, so unlike the teacher's
// original client this build does not track or expose the daemon's full
// remote/key catalog (its LIST response) — it drains that part of the
// protocol to keep the socket in sync and discards it.
package lirc

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/ir"
)

// socketPath is lircd's default control socket.
const socketPath = "/var/run/lirc/lircd"

// New dials lircd and starts decoding its event stream in the
// background. The returned Conn's Channel starts delivering ir.Message
// values as remote keys are pressed.
func New() (*Conn, error) {
	sock, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	c := &Conn{sock: sock, events: make(chan ir.Message)}
	// lircd only starts a reply exchange once a command is sent; LIST is
	// the cheapest no-op command that gets the connection into a known
	// request/reply cadence before the first real Emit.
	if _, err := sock.Write([]byte("LIST\n")); err != nil {
		_ = sock.Close()
		return nil, err
	}
	go c.decode(bufio.NewReader(sock))
	return c, nil
}

// Conn is an open connection to lircd.
type Conn struct {
	sock   net.Conn
	events chan ir.Message
}

// String implements conn.Resource.
func (c *Conn) String() string {
	return "lirc"
}

// Halt implements conn.Resource. It has no effect; call Close to release
// the socket.
func (c *Conn) Halt() error {
	return nil
}

// Close closes the socket to lircd. Not required before process exit.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// Emit sends a single keypress for remote to lircd.
// http://www.lirc.org/html/lircd.html#lbAH
func (c *Conn) Emit(remote string, key ir.Key) error {
	_, err := fmt.Fprintf(c.sock, "SEND_ONCE %s %s\n", remote, key)
	return err
}

// Channel returns the stream of decoded keypresses. It closes when the
// connection to lircd is lost.
func (c *Conn) Channel() <-chan ir.Message {
	return c.events
}

// decode reads lircd's event stream line by line until the connection
// closes or a read error occurs, delivering decoded keypresses on
// c.events and routing command replies (bracketed by BEGIN/END) to
// drainReply.
func (c *Conn) decode(r *bufio.Reader) {
	defer close(c.events)
	for {
		line, err := readLine(r)
		switch {
		case line == "BEGIN":
			err = c.drainReply(r)
		case line != "":
			// <code> <repeat count> <button name> <remote name>
			// http://www.lirc.org/html/lircd.html#lbAG
			if msg, ok := parseEvent(line); ok {
				c.events <- msg
			}
		}
		if err != nil {
			return
		}
	}
}

// parseEvent decodes one keypress event line.
func parseEvent(line string) (ir.Message, bool) {
	parts := strings.SplitN(line, " ", 5)
	if len(parts) != 4 {
		log.Printf("lirc: corrupted event line: %q", line)
		return ir.Message{}, false
	}
	repeatCount, err := strconv.Atoi(parts[1])
	if err != nil {
		log.Printf("lirc: corrupted event line: %q", line)
		return ir.Message{}, false
	}
	if parts[2] == "" || parts[3] == "" {
		return ir.Message{}, false
	}
	return ir.Message{Key: ir.Key(parts[2]), RemoteType: parts[3], Repeat: repeatCount != 0}, true
}

// drainReply consumes one full command reply:
//
//	BEGIN
//	<original command>
//	SUCCESS
//	DATA
//	<entry count>
//	<entries...>
//	END
//
// A SIGHUP reply (lircd's config-reload notice, carries no DATA block)
// re-issues LIST to stay registered for future replies. Everything else
// is read and discarded: nothing downstream of commandsource needs the
// daemon's remote/key catalog, only its live keypress stream.
func (c *Conn) drainReply(r *bufio.Reader) error {
	cmd, err := readLine(r)
	if err != nil {
		return err
	}
	if cmd == "SIGHUP" {
		if _, err := c.sock.Write([]byte("LIST\n")); err != nil {
			return err
		}
		return expectLine(r, "END")
	}
	if err := expectLine(r, "SUCCESS"); err != nil {
		return err
	}
	if err := expectLine(r, "DATA"); err != nil {
		return err
	}
	countLine, err := readLine(r)
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(countLine)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if _, err := readLine(r); err != nil {
			return err
		}
	}
	return expectLine(r, "END")
}

// expectLine reads one line and logs, without failing, if it doesn't
// match want — a malformed reply here is lircd misbehaving, not a reason
// to tear down the connection.
func expectLine(r *bufio.Reader, want string) error {
	line, err := readLine(r)
	if err != nil {
		return err
	}
	if line != want {
		log.Printf("lirc: unexpected line %q, want %q", line, want)
	}
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	raw, err := r.ReadBytes('\n')
	if err != nil {
		return "", err
	}
	if len(raw) != 0 {
		raw = raw[:len(raw)-1]
	}
	return string(raw), nil
}

var (
	_ ir.Conn       = (*Conn)(nil)
	_ conn.Resource = (*Conn)(nil)
)
