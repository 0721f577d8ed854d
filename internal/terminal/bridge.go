// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
	"golang.org/x/sys/unix"
)

const (
	// pollInterval matches the attach bridge's poll(10ms) -> read(4096)
	// cadence.
	pollInterval   = 10 * time.Millisecond
	readChunkSize  = 4096
	terminateGrace = 2 * time.Second
)

// Conn is the subset of *websocket.Conn the bridge drives. Declaring it
// locally means this package needs no knowledge of how the caller
// accepted the connection, while a real *websocket.Conn satisfies it
// without any adapter.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// resizeControl is the one recognized JSON control frame a client may send
// over the terminal WebSocket.
type resizeControl struct {
	Type string `json:"type"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// Bridge pumps bytes between a pseudo-terminal attached to a multiplexer
// session and a WebSocket connection, for the lifetime of one attach.
// Detaching never kills the underlying multiplexer session.
type Bridge struct {
	sessionName string
	readOnly    bool

	ptmx *os.File
	fd   int
	cmd  *exec.Cmd
}

// Attach opens a PTY, spawns the multiplexer's attach command (with the
// spectator flag when readOnly is set) bound to its slave end, and
// returns a Bridge ready to Run against a WebSocket connection.
func Attach(sessionName string, readOnly bool, rows, cols int) (*Bridge, error) {
	args := []string{"attach-session", "-t", sessionName}
	if readOnly {
		args = append(args, "-r")
	}

	cmd := exec.Command("tmux", args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("terminal: attach %s: %w", sessionName, err)
	}

	fd := int(ptmx.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("terminal: set nonblocking: %w", err)
	}

	return &Bridge{sessionName: sessionName, readOnly: readOnly, ptmx: ptmx, fd: fd, cmd: cmd}, nil
}

// Run pumps data between the PTY and conn until either side closes, then
// tears down the attach process (leaving the multiplexer session itself
// alive) and returns. It blocks until the bridge is finished.
func (b *Bridge) Run(ctx context.Context, conn Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readDone := make(chan struct{})
	writeDone := make(chan struct{})

	go b.readLoop(ctx, conn, readDone)
	go b.writeLoop(ctx, conn, writeDone)

	select {
	case <-readDone:
	case <-writeDone:
	}
	cancel()
	// writeLoop may be blocked in ReadMessage; closing the connection (when
	// it supports Close, as *websocket.Conn does) unblocks it.
	if c, ok := conn.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	<-readDone
	<-writeDone

	b.teardown()
}

// readLoop copies PTY output to the WebSocket: poll, read up to 4096
// bytes, send as a binary frame. EAGAIN just means nothing is ready yet;
// any other read error ends the bridge.
func (b *Bridge) readLoop(ctx context.Context, conn Conn, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, readChunkSize)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := unix.Read(b.fd, buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			return
		}
		if n == 0 && err == nil {
			return
		}
	}
}

// frameAction is what writeLoop decided to do with one inbound frame.
type frameAction struct {
	resize *resizeControl
	write  []byte
}

// classifyFrame decides what a frame coming off the WebSocket should do to
// the PTY, independent of the PTY itself, so the decision can be tested
// without spawning a real attach process. Binary frames are written
// verbatim. Text frames are parsed as JSON first: a recognized
// {type:"resize"} control adjusts both the PTY ioctl and the multiplexer
// window size, applied even in spectator mode, since an observer resizing
// their browser must still see a correctly sized pane. Anything else that
// fails to parse is written through as raw UTF-8 bytes. All non-control
// input is dropped when readOnly is set.
func classifyFrame(msgType int, data []byte, readOnly bool) frameAction {
	switch msgType {
	case websocket.TextMessage:
		var resize resizeControl
		if err := json.Unmarshal(data, &resize); err == nil && resize.Type == "resize" {
			return frameAction{resize: &resize}
		}
		if readOnly {
			return frameAction{}
		}
		return frameAction{write: data}
	case websocket.BinaryMessage:
		if readOnly {
			return frameAction{}
		}
		return frameAction{write: data}
	default:
		return frameAction{}
	}
}

// writeLoop copies WebSocket frames into the PTY via classifyFrame.
func (b *Bridge) writeLoop(ctx context.Context, conn Conn, done chan<- struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		action := classifyFrame(msgType, data, b.readOnly)
		switch {
		case action.resize != nil:
			b.applyResize(action.resize.Rows, action.resize.Cols)
		case action.write != nil:
			b.write(action.write)
		}
	}
}

func (b *Bridge) write(data []byte) {
	for len(data) > 0 {
		n, err := unix.Write(b.fd, data)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				time.Sleep(pollInterval)
				continue
			}
			return
		}
		data = data[n:]
	}
}

func (b *Bridge) applyResize(rows, cols int) {
	_ = pty.Setsize(b.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	_ = exec.Command("tmux", "resize-window", "-t", b.sessionName,
		"-x", fmt.Sprintf("%d", cols), "-y", fmt.Sprintf("%d", rows)).Run()
}

// teardown closes the PTY and terminates the attach process, giving it
// terminateGrace to exit before being killed. The multiplexer session
// itself is never signaled: detach-preserving is a hard contract.
func (b *Bridge) teardown() {
	_ = b.ptmx.Close()

	if b.cmd.Process == nil {
		return
	}
	_ = b.cmd.Process.Signal(syscall.SIGTERM)

	exited := make(chan struct{})
	go func() {
		_ = b.cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(terminateGrace):
		_ = b.cmd.Process.Kill()
	}
}
