/*
 * Copyright 2025 Grove OS Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kernel

import "github.com/groveos/grove/container/ringbuf"

// Default text-mode colors.
const (
	ColorBlack     = 0x0
	ColorLightGrey = 0x7
)

// Display receives the active terminal's character grid whenever a refresh
// finds it dirty. The VGA device behind it is outside the kernel.
type Display interface {
	Render(id int, grid []byte, rows, cols int)
}

// TTY is one virtual terminal: a character grid with a cursor, and the
// input/output ring buffer pair processes attach to. Terminals live for the
// lifetime of the kernel.
type TTY struct {
	id   int
	grid []byte // rows*cols character cells
	posX int
	posY int
	fg   uint8
	bg   uint8

	refresh bool
	// echo mirrors arriving input bytes onto the output buffer.
	echo bool

	in  *ringbuf.Buf
	out *ringbuf.Buf

	rows, cols int
}

// ID returns the terminal number.
func (t *TTY) ID() int { return t.id }

// Input returns the terminal's input ring buffer.
func (t *TTY) Input() *ringbuf.Buf { return t.in }

// Output returns the terminal's output ring buffer.
func (t *TTY) Output() *ringbuf.Buf { return t.out }

// SetEcho switches input echo on or off.
func (t *TTY) SetEcho(on bool) { t.echo = on }

// Grid returns the terminal's character cells, row major.
func (t *TTY) Grid() []byte { return t.grid }

// putc writes one character to the grid, handling backspace, tab, carriage
// return, newline, line wrap and scrolling.
func (t *TTY) putc(c byte) {
	switch c {
	case '\b':
		if t.posX > 0 {
			t.posX--
			t.grid[t.posY*t.cols+t.posX] = ' '
		}
	case '\t':
		for i := 0; i < 4; i++ {
			t.grid[t.posY*t.cols+t.posX] = ' '
			t.posX++
			if t.posX >= t.cols {
				t.posX = 0
				t.posY++
			}
		}
	case '\r':
		t.posX = 0
	case '\n':
		t.posX = 0
		t.posY++
	default:
		t.grid[t.posY*t.cols+t.posX] = c
		t.posX++
		if t.posX >= t.cols {
			t.posX = 0
			t.posY++
		}
	}

	if t.posY >= t.rows {
		// Scroll up one line and clear the bottom row.
		copy(t.grid, t.grid[t.cols:])
		bottom := t.grid[(t.rows-1)*t.cols:]
		for i := range bottom {
			bottom[i] = ' '
		}
		t.posY = t.rows - 1
	}

	t.refresh = true
}

func (k *Kernel) ttyInit() {
	k.log.info("Initializing TTY driver")
	k.ttys = make([]TTY, k.cfg.TTYMax)
	for i := range k.ttys {
		t := &k.ttys[i]
		t.id = i
		t.rows = k.cfg.TTYRows
		t.cols = k.cfg.TTYCols
		t.grid = make([]byte, t.rows*t.cols)
		for j := range t.grid {
			t.grid[j] = ' '
		}
		t.fg = ColorLightGrey
		t.bg = ColorBlack
		t.echo = true
		t.in = ringbuf.New(k.cfg.IOBufCap)
		t.out = ringbuf.New(k.cfg.IOBufCap)
	}
	k.activeTTY = &k.ttys[0]

	if k.RegisterTimer(k.ttyRefresh, ttyRefreshInterval, -1) < 0 {
		k.Panic("tty: unable to register the refresh callback")
	}
}

// TTY returns the given terminal, or nil for an out-of-range number.
func (k *Kernel) TTY(n int) *TTY {
	if n < 0 || n >= len(k.ttys) {
		return nil
	}
	return &k.ttys[n]
}

// ActiveTTY returns the terminal currently bound to the display.
func (k *Kernel) ActiveTTY() *TTY {
	return k.activeTTY
}

// SelectTTY makes terminal n the displayed one and forces a refresh.
func (k *Kernel) SelectTTY(n int) {
	t := k.TTY(n)
	if t == nil {
		k.log.err("tty: invalid terminal %d selected", n)
		return
	}
	k.activeTTY = t
	t.refresh = true
	k.log.info("tty: terminal %d selected", n)
}

// TTYInput delivers one decoded input byte to the active terminal, the path
// the keyboard handler feeds. With echo enabled the byte is mirrored onto
// the output buffer. A full input buffer drops the byte and logs; overflow
// is never silent.
func (k *Kernel) TTYInput(c byte) {
	t := k.activeTTY
	if t == nil {
		k.Panic("tty: no terminal selected")
		return
	}
	if err := t.in.WriteByte(c); err != nil {
		k.log.warn("tty: input overflow on terminal %d", t.id)
		return
	}
	if t.echo {
		if err := t.out.WriteByte(c); err != nil {
			k.log.warn("tty: echo overflow on terminal %d", t.id)
		}
	}
}

// ttyRefresh runs on the refresh timer: it drains every terminal's output
// ring through its character grid, then hands the active grid to the
// display if anything changed.
func (k *Kernel) ttyRefresh() {
	for i := range k.ttys {
		t := &k.ttys[i]
		for !t.out.Empty() {
			c, err := t.out.ReadByte()
			if err != nil {
				break
			}
			t.putc(c)
		}
	}

	t := k.activeTTY
	if t == nil {
		k.Panic("tty: no terminal selected")
		return
	}
	if t.refresh {
		if k.display != nil {
			k.display.Render(t.id, t.grid, t.rows, t.cols)
		}
		t.refresh = false
	}
}
