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

package ringbuf

import (
	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/pkg/errors"
)

var (
	// ErrFull is returned by WriteByte when no space remains.
	ErrFull = errors.New("ringbuf: full")
	// ErrEmpty is returned by ReadByte when no bytes are buffered.
	ErrEmpty = errors.New("ringbuf: empty")
)

// Buf is a fixed-capacity circular byte FIFO. It underpins all terminal I/O:
// the keyboard side fills a terminal's input buffer, processes drain it, and
// the refresh path drains the output buffer to the display.
//
// None of the operations block. Callers check for space or occupancy, or let
// the syscall layer surface the short count.
type Buf struct {
	data []byte
	head int
	tail int
	size int
}

// New returns a Buf holding at most capacity bytes.
// Storage is allocated once and never zeroed on reuse.
func New(capacity int) *Buf {
	return &Buf{data: dirtmake.Bytes(capacity, capacity)}
}

// WriteByte appends b. Writing to a full buffer fails; overflow is not silent.
func (r *Buf) WriteByte(b byte) error {
	if r.size >= len(r.data) {
		return ErrFull
	}
	r.data[r.tail] = b
	r.tail = (r.tail + 1) % len(r.data)
	r.size++
	return nil
}

// ReadByte removes and returns the oldest byte.
func (r *Buf) ReadByte() (byte, error) {
	if r.size == 0 {
		return 0, ErrEmpty
	}
	b := r.data[r.head]
	r.head = (r.head + 1) % len(r.data)
	r.size--
	return b, nil
}

// Write copies min(len(p), remaining capacity) bytes from p into the buffer
// and returns the number transferred.
func (r *Buf) Write(p []byte) int {
	n := len(r.data) - r.size
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		r.data[r.tail] = p[i]
		r.tail = (r.tail + 1) % len(r.data)
	}
	r.size += n
	return n
}

// Read copies min(len(p), occupancy) bytes into p and returns the number
// transferred.
func (r *Buf) Read(p []byte) int {
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = r.data[r.head]
		r.head = (r.head + 1) % len(r.data)
	}
	r.size -= n
	return n
}

// Flush resets the buffer to empty. The storage is not zeroed.
func (r *Buf) Flush() {
	r.head = 0
	r.tail = 0
	r.size = 0
}

// Len returns the current occupancy.
func (r *Buf) Len() int {
	return r.size
}

// Cap returns the total capacity.
func (r *Buf) Cap() int {
	return len(r.data)
}

// Empty reports whether no bytes are buffered.
func (r *Buf) Empty() bool {
	return r.size == 0
}

// Full reports whether no space remains.
func (r *Buf) Full() bool {
	return r.size == len(r.data)
}
