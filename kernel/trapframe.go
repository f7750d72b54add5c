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

import "unsafe"

// Segment selectors of the flat kernel code and data segments.
const (
	KCodeSeg = 0x08
	KDataSeg = 0x10
)

// EFLAGS bits used when synthesizing a new execution context.
const (
	eflagsDefault = 0x0002 // reserved bit, always set
	eflagsIntr    = 0x0200 // IF: interrupts enabled
)

// Trapframe is the machine-state snapshot pushed at each kernel entry and
// restored on exit. It is a plain record, not an object: the syscall layer
// reads the call number and arguments out of it and writes the return value
// back into EAX, and never allocates.
//
// Field order matches the i386 push sequence: data segments, pusha block,
// the vector and error code, then the CPU-pushed EIP/CS/EFLAGS tail.
type Trapframe struct {
	GS, FS, ES, DS     uint32
	EDI, ESI, EBP, ESP uint32
	EBX, EDX, ECX, EAX uint32

	Interrupt uint32
	ErrorCode uint32

	EIP    uint32
	CS     uint32
	EFLAGS uint32
}

const trapframeSize = int(unsafe.Sizeof(Trapframe{}))

// carveTrapframe lays a trap frame at the top of a process stack so the
// frame's storage lives inside the stack bytes, exactly where the CPU would
// push it on a kernel entry from that process.
func carveTrapframe(stack []byte) *Trapframe {
	return (*Trapframe)(unsafe.Pointer(&stack[len(stack)-trapframeSize]))
}
