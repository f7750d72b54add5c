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

package machine

import (
	"runtime"

	"github.com/groveos/grove/kernel"
)

// Env is a program's window into the machine: the user-space system call
// stubs. Each stub loads the call number and arguments into the process's
// trap frame registers, raises the software interrupt, and returns whatever
// the kernel left in the accumulator, the Go rendition of the
// _syscall0.._syscall3 assembly shims.
//
// Every stub (and Yield) is a preemption point: the calling program may be
// suspended there for any number of ticks before the stub returns.
type Env struct {
	m *Machine
	p *program

	// scratch is the program's user-memory staging buffer for
	// pointer-carrying calls.
	scratch uint32
}

// syscall traps into the kernel on the syscall vector and parks the program
// until its process is scheduled again. If the call destroyed the process,
// the program goroutine ends here.
func (e *Env) syscall(num, arg1, arg2, arg3 uint32) int {
	kp := e.m.k.PidToProc(e.p.pid)
	if kp == nil {
		runtime.Goexit()
	}
	tf := kp.Trapframe()
	tf.EAX = num
	tf.EBX = arg1
	tf.ECX = arg2
	tf.EDX = arg3
	tf.Interrupt = kernel.VecSyscall
	e.m.k.ContextEnter(tf)

	if e.m.k.PidToProc(e.p.pid) == nil {
		// The call destroyed this process (PROC_EXIT, or a destroy from
		// elsewhere). End the window and the goroutine.
		e.p.done <- struct{}{}
		runtime.Goexit()
	}
	e.yield()
	return int(int32(tf.EAX))
}

// yield ends the current execution window and parks until the scheduler
// hands the process the CPU again.
func (e *Env) yield() {
	e.p.done <- struct{}{}
	<-e.p.resume
	if e.p.reaped {
		runtime.Goexit()
	}
}

// Yield gives up the rest of the execution window without entering the
// kernel. Long computations call it to stay preemptible.
func (e *Env) Yield() {
	e.yield()
}

// GetTime returns whole seconds since boot.
func (e *Env) GetTime() int {
	return e.syscall(kernel.SyscallSysGetTime, 0, 0, 0)
}

// OSName returns the operating system name.
func (e *Env) OSName() string {
	rc := e.syscall(kernel.SyscallSysGetName, e.scratch, 0, 0)
	if rc < 0 {
		return ""
	}
	return e.scratchString()
}

// GetPid returns the calling process's id.
func (e *Env) GetPid() int {
	return e.syscall(kernel.SyscallProcGetPID, 0, 0, 0)
}

// GetName returns the calling process's name.
func (e *Env) GetName() string {
	rc := e.syscall(kernel.SyscallProcGetName, e.scratch, 0, 0)
	if rc < 0 {
		return ""
	}
	return e.scratchString()
}

// Sleep suspends the process for the given number of seconds.
func (e *Env) Sleep(seconds int) {
	e.syscall(kernel.SyscallProcSleep, uint32(seconds), 0, 0)
}

// Exit terminates the process. It does not return.
func (e *Env) Exit() {
	e.syscall(kernel.SyscallProcExit, 0, 0, 0)
	panic("machine: exited process resumed")
}

// Write copies data to the process's io slot and returns the number of
// bytes accepted.
func (e *Env) Write(io int, data []byte) int {
	n := len(data)
	if n > scratchSize {
		n = scratchSize
	}
	buf, err := e.m.Bytes(e.scratch, uint32(n))
	if err != nil {
		return -1
	}
	copy(buf, data[:n])
	return e.syscall(kernel.SyscallIOWrite, uint32(io), e.scratch, uint32(n))
}

// WriteString writes s to the process's io slot.
func (e *Env) WriteString(io int, s string) int {
	return e.Write(io, []byte(s))
}

// Read fills buf from the process's io slot and returns the number of bytes
// transferred.
func (e *Env) Read(io int, buf []byte) int {
	n := len(buf)
	if n > scratchSize {
		n = scratchSize
	}
	rc := e.syscall(kernel.SyscallIORead, uint32(io), e.scratch, uint32(n))
	if rc <= 0 {
		return rc
	}
	src, err := e.m.Bytes(e.scratch, uint32(rc))
	if err != nil {
		return -1
	}
	copy(buf, src)
	return rc
}

// Flush clears the process's io slot.
func (e *Env) Flush(io int) int {
	return e.syscall(kernel.SyscallIOFlush, uint32(io), 0, 0)
}

// MutexInit allocates a kernel mutex.
func (e *Env) MutexInit() int {
	return e.syscall(kernel.SyscallMutexInit, 0, 0, 0)
}

// MutexDestroy frees a kernel mutex.
func (e *Env) MutexDestroy(id int) int {
	return e.syscall(kernel.SyscallMutexDest, uint32(id), 0, 0)
}

// MutexLock locks a kernel mutex, blocking while it is held elsewhere.
func (e *Env) MutexLock(id int) int {
	return e.syscall(kernel.SyscallMutexLock, uint32(id), 0, 0)
}

// MutexUnlock unlocks a kernel mutex.
func (e *Env) MutexUnlock(id int) int {
	return e.syscall(kernel.SyscallMutexUnlock, uint32(id), 0, 0)
}

// SemInit allocates a kernel semaphore with the given count.
func (e *Env) SemInit(value int) int {
	return e.syscall(kernel.SyscallSemInit, uint32(value), 0, 0)
}

// SemDestroy frees a kernel semaphore.
func (e *Env) SemDestroy(id int) int {
	return e.syscall(kernel.SyscallSemDest, uint32(id), 0, 0)
}

// SemWait takes a permit, blocking while the count is zero.
func (e *Env) SemWait(id int) int {
	return e.syscall(kernel.SyscallSemWait, uint32(id), 0, 0)
}

// SemPost releases a permit.
func (e *Env) SemPost(id int) int {
	return e.syscall(kernel.SyscallSemPost, uint32(id), 0, 0)
}

// scratchString reads the NUL-terminated string the kernel left in the
// staging buffer.
func (e *Env) scratchString() string {
	buf, err := e.m.Bytes(e.scratch, scratchSize)
	if err != nil {
		return ""
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
