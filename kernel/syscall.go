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

// System call numbers. Opaque but stable: user-space stubs and the
// dispatcher share them. EAX carries the number in, EBX/ECX/EDX carry up to
// three arguments, and the return value travels back in EAX.
const (
	SyscallSysGetTime  = 0x10
	SyscallSysGetName  = 0x11
	SyscallProcGetPID  = 0x20
	SyscallProcGetName = 0x21
	SyscallProcSleep   = 0x22
	SyscallProcExit    = 0x23
	SyscallIOWrite     = 0x30
	SyscallIORead      = 0x31
	SyscallIOFlush     = 0x32
	SyscallMutexInit   = 0x40
	SyscallMutexDest   = 0x41
	SyscallMutexLock   = 0x42
	SyscallMutexUnlock = 0x43
	SyscallSemInit     = 0x50
	SyscallSemDest     = 0x51
	SyscallSemWait     = 0x52
	SyscallSemPost     = 0x53
)

func (k *Kernel) syscallInit() {
	k.RegisterIRQ(VecSyscall, k.syscallIRQ)
}

// syscallIRQ demultiplexes the software-interrupt vector. The active
// process's trap frame is both the argument and the return channel. Two
// cases skip the EAX store: PROC_EXIT destroys the frame, and a caller left
// in WAITING state receives its value from the operation that later wakes
// it. An unknown number is a kernel fault.
func (k *Kernel) syscallIRQ() {
	p := k.sched.active
	if p == nil {
		k.Panic("syscall: no active process")
		return
	}
	tf := p.tf
	if tf == nil {
		k.Panic("syscall: active process has no trap frame")
		return
	}

	num := tf.EAX
	arg1, arg2, arg3 := tf.EBX, tf.ECX, tf.EDX

	rc := -1
	switch num {
	case SyscallSysGetTime:
		rc = k.sysGetTime()
	case SyscallSysGetName:
		rc = k.sysGetName(arg1)
	case SyscallProcGetPID:
		rc = k.procGetPID()
	case SyscallProcGetName:
		rc = k.procGetName(arg1)
	case SyscallProcSleep:
		rc = k.procSleep(int(int32(arg1)))
	case SyscallProcExit:
		k.procExit()
		return
	case SyscallIOWrite:
		rc = k.ioWrite(int(int32(arg1)), arg2, arg3)
	case SyscallIORead:
		rc = k.ioRead(int(int32(arg1)), arg2, arg3)
	case SyscallIOFlush:
		rc = k.ioFlush(int(int32(arg1)))
	case SyscallMutexInit:
		rc = k.MutexInit()
	case SyscallMutexDest:
		rc = k.MutexDestroy(int(int32(arg1)))
	case SyscallMutexLock:
		rc = k.MutexLock(int(int32(arg1)))
	case SyscallMutexUnlock:
		rc = k.MutexUnlock(int(int32(arg1)))
	case SyscallSemInit:
		rc = k.SemInit(int(int32(arg1)))
	case SyscallSemDest:
		rc = k.SemDestroy(int(int32(arg1)))
	case SyscallSemWait:
		rc = k.SemWait(int(int32(arg1)))
	case SyscallSemPost:
		rc = k.SemPost(int(int32(arg1)))
	default:
		k.Panic("syscall: invalid system call %d", num)
		return
	}

	if p.state == StateWaiting {
		return
	}
	tf.EAX = uint32(rc)
}

// sysGetTime returns whole seconds since boot.
func (k *Kernel) sysGetTime() int {
	return k.ticks / TicksPerSecond
}

// sysGetName copies the operating system name, NUL terminated, to the user
// buffer at addr.
func (k *Kernel) sysGetName(addr uint32) int {
	buf := k.userBytes(addr, uint32(len(k.cfg.OSName)+1))
	if buf == nil {
		return -1
	}
	copyCString(buf, k.cfg.OSName)
	return 0
}

func (k *Kernel) procGetPID() int {
	return k.sched.active.pid
}

// procGetName copies the active process's name, NUL terminated, to the user
// buffer at addr. The buffer must hold ProcNameLen bytes.
func (k *Kernel) procGetName(addr uint32) int {
	buf := k.userBytes(addr, ProcNameLen)
	if buf == nil {
		return -1
	}
	copyCString(buf, k.sched.active.name)
	return 0
}

func (k *Kernel) procSleep(seconds int) int {
	k.schedulerSleep(k.sched.active, seconds)
	return 0
}

// procExit destroys the calling process. It does not return a value: the
// control block, stack and trap frame are gone before any restore.
func (k *Kernel) procExit() {
	k.Destroy(k.sched.active.pid)
}

func (k *Kernel) procIO(io int) *ringbuf.Buf {
	p := k.sched.active
	if io < 0 || io >= ProcIOMax {
		k.log.err("syscall: io slot %d out of range", io)
		return nil
	}
	if p.io[io] == nil {
		k.log.err("syscall: io slot %d of pid %d unattached", io, p.pid)
		return nil
	}
	return p.io[io]
}

// ioWrite copies up to n bytes from the user buffer at addr into the
// process's io ring. Returns the number of bytes transferred.
func (k *Kernel) ioWrite(io int, addr, n uint32) int {
	r := k.procIO(io)
	if r == nil {
		return -1
	}
	src := k.userBytes(addr, n)
	if src == nil {
		return -1
	}
	return r.Write(src)
}

// ioRead copies up to n bytes from the process's io ring into the user
// buffer at addr. Returns the number of bytes transferred.
func (k *Kernel) ioRead(io int, addr, n uint32) int {
	r := k.procIO(io)
	if r == nil {
		return -1
	}
	dst := k.userBytes(addr, n)
	if dst == nil {
		return -1
	}
	return r.Read(dst)
}

// ioFlush clears the process's io ring.
func (k *Kernel) ioFlush(io int) int {
	r := k.procIO(io)
	if r == nil {
		return -1
	}
	r.Flush()
	return 0
}

func copyCString(dst []byte, s string) {
	n := copy(dst, s)
	if n < len(dst) {
		dst[n] = 0
	}
}
