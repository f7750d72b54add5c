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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func TestSysGetTime(t *testing.T) {
	k := newTestKernel(t, nil)
	assert.Equal(t, 0, syscall(k, SyscallSysGetTime, 0, 0, 0))
	tickN(k, 250)
	assert.Equal(t, 2, syscall(k, SyscallSysGetTime, 0, 0, 0))
}

func TestSysGetName(t *testing.T) {
	mem := newTestMem(256)
	cfg := testConfig()
	cfg.Memory = mem
	k := newTestKernel(t, cfg)

	const addr = 16
	require.Equal(t, 0, syscall(k, SyscallSysGetName, addr, 0, 0))
	assert.Equal(t, "GroveOS", cstring(mem.buf[addr:]))
}

func TestSysGetNameNoMemory(t *testing.T) {
	k := newTestKernel(t, nil)
	assert.Equal(t, -1, syscall(k, SyscallSysGetName, 16, 0, 0))
}

func TestProcGetPidAndName(t *testing.T) {
	mem := newTestMem(256)
	cfg := testConfig()
	cfg.Memory = mem
	k := newTestKernel(t, cfg)
	pid := k.Create(0, "worker", ProcUser)
	runUntilActive(t, k, pid)

	assert.Equal(t, pid, syscall(k, SyscallProcGetPID, 0, 0, 0))
	require.Equal(t, 0, syscall(k, SyscallProcGetName, 0, 0, 0))
	assert.Equal(t, "worker", cstring(mem.buf))
}

func TestIOSyscalls(t *testing.T) {
	mem := newTestMem(256)
	cfg := testConfig()
	cfg.Memory = mem
	k := newTestKernel(t, cfg)
	pid := k.Create(0, "shell", ProcUser)
	require.Equal(t, 0, k.AttachTTY(pid, 0))
	runUntilActive(t, k, pid)

	copy(mem.buf[0:], "hello")
	assert.Equal(t, 5, syscall(k, SyscallIOWrite, ProcIOOut, 0, 5))
	assert.Equal(t, 5, k.TTY(0).Output().Len())

	// Reading the output slot drains what was just written.
	assert.Equal(t, 5, syscall(k, SyscallIORead, ProcIOOut, 32, 16))
	assert.Equal(t, "hello", string(mem.buf[32:37]))

	copy(mem.buf[64:], "x")
	assert.Equal(t, 1, syscall(k, SyscallIOWrite, ProcIOOut, 64, 1))
	assert.Equal(t, 0, syscall(k, SyscallIOFlush, ProcIOOut, 0, 0))
	assert.True(t, k.TTY(0).Output().Empty())
}

func TestIOSyscallsInvalidSlot(t *testing.T) {
	mem := newTestMem(256)
	cfg := testConfig()
	cfg.Memory = mem
	k := newTestKernel(t, cfg)
	pid := k.Create(0, "noio", ProcUser)
	runUntilActive(t, k, pid)

	// Unattached slot.
	assert.Equal(t, -1, syscall(k, SyscallIOWrite, ProcIOOut, 0, 1))
	// Out-of-range slots.
	assert.Equal(t, -1, syscall(k, SyscallIORead, ProcIOMax, 0, 1))
	assert.Equal(t, -1, syscall(k, SyscallIOFlush, ^uint32(0), 0, 0))
}

func TestIOWriteShortCount(t *testing.T) {
	mem := newTestMem(2048)
	cfg := testConfig()
	cfg.IOBufCap = 8
	cfg.Memory = mem
	k := newTestKernel(t, cfg)
	pid := k.Create(0, "w", ProcUser)
	require.Equal(t, 0, k.AttachTTY(pid, 0))
	runUntilActive(t, k, pid)

	// A write larger than the ring reports the transferred count.
	assert.Equal(t, 8, syscall(k, SyscallIOWrite, ProcIOOut, 0, 13))
	assert.Equal(t, 0, syscall(k, SyscallIOWrite, ProcIOOut, 0, 4))
}

func TestProcExitSyscall(t *testing.T) {
	k := newTestKernel(t, nil)
	pid := k.Create(0, "doomed", ProcUser)
	runUntilActive(t, k, pid)

	syscall(k, SyscallProcExit, 0, 0, 0)
	assert.Nil(t, k.PidToProc(pid))
	// The entry that carried the exit selected a replacement.
	require.NotNil(t, k.Active())
	assert.NotEqual(t, pid, k.Active().PID())
}

func TestUnknownSyscallPanics(t *testing.T) {
	k := newTestKernel(t, nil)
	assert.Panics(t, func() { syscall(k, 0xdead, 0, 0, 0) })
}

func TestBlockedCallerKeepsWakeValue(t *testing.T) {
	k := newTestKernel(t, nil)
	a := k.Create(0, "a", ProcUser)
	b := k.Create(0, "b", ProcUser)
	id := k.SemInit(0)

	runUntilActive(t, k, a)
	syscall(k, SyscallSemWait, uint32(id), 0, 0)
	pa := k.PidToProc(a)
	require.Equal(t, StateWaiting, pa.State())
	// The dispatcher must not have stored a return value over the
	// blocked caller's accumulator; the syscall number is still there.
	assert.Equal(t, uint32(SyscallSemWait), pa.Trapframe().EAX)

	runUntilActive(t, k, b)
	syscall(k, SyscallSemPost, uint32(id), 0, 0)
	assert.Equal(t, uint32(0), pa.Trapframe().EAX)
}
