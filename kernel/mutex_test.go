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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkMutexInvariant asserts locks stays binary and tied to ownership.
func checkMutexInvariant(t *testing.T, m *Mutex) {
	t.Helper()
	assert.Contains(t, []int{0, 1}, m.locks)
	if m.locks == 1 {
		assert.NotNil(t, m.owner)
	} else {
		assert.Nil(t, m.owner)
	}
}

func TestMutexInitDestroy(t *testing.T) {
	k := newTestKernel(t, nil)
	id := k.MutexInit()
	require.GreaterOrEqual(t, id, 0)
	assert.Equal(t, 0, k.MutexDestroy(id))
	assert.Equal(t, -1, k.MutexDestroy(id), "double destroy must fail")
	assert.Equal(t, -1, k.MutexLock(id), "freed id must be invalid")
	assert.Equal(t, -1, k.MutexLock(-1))
	assert.Equal(t, -1, k.MutexLock(k.cfg.MutexMax))
}

func TestMutexPoolExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.MutexMax = 3
	k := newTestKernel(t, cfg)
	ids := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		id := k.MutexInit()
		require.GreaterOrEqual(t, id, 0)
		ids = append(ids, id)
	}
	assert.Equal(t, -1, k.MutexInit())

	require.Equal(t, 0, k.MutexDestroy(ids[1]))
	assert.Equal(t, ids[1], k.MutexInit(), "freed id is reallocated")
}

func TestMutexUncontendedLock(t *testing.T) {
	k := newTestKernel(t, nil)
	a := k.Create(0, "a", ProcUser)
	runUntilActive(t, k, a)

	id := k.MutexInit()
	assert.Equal(t, 1, k.MutexLock(id))
	m := &k.mutexes[id]
	assert.Equal(t, a, m.owner.PID())
	checkMutexInvariant(t, m)

	assert.Equal(t, -1, k.MutexDestroy(id), "held mutex must not be destroyed")
	assert.Equal(t, 0, k.MutexUnlock(id))
	checkMutexInvariant(t, m)
	assert.Equal(t, 0, k.MutexDestroy(id))
}

func TestMutexUnlockUnheldIsNoop(t *testing.T) {
	k := newTestKernel(t, nil)
	id := k.MutexInit()
	assert.Equal(t, 0, k.MutexUnlock(id))
}

// Scenario: A locks, then sleeps one second. B blocks on the lock. A's
// sleep elapses, A unlocks, and the mutex hands over to B within the same
// kernel entry with B observing a lock return of 1.
func TestMutexContention(t *testing.T) {
	k := newTestKernel(t, nil)
	a := k.Create(0, "a", ProcUser)
	b := k.Create(0, "b", ProcUser)

	runUntilActive(t, k, a)
	id := int32(k.MutexInit())
	require.GreaterOrEqual(t, id, int32(0))

	require.Equal(t, 1, syscall(k, SyscallMutexLock, uint32(id), 0, 0))
	t0 := k.Ticks()
	syscall(k, SyscallProcSleep, 1, 0, 0)

	runUntilActive(t, k, b)
	syscall(k, SyscallMutexLock, uint32(id), 0, 0)
	pb := k.PidToProc(b)
	assert.Equal(t, StateWaiting, pb.State())
	checkMutexInvariant(t, &k.mutexes[id])

	// A wakes no earlier than one second of ticks after the sleep call.
	pa := k.PidToProc(a)
	for pa.State() == StateSleeping {
		tick(k)
	}
	assert.Equal(t, t0+1*TicksPerSecond, k.Ticks())

	runUntilActive(t, k, a)
	assert.Equal(t, 1, syscall(k, SyscallMutexUnlock, uint32(id), 0, 0))

	m := &k.mutexes[id]
	assert.Equal(t, b, m.owner.PID(), "head waiter takes ownership on unlock")
	assert.Equal(t, StateIdle, pb.State())
	assert.Equal(t, uint32(1), pb.Trapframe().EAX,
		"the blocked locker resumes observing 1")
	checkMutexInvariant(t, m)
}

// FIFO wait: three blocked lockers are handed the mutex in blocking order.
func TestMutexFIFOHandoff(t *testing.T) {
	k := newTestKernel(t, nil)
	owner := k.Create(0, "owner", ProcUser)
	w1 := k.Create(0, "w1", ProcUser)
	w2 := k.Create(0, "w2", ProcUser)
	w3 := k.Create(0, "w3", ProcUser)

	runUntilActive(t, k, owner)
	id := k.MutexInit()
	require.Equal(t, 1, k.MutexLock(id))

	for _, w := range []int{w1, w2, w3} {
		runUntilActive(t, k, w)
		syscall(k, SyscallMutexLock, uint32(id), 0, 0)
		require.Equal(t, StateWaiting, k.PidToProc(w).State())
	}

	m := &k.mutexes[id]
	for _, want := range []int{w1, w2, w3} {
		runUntilActive(t, k, m.owner.PID())
		require.Equal(t, 1, k.MutexUnlock(id))
		assert.Equal(t, want, m.owner.PID())
		checkMutexInvariant(t, m)
	}
	require.Equal(t, 0, k.MutexUnlock(id))
	assert.Nil(t, m.owner)
}

func TestMutexDestroyedWaiterNeverWoken(t *testing.T) {
	k := newTestKernel(t, nil)
	owner := k.Create(0, "owner", ProcUser)
	w := k.Create(0, "w", ProcUser)

	runUntilActive(t, k, owner)
	id := k.MutexInit()
	require.Equal(t, 1, k.MutexLock(id))

	runUntilActive(t, k, w)
	syscall(k, SyscallMutexLock, uint32(id), 0, 0)
	require.Equal(t, 0, k.Destroy(w))

	runUntilActive(t, k, owner)
	assert.Equal(t, 0, k.MutexUnlock(id))
	assert.Nil(t, k.mutexes[id].owner, "a destroyed waiter must not take ownership")
}
