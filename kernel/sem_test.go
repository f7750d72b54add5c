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

func TestSemInitDestroy(t *testing.T) {
	k := newTestKernel(t, nil)
	id := k.SemInit(2)
	require.GreaterOrEqual(t, id, 0)
	assert.Equal(t, 0, k.SemDestroy(id))
	assert.Equal(t, -1, k.SemDestroy(id))
	assert.Equal(t, -1, k.SemWait(id), "freed id must be invalid")
	assert.Equal(t, -1, k.SemInit(-1), "negative initial count")
	assert.Equal(t, -1, k.SemPost(-1))
	assert.Equal(t, -1, k.SemPost(k.cfg.SemMax))
}

func TestSemCountedWaits(t *testing.T) {
	k := newTestKernel(t, nil)
	k.Create(0, "w", ProcUser)
	id := k.SemInit(3)
	assert.Equal(t, 2, k.SemWait(id))
	assert.Equal(t, 1, k.SemWait(id))
	assert.Equal(t, 0, k.SemWait(id))
	assert.Equal(t, 1, k.SemPost(id))
	assert.Equal(t, 2, k.SemPost(id))
}

func TestSemDestroyInUse(t *testing.T) {
	k := newTestKernel(t, nil)
	id := k.SemInit(0)
	assert.Equal(t, -1, k.SemDestroy(id), "zero count reads as still in use")

	id2 := k.SemInit(1)
	assert.Equal(t, 0, k.SemDestroy(id2))
}

func TestSemDestroyWithWaiters(t *testing.T) {
	k := newTestKernel(t, nil)
	a := k.Create(0, "a", ProcUser)
	id := k.SemInit(1)

	runUntilActive(t, k, a)
	require.Equal(t, 0, k.SemWait(id))
	syscall(k, SyscallSemWait, uint32(id), 0, 0) // blocks: count is 0
	require.Equal(t, StateWaiting, k.PidToProc(a).State())

	assert.Equal(t, -1, k.SemDestroy(id), "waiters must block destroy")
	k.SemPost(id)
}

// Scenario: a consumer blocks on an empty semaphore; one post transfers the
// permit directly, waking the consumer to a count of zero. Posts with no
// waiter accumulate, and later waits drain them.
func TestSemProducerConsumer(t *testing.T) {
	k := newTestKernel(t, nil)
	consumer := k.Create(0, "consumer", ProcUser)
	producer := k.Create(0, "producer", ProcUser)

	id := k.SemInit(0)
	require.GreaterOrEqual(t, id, 0)

	runUntilActive(t, k, consumer)
	syscall(k, SyscallSemWait, uint32(id), 0, 0)
	pc := k.PidToProc(consumer)
	require.Equal(t, StateWaiting, pc.State())

	runUntilActive(t, k, producer)
	assert.Equal(t, 0, syscall(k, SyscallSemPost, uint32(id), 0, 0))
	assert.Equal(t, StateIdle, pc.State(), "the post reschedules the waiter")
	assert.Equal(t, uint32(0), pc.Trapframe().EAX,
		"the consumer observes the post-handoff count")

	// Three more posts with no waiter queued.
	assert.Equal(t, 1, syscall(k, SyscallSemPost, uint32(id), 0, 0))
	assert.Equal(t, 2, syscall(k, SyscallSemPost, uint32(id), 0, 0))
	assert.Equal(t, 3, syscall(k, SyscallSemPost, uint32(id), 0, 0))

	// A subsequent wait consumes a permit without blocking.
	assert.Equal(t, 2, syscall(k, SyscallSemWait, uint32(id), 0, 0))
}

func TestSemFIFOWakeOrder(t *testing.T) {
	k := newTestKernel(t, nil)
	var waiters []int
	for i := 0; i < 3; i++ {
		waiters = append(waiters, k.Create(0, "w", ProcUser))
	}
	poster := k.Create(0, "poster", ProcUser)
	id := k.SemInit(0)

	for _, w := range waiters {
		runUntilActive(t, k, w)
		syscall(k, SyscallSemWait, uint32(id), 0, 0)
		require.Equal(t, StateWaiting, k.PidToProc(w).State())
	}

	runUntilActive(t, k, poster)
	for _, want := range waiters {
		k.SemPost(id)
		p := k.PidToProc(want)
		assert.Equal(t, StateIdle, p.State(), "waiters wake in blocking order")
	}
}

// Conservation over a mixed run: count + completed waits = initial + posts.
func TestSemConservation(t *testing.T) {
	k := newTestKernel(t, nil)
	k.Create(0, "w", ProcUser)
	const initial = 2
	id := k.SemInit(initial)

	posts, waits := 0, 0
	post := func() {
		require.GreaterOrEqual(t, k.SemPost(id), 0)
		posts++
	}
	wait := func() {
		require.GreaterOrEqual(t, k.SemWait(id), 0)
		waits++
	}

	wait()
	post()
	post()
	wait()
	wait()
	post()

	assert.Equal(t, initial+posts, k.sems[id].count+waits)
}

func TestSemDestroyedWaiterNeverWoken(t *testing.T) {
	k := newTestKernel(t, nil)
	w := k.Create(0, "w", ProcUser)
	id := k.SemInit(0)

	runUntilActive(t, k, w)
	syscall(k, SyscallSemWait, uint32(id), 0, 0)
	require.Equal(t, 0, k.Destroy(w))

	assert.Equal(t, 1, k.SemPost(id), "no waiter remains, the permit accumulates")
	assert.Equal(t, 1, k.sems[id].count)
}
