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

import "github.com/groveos/grove/container/queue"

// Mutex is one entry of the kernel mutex pool. Not recursive: a held mutex
// blocks every subsequent locker, including its owner. Ownership invariant:
// locks == 0 exactly when owner is nil, and locks never exceeds 1.
type Mutex struct {
	allocated bool
	locks     int
	owner     *Proc
	wait      *queue.Queue // FIFO of blocked pids
}

func (k *Kernel) mutexInit() {
	k.log.info("Initializing kernel mutexes")
	k.mutexes = make([]Mutex, k.cfg.MutexMax)
	k.mutexAlloc = newAllocator(k.cfg.MutexMax)
}

func (k *Kernel) mutex(id int) *Mutex {
	if id < 0 || id >= len(k.mutexes) {
		return nil
	}
	if !k.mutexes[id].allocated {
		return nil
	}
	return &k.mutexes[id]
}

// MutexInit allocates a mutex from the pool.
// Returns the mutex id, or -1 when the pool is exhausted.
func (k *Kernel) MutexInit() int {
	id, err := k.mutexAlloc.Dequeue()
	if err != nil {
		k.log.err("mutex: unable to allocate a mutex")
		return -1
	}
	k.mutexes[id] = Mutex{
		allocated: true,
		wait:      newWaitQueue(k.cfg.ProcMax),
	}
	k.log.trace("mutex: allocated %d", id)
	return id
}

// MutexDestroy frees an unheld mutex back to the pool.
// Destroying an unallocated or held mutex fails with -1.
func (k *Kernel) MutexDestroy(id int) int {
	m := k.mutex(id)
	if m == nil {
		k.log.err("mutex: destroy of invalid mutex %d", id)
		return -1
	}
	if m.locks > 0 {
		k.log.err("mutex: destroy of held mutex %d (owner pid %d)", id, m.owner.pid)
		return -1
	}
	m.allocated = false
	k.mutexAlloc.Enqueue(id) //nolint:errcheck // pool-sized queue
	return 0
}

// MutexLock acquires the mutex for the active process, or blocks.
// An uncontended lock returns 1 immediately. A contended lock parks the
// caller on the wait queue in WAITING state and removes it from the
// scheduler; the caller executes no further instructions until a later
// unlock hands the mutex over, at which point it observes 1.
func (k *Kernel) MutexLock(id int) int {
	m := k.mutex(id)
	if m == nil {
		k.log.err("mutex: lock of invalid mutex %d", id)
		return -1
	}
	if m.locks > 0 {
		p := k.sched.active
		m.wait.Enqueue(p.pid) //nolint:errcheck // sized to the table
		p.state = StateWaiting
		k.schedulerRemove(p)
		return m.locks
	}
	m.owner = k.sched.active
	m.locks = 1
	return m.locks
}

// MutexUnlock releases one hold on the mutex. With waiters queued, ownership
// transfers directly to the head waiter within this kernel entry: it becomes
// the owner, rejoins the run queue at the tail and will observe 1 as its
// lock return value. Unlocking an unheld mutex is a no-op returning 0.
func (k *Kernel) MutexUnlock(id int) int {
	m := k.mutex(id)
	if m == nil {
		k.log.err("mutex: unlock of invalid mutex %d", id)
		return -1
	}
	if m.locks == 0 {
		return 0
	}
	m.locks--
	if m.locks > 0 {
		return m.locks
	}
	if m.wait.Empty() {
		m.owner = nil
		return m.locks
	}
	pid, err := m.wait.Dequeue()
	if err != nil {
		k.log.err("mutex: wait queue read failure on %d", id)
		return -1
	}
	next := k.PidToProc(pid)
	if next == nil {
		k.log.err("mutex: waiter pid %d on mutex %d no longer exists", pid, id)
		m.owner = nil
		return m.locks
	}
	k.schedulerAdd(next)
	m.owner = next
	m.locks = 1
	// The handoff is the waiter's lock return value.
	next.tf.EAX = 1
	return m.locks
}
