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

// Sem is one entry of the kernel semaphore pool: a counting semaphore with a
// FIFO of blocked pids. A post with waiters transfers the signal directly to
// the head waiter.
type Sem struct {
	allocated bool
	count     int
	wait      *queue.Queue
}

func (k *Kernel) semInit() {
	k.log.info("Initializing kernel semaphores")
	k.sems = make([]Sem, k.cfg.SemMax)
	k.semAlloc = newAllocator(k.cfg.SemMax)
}

func (k *Kernel) sem(id int) *Sem {
	if id < 0 || id >= len(k.sems) {
		return nil
	}
	if !k.sems[id].allocated {
		return nil
	}
	return &k.sems[id]
}

// SemInit allocates a semaphore with the given starting count.
// Returns the semaphore id, or -1 when the count is negative or the pool is
// exhausted.
func (k *Kernel) SemInit(value int) int {
	if value < 0 {
		k.log.err("sem: invalid initial count %d", value)
		return -1
	}
	id, err := k.semAlloc.Dequeue()
	if err != nil {
		k.log.err("sem: unable to allocate a semaphore")
		return -1
	}
	k.sems[id] = Sem{
		allocated: true,
		count:     value,
		wait:      newWaitQueue(k.cfg.ProcMax),
	}
	return id
}

// SemDestroy frees a semaphore back to the pool. Destroying an unallocated
// semaphore, one with a zero count or one with queued waiters fails with -1.
func (k *Kernel) SemDestroy(id int) int {
	s := k.sem(id)
	if s == nil {
		k.log.err("sem: destroy of invalid semaphore %d", id)
		return -1
	}
	if s.count == 0 || !s.wait.Empty() {
		k.log.err("sem: destroy of semaphore %d still in use", id)
		return -1
	}
	s.allocated = false
	k.semAlloc.Enqueue(id) //nolint:errcheck // pool-sized queue
	return 0
}

// SemWait takes one permit. With a positive count it decrements and returns
// the new count. With a zero count the active process blocks: it joins the
// wait queue in WAITING state and leaves the scheduler; the count it
// eventually observes is stored by the post that wakes it.
func (k *Kernel) SemWait(id int) int {
	s := k.sem(id)
	if s == nil {
		k.log.err("sem: wait on invalid semaphore %d", id)
		return -1
	}
	if s.count == 0 {
		p := k.sched.active
		p.state = StateWaiting
		s.wait.Enqueue(p.pid) //nolint:errcheck // sized to the table
		k.schedulerRemove(p)
		return 0
	}
	s.count--
	return s.count
}

// SemPost releases one permit. With waiters queued the permit transfers to
// the head waiter: it is rescheduled, the count returns to its pre-post
// value, and the waiter's wait return value is set to the count it wakes to.
func (k *Kernel) SemPost(id int) int {
	s := k.sem(id)
	if s == nil {
		k.log.err("sem: post to invalid semaphore %d", id)
		return -1
	}
	s.count++
	if s.wait.Empty() {
		return s.count
	}
	pid, err := s.wait.Dequeue()
	if err != nil {
		k.log.err("sem: wait queue read failure on %d", id)
		return -1
	}
	w := k.PidToProc(pid)
	if w == nil {
		k.log.err("sem: waiter pid %d on semaphore %d no longer exists", pid, id)
		return s.count
	}
	k.schedulerAdd(w)
	s.count--
	w.tf.EAX = uint32(s.count)
	return s.count
}
