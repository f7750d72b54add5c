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

// scheduler holds the round-robin state: strict-FIFO run and sleep lists of
// pids plus the single active process. A process appears in at most one of
// the lists at any time.
type scheduler struct {
	runQueue   *queue.Queue
	sleepQueue *queue.Queue
	active     *Proc
}

func (k *Kernel) schedulerInit() {
	k.log.info("Initializing scheduler")
	k.sched.runQueue = queue.New(k.cfg.ProcMax)
	k.sched.sleepQueue = queue.New(k.cfg.ProcMax)
	k.sched.active = nil
	if k.RegisterTimer(k.schedulerTimer, 1, -1) < 0 {
		k.Panic("scheduler: unable to register the tick callback")
	}
}

// Active returns the currently scheduled process, or nil between
// scheduler runs.
func (k *Kernel) Active() *Proc {
	return k.sched.active
}

// schedulerTimer runs on every tick: it charges the active process and
// advances every sleeper, waking those whose time has elapsed. The sleep
// list is drained and reinserted in one pass so entries are visited exactly
// once per tick.
func (k *Kernel) schedulerTimer() {
	if k.sched.active != nil {
		k.sched.active.runTime++
		k.sched.active.cpuTime++
	}
	for i, n := 0, k.sched.sleepQueue.Len(); i < n; i++ {
		pid, err := k.sched.sleepQueue.Dequeue()
		if err != nil {
			k.log.err("scheduler: bad sleep queue read")
			break
		}
		p := k.PidToProc(pid)
		if p == nil {
			k.log.err("scheduler: sleeping pid %d has no process", pid)
			continue
		}
		p.sleepTime--
		if p.sleepTime <= 0 {
			k.log.debug("scheduler: pid %d finished sleeping", pid)
			p.sleepTime = 0
			p.state = StateIdle
			k.sched.runQueue.Enqueue(pid) //nolint:errcheck // was just dequeued
		} else {
			k.sched.sleepQueue.Enqueue(pid) //nolint:errcheck // was just dequeued
		}
	}
}

// SchedulerRun selects the process to resume. A process that has consumed
// its timeslice is preempted to the tail of the run queue; when no process
// is active the head of the run queue is taken, falling back to the pid-0
// idle process when the queue is empty. On return the active process is
// non-nil and ACTIVE.
func (k *Kernel) SchedulerRun() {
	if active := k.sched.active; active != nil && active.cpuTime >= k.cfg.Timeslice {
		active.cpuTime = 0
		if active.pid != 0 {
			k.sched.runQueue.Enqueue(active.pid) //nolint:errcheck // sized to the table
		}
		active.state = StateIdle
		k.sched.active = nil
	}

	if k.sched.active == nil {
		next, err := k.sched.runQueue.Dequeue()
		if err != nil {
			next = 0 // nothing runnable: fall back to idle
		}
		k.sched.active = k.PidToProc(next)
		if k.sched.active == nil {
			k.Panic("scheduler: pid %d drawn from the run queue no longer exists", next)
			return
		}
	}

	k.sched.active.state = StateActive
}

// schedulerAdd places a process on the run queue. The process must not
// already be on a scheduler list.
func (k *Kernel) schedulerAdd(p *Proc) {
	k.sched.runQueue.Enqueue(p.pid) //nolint:errcheck // sized to the table
	p.state = StateIdle
}

// schedulerRemove detaches a process from both scheduler lists, and clears
// the active slot if it is the active process so the next SchedulerRun
// selects someone else.
func (k *Kernel) schedulerRemove(p *Proc) {
	k.sched.runQueue.Remove(p.pid)
	k.sched.sleepQueue.Remove(p.pid)
	if k.sched.active != nil && k.sched.active.pid == p.pid {
		k.sched.active = nil
	}
}

// schedulerSleep puts a process to sleep for the given number of seconds.
// The process leaves the run queue (or the active slot) and joins the sleep
// list; a later SchedulerRun picks a replacement.
func (k *Kernel) schedulerSleep(p *Proc, seconds int) {
	p.sleepTime = seconds * TicksPerSecond
	p.state = StateSleeping
	k.sched.runQueue.Remove(p.pid)
	if k.sched.active == p {
		k.sched.active = nil
	}
	// A process that was already sleeping keeps a single entry; the
	// countdown simply restarts.
	k.sched.sleepQueue.Remove(p.pid)
	k.sched.sleepQueue.Enqueue(p.pid) //nolint:errcheck // sized to the table
}

// dropWaiter removes a pid from every allocated mutex and semaphore wait
// queue. Used on destroy so a dead process can never be woken.
func (k *Kernel) dropWaiter(pid int) {
	for i := range k.mutexes {
		if k.mutexes[i].allocated {
			k.mutexes[i].wait.Remove(pid)
		}
	}
	for i := range k.sems {
		if k.sems[i].allocated {
			k.sems[i].wait.Remove(pid)
		}
	}
}
