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

// ProcState is the scheduling state of a process table slot.
type ProcState uint8

const (
	StateNone     ProcState = iota // slot is free
	StateIdle                      // runnable, not scheduled
	StateActive                    // currently scheduled
	StateSleeping                  // waiting for its sleep time to elapse
	StateWaiting                   // blocked on a mutex or semaphore
)

func (s ProcState) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateSleeping:
		return "SLEEPING"
	case StateWaiting:
		return "WAITING"
	}
	return "UNKNOWN"
}

// ProcType distinguishes kernel from user processes. Informational.
type ProcType uint8

const (
	ProcKernel ProcType = iota + 1
	ProcUser
)

func (t ProcType) String() string {
	switch t {
	case ProcKernel:
		return "kernel"
	case ProcUser:
		return "user"
	}
	return "none"
}

// Proc is a process control block: one slot of the process table.
type Proc struct {
	pid   int
	state ProcState
	typ   ProcType
	name  string

	startTime int // tick count at creation
	runTime   int // total ticks spent ACTIVE
	cpuTime   int // ticks in the current timeslice
	sleepTime int // ticks remaining until wake; valid while SLEEPING

	// io holds non-owning references into terminal ring buffers.
	// Slot 0 is input, slot 1 output; the rest are reserved.
	io [ProcIOMax]*ringbuf.Buf

	slot  int    // index into the process table
	stack []byte // owned fixed-size stack
	tf    *Trapframe
}

// PID returns the process id.
func (p *Proc) PID() int { return p.pid }

// State returns the scheduling state.
func (p *Proc) State() ProcState { return p.state }

// Type returns the process type.
func (p *Proc) Type() ProcType { return p.typ }

// Name returns the process name.
func (p *Proc) Name() string { return p.name }

// RunTime returns the total number of ticks the process has been ACTIVE.
func (p *Proc) RunTime() int { return p.runTime }

// StartTime returns the tick count at which the process was created.
func (p *Proc) StartTime() int { return p.startTime }

// Trapframe returns the parked machine state of the process.
func (p *Proc) Trapframe() *Trapframe { return p.tf }

// IO returns the ring buffer attached to the given io slot, or nil.
func (p *Proc) IO(i int) *ringbuf.Buf {
	if i < 0 || i >= ProcIOMax {
		return nil
	}
	return p.io[i]
}

// procInit builds the process table, pre-allocates every stack as a
// boot-time fixed array, then creates the pid-0 idle process and runs the
// scheduler so an active process exists before the first interrupt.
func (k *Kernel) procInit() {
	k.log.info("Initializing process management")
	k.nextPID = 0
	k.procs = make([]Proc, k.cfg.ProcMax)
	k.stacks = make([][]byte, k.cfg.ProcMax)
	for i := range k.stacks {
		k.stacks[i] = bootBytes(ProcStackSize)
	}
	k.procAlloc = newAllocator(k.cfg.ProcMax)

	if pid := k.Create(0, "idle", ProcKernel); pid != 0 {
		k.Panic("idle process creation failed")
		return
	}
	k.SchedulerRun()
}

// Create allocates a process slot, lays a synthetic trap frame at the top of
// the slot's stack describing a resumable context at entry, and adds the new
// process to the run queue. Returns the new pid, or -1 when the table is
// full.
func (k *Kernel) Create(entry uint32, name string, typ ProcType) int {
	slot, err := k.procAlloc.Dequeue()
	if err != nil {
		k.log.err("proc: no free process slots")
		return -1
	}
	if len(name) >= ProcNameLen {
		name = name[:ProcNameLen-1]
	}

	p := &k.procs[slot]
	*p = Proc{
		pid:       k.nextPID,
		typ:       typ,
		name:      name,
		startTime: k.ticks,
		slot:      slot,
		stack:     k.stacks[slot],
	}
	k.nextPID++

	p.tf = carveTrapframe(p.stack)
	*p.tf = Trapframe{
		EIP:    entry,
		EFLAGS: eflagsDefault | eflagsIntr,
		CS:     KCodeSeg,
		DS:     KDataSeg,
		ES:     KDataSeg,
		FS:     KDataSeg,
		GS:     KDataSeg,
	}

	k.schedulerAdd(p)
	k.log.info("Created process %s (%d) entry=%d", p.name, p.pid, slot)
	return p.pid
}

// Destroy removes a process from the scheduler and every wait queue, clears
// its control block and returns the slot to the allocator. The pid-0 idle
// process cannot be destroyed.
func (k *Kernel) Destroy(pid int) int {
	if pid == 0 {
		k.log.warn("proc: refusing to destroy the idle process")
		return -1
	}
	p := k.PidToProc(pid)
	if p == nil {
		k.log.err("proc: destroy of unknown pid %d", pid)
		return -1
	}

	k.schedulerRemove(p)
	k.dropWaiter(pid)

	slot := p.slot
	stack := p.stack
	*p = Proc{slot: slot, stack: stack}

	if err := k.procAlloc.Enqueue(slot); err != nil {
		k.log.err("proc: process allocator full returning slot %d", slot)
		return -1
	}
	return 0
}

// PidToProc resolves a pid to its control block by scanning the table.
// Returns nil when the pid is unknown or the slot is free.
func (k *Kernel) PidToProc(pid int) *Proc {
	for i := range k.procs {
		if k.procs[i].state != StateNone && k.procs[i].pid == pid {
			return &k.procs[i]
		}
	}
	return nil
}

// EntryToProc resolves a table index to its control block.
// Returns nil for an out-of-range index or a free slot.
func (k *Kernel) EntryToProc(entry int) *Proc {
	if entry < 0 || entry >= len(k.procs) {
		return nil
	}
	if k.procs[entry].state == StateNone {
		return nil
	}
	return &k.procs[entry]
}

// AttachTTY points a process's input and output io slots at the given
// terminal's ring buffers.
func (k *Kernel) AttachTTY(pid, ttyNum int) int {
	p := k.PidToProc(pid)
	tty := k.TTY(ttyNum)
	if p == nil || tty == nil {
		k.log.err("proc: cannot attach pid %d to tty %d", pid, ttyNum)
		return -1
	}
	k.log.debug("proc: attaching pid %d to tty %d", pid, ttyNum)
	p.io[ProcIOIn] = tty.in
	p.io[ProcIOOut] = tty.out
	return 0
}

// Snapshot reports the live process table for status displays.
func (k *Kernel) Snapshot() []ProcInfo {
	var out []ProcInfo
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == StateNone {
			continue
		}
		out = append(out, ProcInfo{
			PID:       p.pid,
			Name:      p.name,
			State:     p.state,
			Type:      p.typ,
			StartTime: p.startTime,
			RunTime:   p.runTime,
		})
	}
	return out
}

// ProcInfo is one row of a process table snapshot.
type ProcInfo struct {
	PID       int
	Name      string
	State     ProcState
	Type      ProcType
	StartTime int
	RunTime   int
}
