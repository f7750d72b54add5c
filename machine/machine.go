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

// Package machine hosts the kernel on a simulated PC: it delivers timer and
// keyboard interrupts, backs the kernel's user-memory interface with a flat
// arena, and executes user programs.
//
// Programs are ordinary Go functions run on gated goroutines. A program
// only executes while its process is ACTIVE: every Env call (system call or
// Yield) ends the program's execution window and parks the goroutine until
// the scheduler selects its process again. The machine and at most one
// program are ever running, handing a single token back and forth, so the
// kernel still observes exactly one context at a time.
package machine

import (
	"github.com/pkg/errors"

	"github.com/groveos/grove/kernel"
)

const (
	memSize     = 1 << 20
	memBase     = 0x1000 // addresses below stay unmapped so 0 reads as null
	entryBase   = 0x00400000
	scratchSize = 1024
)

// Program is the body of a user or kernel process. It must reach an Env
// call regularly; each one is the simulator's preemption point. Returning
// from the function exits the process.
type Program func(*Env)

type program struct {
	entry  uint32
	pid    int
	fn     Program
	env    *Env
	resume chan struct{}
	done   chan struct{}

	started bool
	// reaped tells a parked goroutine its process is gone and no window
	// will follow. Set before resume is closed.
	reaped bool
}

// Machine couples one kernel with its simulated hardware.
type Machine struct {
	k *kernel.Kernel

	mem     []byte
	memNext uint32

	nextEntry uint32
	progs     map[uint32]*program
	byPid     map[int]*program

	keys []byte
}

// New boots a kernel configured by cfg on a fresh machine. A nil cfg boots
// the defaults. The machine installs itself as the kernel's user memory and
// registers the keyboard vector.
func New(cfg *kernel.Config) *Machine {
	if cfg == nil {
		cfg = kernel.DefaultConfig()
	}
	m := &Machine{
		mem:       make([]byte, memSize),
		memNext:   memBase,
		nextEntry: entryBase,
		progs:     make(map[uint32]*program),
		byPid:     make(map[int]*program),
	}
	cfg.Memory = m
	m.k = kernel.New(cfg)
	m.k.RegisterIRQ(kernel.VecKeyboard, m.keyboardIRQ)
	return m
}

// Kernel returns the hosted kernel.
func (m *Machine) Kernel() *kernel.Kernel {
	return m.k
}

// Bytes implements kernel.Memory over the flat arena.
func (m *Machine) Bytes(addr, n uint32) ([]byte, error) {
	if addr < memBase {
		return nil, errors.Errorf("machine: null or unmapped address %#x", addr)
	}
	end := uint64(addr) + uint64(n)
	if end > uint64(len(m.mem)) {
		return nil, errors.Errorf("machine: address range %#x+%d out of bounds", addr, n)
	}
	return m.mem[addr:end], nil
}

// Alloc reserves n bytes of user memory and returns its address.
// The arena only grows; user allocations are never released.
func (m *Machine) Alloc(n uint32) (uint32, error) {
	n = (n + 3) &^ 3
	if uint64(m.memNext)+uint64(n) > uint64(len(m.mem)) {
		return 0, errors.New("machine: out of user memory")
	}
	addr := m.memNext
	m.memNext += n
	return addr, nil
}

// Spawn creates a process executing fn and returns its pid.
func (m *Machine) Spawn(name string, typ kernel.ProcType, fn Program) (int, error) {
	entry := m.nextEntry
	m.nextEntry++

	scratch, err := m.Alloc(scratchSize)
	if err != nil {
		return -1, errors.Wrap(err, "machine: spawn")
	}

	pid := m.k.Create(entry, name, typ)
	if pid < 0 {
		return -1, errors.Errorf("machine: spawn %q: process table full", name)
	}

	p := &program{
		entry:  entry,
		pid:    pid,
		fn:     fn,
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.env = &Env{m: m, p: p, scratch: scratch}
	m.progs[entry] = p
	m.byPid[pid] = p
	return pid, nil
}

// Step advances the machine by one timer tick, then gives the active
// process one execution window.
func (m *Machine) Step() {
	m.interrupt(kernel.VecTimer)
	m.window()
	m.reap()
}

// Run advances the machine by the given number of ticks.
func (m *Machine) Run(ticks int) {
	for i := 0; i < ticks; i++ {
		m.Step()
	}
}

// Type feeds decoded characters to the keyboard: the bytes are queued as
// pending scan data and a keyboard interrupt is raised.
func (m *Machine) Type(s string) {
	m.keys = append(m.keys, s...)
	m.interrupt(kernel.VecKeyboard)
}

// interrupt raises a vector against the active process's parked frame and
// enters the kernel, exactly as the hardware entry stub would.
func (m *Machine) interrupt(vector int) {
	active := m.k.Active()
	if active == nil {
		return
	}
	tf := active.Trapframe()
	tf.Interrupt = uint32(vector)
	m.k.ContextEnter(tf)
}

// keyboardIRQ drains pending key bytes into the active terminal. Scan-code
// decoding happens before bytes reach the machine; the kernel only sees
// characters.
func (m *Machine) keyboardIRQ() {
	for _, c := range m.keys {
		m.k.TTYInput(c)
	}
	m.keys = m.keys[:0]
}

// window lets the active process's program run until its next Env call.
// Idle and foreign processes have no program and consume no window.
func (m *Machine) window() {
	active := m.k.Active()
	if active == nil {
		return
	}
	p := m.byPid[active.PID()]
	if p == nil {
		return
	}
	if !p.started {
		p.started = true
		go p.main()
	}
	p.resume <- struct{}{}
	<-p.done
}

// reap releases goroutines whose process was destroyed while parked, e.g.
// by another process or the kernel itself.
func (m *Machine) reap() {
	for pid, p := range m.byPid {
		if m.k.PidToProc(pid) != nil {
			continue
		}
		delete(m.byPid, pid)
		delete(m.progs, p.entry)
		if p.started && !p.reaped {
			p.reaped = true
			close(p.resume)
		}
	}
}

// main is the program goroutine body: it waits for its first window, runs
// the program function, and turns a plain return into a process exit.
func (p *program) main() {
	<-p.resume
	if p.reaped {
		return
	}
	p.fn(p.env)
	p.env.Exit()
}
