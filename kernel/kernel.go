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

// Package kernel implements the core concurrency layer of a small preemptive
// operating system for a simulated 32-bit PC-class machine: a fixed-capacity
// process table with a round-robin scheduler, a software-interrupt syscall
// dispatcher, blocking mutexes and counting semaphores with FIFO wait queues,
// per-process byte I/O bound to virtual terminals, and sleep/wake accounting.
//
// The kernel is single-threaded. Every hardware or software event enters
// through ContextEnter, which parks the incoming trap frame on the active
// process, dispatches the IRQ handler, runs the scheduler and returns the
// trap frame of the (possibly different) process to resume. All tables are
// fixed pools sized at boot; nothing grows at runtime.
package kernel

import (
	"io"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Pool sizes and machine constants. Per-process limits are compile-time
// constants so the PCB layout never varies; pool counts are configurable.
const (
	ProcStackSize = 8192 // per-process stack bytes
	ProcNameLen   = 32   // process name bytes, including the terminator
	ProcIOMax     = 4    // I/O slots per process

	ProcIOIn  = 0 // io slot attached to the terminal input buffer
	ProcIOOut = 1 // io slot attached to the terminal output buffer

	TicksPerSecond = 100 // periodic timer rate

	ttyRefreshInterval = 50 // ticks between display refreshes
)

// Config carries the boot-time tunables. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// OSName is returned by the SYS_GET_NAME system call.
	OSName string

	ProcMax   int // process table slots
	MutexMax  int // mutex pool size
	SemMax    int // semaphore pool size
	TimersMax int // timer callback slots
	TTYMax    int // virtual terminals
	TTYRows   int // terminal grid rows
	TTYCols   int // terminal grid columns
	IOBufCap  int // capacity of each terminal input/output ring buffer

	// Timeslice is the number of ticks a process may stay ACTIVE before it
	// is preempted to the tail of the run queue.
	Timeslice int

	// LogLevel is the initial kernel log level.
	LogLevel LogLevel
	// LogOutput receives kernel log messages. Defaults to stderr.
	LogOutput io.Writer

	// Memory resolves user-space buffer addresses for pointer-carrying
	// system calls. Without it those calls fail with -1.
	Memory Memory
	// Display receives the active terminal grid on refresh. May be nil.
	Display Display

	// OnBreak is invoked by a kernel panic before OnExit, mirroring the
	// debugger breakpoint hook. May be nil.
	OnBreak func()
	// OnExit terminates the kernel. The default raises a Go panic so a
	// harness can recover; a real entry point installs os.Exit.
	OnExit func(code int)
}

// DefaultConfig returns the tunables the original machine boots with.
func DefaultConfig() *Config {
	return &Config{
		OSName:    "GroveOS",
		ProcMax:   20,
		MutexMax:  16,
		SemMax:    16,
		TimersMax: 16,
		TTYMax:    8,
		TTYRows:   25,
		TTYCols:   80,
		IOBufCap:  1024,
		Timeslice: 20,
		LogLevel:  LogInfo,
	}
}

// Kernel owns every kernel table: the process table and stacks, the
// scheduler queues, the interrupt and timer tables, the mutex and semaphore
// pools and the terminals. Exactly one kernel context exists; methods must
// not be called concurrently.
type Kernel struct {
	cfg Config

	log *logger

	irqHandlers []func()

	ticks  int
	timers []timerSlot
	// timerAlloc hands out indexes into timers.
	timerAlloc allocator

	procs     []Proc
	stacks    [][]byte
	procAlloc allocator
	nextPID   int

	sched scheduler

	mutexes    []Mutex
	mutexAlloc allocator

	sems     []Sem
	semAlloc allocator

	ttys      []TTY
	activeTTY *TTY

	mem     Memory
	display Display

	onBreak func()
	onExit  func(int)
}

// New boots a kernel: drivers first (interrupts, timers, terminals,
// syscalls), then the synchronization pools, then process management, which
// creates the pid-0 idle process and runs the scheduler once so an active
// process exists before the first interrupt.
func New(cfg *Config) *Kernel {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	k := &Kernel{
		cfg:     *cfg,
		mem:     cfg.Memory,
		display: cfg.Display,
		onBreak: cfg.OnBreak,
		onExit:  cfg.OnExit,
	}
	k.log = newLogger(cfg.LogOutput, cfg.LogLevel)
	k.log.info("Welcome to %s!", k.cfg.OSName)
	k.log.info("Initializing kernel...")

	k.interruptsInit()
	k.timerInit()
	k.ttyInit()
	k.syscallInit()
	k.mutexInit()
	k.semInit()
	k.schedulerInit()
	k.procInit()
	return k
}

// ContextEnter is the common kernel entry. It saves the incoming trap frame
// on the active process, dispatches the vector's IRQ handler, runs the
// scheduler and returns the trap frame of the process to restore.
func (k *Kernel) ContextEnter(tf *Trapframe) *Trapframe {
	if tf == nil {
		k.Panic("kernel entry with no trap frame")
		return nil
	}
	if k.sched.active != nil {
		k.sched.active.tf = tf
	}
	k.dispatchIRQ(int(tf.Interrupt))
	k.SchedulerRun()
	if k.sched.active == nil {
		k.Panic("scheduler selected no process, not even idle")
		return nil
	}
	return k.sched.active.tf
}

// Exit shuts the kernel down through the exit hook.
func (k *Kernel) Exit() {
	k.log.info("Exiting %s...", k.cfg.OSName)
	k.exit(0)
}

// OSName returns the configured operating system name.
func (k *Kernel) OSName() string {
	return k.cfg.OSName
}

// Ticks returns the number of timer ticks since boot.
func (k *Kernel) Ticks() int {
	return k.ticks
}

// SetMemory installs the user-memory resolver after boot.
func (k *Kernel) SetMemory(m Memory) {
	k.mem = m
}

// SetDisplay installs the display sink after boot.
func (k *Kernel) SetDisplay(d Display) {
	k.display = d
}

func (k *Kernel) exit(code int) {
	if k.onExit != nil {
		k.onExit(code)
		return
	}
	panic(kernelExit{code: code})
}

// kernelExit is the payload of the default exit hook.
type kernelExit struct {
	code int
}

func bootBytes(n int) []byte {
	return dirtmake.Bytes(n, n)
}
