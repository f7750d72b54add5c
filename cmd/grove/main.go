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

// Command grove boots the kernel on a simulated machine, attaches a few
// demonstration processes to the virtual terminals and runs for a fixed
// number of ticks.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/groveos/grove/kernel"
	"github.com/groveos/grove/machine"
)

type options struct {
	ticks    int
	logLevel int
	ttys     int
	render   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "grove",
		Short:         "Boot the Grove kernel on a simulated machine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	bindFlags(cmd.Flags(), opts)
	return cmd
}

func bindFlags(fl *pflag.FlagSet, opts *options) {
	fl.IntVar(&opts.ticks, "ticks", 10*kernel.TicksPerSecond, "timer ticks to simulate")
	fl.IntVar(&opts.logLevel, "log-level", int(kernel.LogInfo), "kernel log level (0=none .. 6=all)")
	fl.IntVar(&opts.ttys, "ttys", 4, "number of virtual terminals")
	fl.BoolVar(&opts.render, "render", true, "render the active terminal to stdout")
}

func run(opts *options) error {
	cfg := kernel.DefaultConfig()
	cfg.LogLevel = kernel.LogLevel(opts.logLevel)
	if opts.ttys > 0 {
		cfg.TTYMax = opts.ttys
	}
	cfg.OnExit = os.Exit

	var console *machine.Console
	if opts.render {
		console = machine.NewConsole(os.Stdout)
		cfg.Display = console
	}

	m := machine.New(cfg)
	k := m.Kernel()

	if err := spawnDemos(m); err != nil {
		return err
	}

	m.Run(opts.ticks)

	if console != nil {
		console.Wait()
	}
	dumpProcs(k)
	return nil
}

// spawnDemos creates the demonstration workload: a banner writer on tty 0,
// a sleeper reporting the clock, and a pair of workers handing a mutex back
// and forth.
func spawnDemos(m *machine.Machine) error {
	pid, err := m.Spawn("banner", kernel.ProcUser, progBanner)
	if err != nil {
		return err
	}
	if m.Kernel().AttachTTY(pid, 0) < 0 {
		return errors.Errorf("attach pid %d to tty 0 failed", pid)
	}

	pid, err = m.Spawn("clock", kernel.ProcUser, progClock)
	if err != nil {
		return err
	}
	if m.Kernel().AttachTTY(pid, 0) < 0 {
		return errors.Errorf("attach pid %d to tty 0 failed", pid)
	}

	// The ping/pong pair shares a mutex created by ping on first run.
	mutexID := -1
	ready := false

	ping := func(e *machine.Env) {
		mutexID = e.MutexInit()
		ready = true
		for i := 0; i < 5; i++ {
			e.MutexLock(mutexID)
			e.WriteString(kernel.ProcIOOut, "ping\n")
			e.MutexUnlock(mutexID)
			e.Sleep(1)
		}
	}
	pong := func(e *machine.Env) {
		for !ready {
			e.Yield()
		}
		for i := 0; i < 5; i++ {
			e.MutexLock(mutexID)
			e.WriteString(kernel.ProcIOOut, "pong\n")
			e.MutexUnlock(mutexID)
			e.Sleep(1)
		}
	}

	workers := []struct {
		name string
		fn   machine.Program
	}{{"ping", ping}, {"pong", pong}}
	for _, w := range workers {
		pid, err = m.Spawn(w.name, kernel.ProcUser, w.fn)
		if err != nil {
			return err
		}
		if m.Kernel().AttachTTY(pid, 0) < 0 {
			return errors.Errorf("attach pid %d to tty 0 failed", pid)
		}
	}
	return nil
}

// progBanner greets the terminal and echoes any typed input back.
func progBanner(e *machine.Env) {
	e.WriteString(kernel.ProcIOOut, "Welcome to "+e.OSName()+"\n")
	buf := make([]byte, 64)
	for i := 0; i < 20; i++ {
		n := e.Read(kernel.ProcIOIn, buf)
		if n > 0 {
			e.Write(kernel.ProcIOOut, buf[:n])
		}
		e.Sleep(1)
	}
}

// progClock prints the boot clock once a second.
func progClock(e *machine.Env) {
	for i := 0; i < 8; i++ {
		e.WriteString(kernel.ProcIOOut, fmt.Sprintf("[%s pid=%d] t=%ds\n", e.GetName(), e.GetPid(), e.GetTime()))
		e.Sleep(1)
	}
}

func dumpProcs(k *kernel.Kernel) {
	fmt.Printf("ticks=%d procs:\n", k.Ticks())
	for _, p := range k.Snapshot() {
		fmt.Printf("  pid=%-3d %-12s %-8s %-6s start=%-6d run=%d\n",
			p.PID, p.Name, p.State, p.Type, p.StartTime, p.RunTime)
	}
}
