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

// timerSlot is one entry of the fixed timer table.
type timerSlot struct {
	callback func()
	interval int // ticks between invocations
	repeat   int // invocations remaining; -1 repeats forever
}

func (k *Kernel) timerInit() {
	k.log.info("Initializing timer")
	k.ticks = 0
	k.timers = make([]timerSlot, k.cfg.TimersMax)
	k.timerAlloc = newAllocator(k.cfg.TimersMax)
	k.RegisterIRQ(VecTimer, k.timerIRQ)
}

// RegisterTimer allocates a timer slot invoking callback every interval
// ticks, repeat times (-1 forever). Returns the timer id, or -1 when the
// callback is nil or the table is exhausted.
func (k *Kernel) RegisterTimer(callback func(), interval, repeat int) int {
	if callback == nil {
		k.log.err("timer: invalid callback")
		return -1
	}
	if interval <= 0 {
		k.log.err("timer: invalid interval %d", interval)
		return -1
	}
	id, err := k.timerAlloc.Dequeue()
	if err != nil {
		k.log.err("timer: unable to allocate a timer")
		return -1
	}
	k.timers[id] = timerSlot{callback: callback, interval: interval, repeat: repeat}
	return id
}

// UnregisterTimer releases the timer slot back to the allocator.
func (k *Kernel) UnregisterTimer(id int) int {
	if id < 0 || id >= len(k.timers) {
		k.log.err("timer: callback id out of range: %d", id)
		return -1
	}
	k.timers[id] = timerSlot{}
	if err := k.timerAlloc.Enqueue(id); err != nil {
		k.log.err("timer: unable to return timer entry to allocator")
		return -1
	}
	return 0
}

// timerIRQ handles the periodic hardware timer: it advances the tick count
// and fires every registered callback whose interval divides the new count.
// Counted repeats are decremented and unregistered when they reach zero.
func (k *Kernel) timerIRQ() {
	k.ticks++
	for i := range k.timers {
		t := &k.timers[i]
		if t.callback == nil {
			continue
		}
		if k.ticks%t.interval != 0 {
			continue
		}
		t.callback()
		if t.repeat > 0 {
			t.repeat--
			if t.repeat == 0 {
				k.UnregisterTimer(i)
			}
		}
	}
}
