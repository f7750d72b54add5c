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

// Interrupt vectors. The machine delivers hardware events on the remapped
// PIC range and system calls on the software vector.
const (
	VecTimer    = 0x20
	VecKeyboard = 0x21
	VecSyscall  = 0x80

	irqMax = 0xf0
)

func (k *Kernel) interruptsInit() {
	k.log.info("Initializing interrupts")
	k.irqHandlers = make([]func(), irqMax)
}

// RegisterIRQ installs handler for the given vector. Registering an invalid
// vector or a nil handler is a boot-time programming error and panics.
func (k *Kernel) RegisterIRQ(vector int, handler func()) {
	if vector < 0 || vector >= irqMax {
		k.Panic("interrupts: invalid IRQ %d (0x%02x)", vector, vector)
		return
	}
	if handler == nil {
		k.Panic("interrupts: no handler for IRQ %d (0x%02x)", vector, vector)
		return
	}
	k.irqHandlers[vector] = handler
	k.log.debug("interrupts: IRQ %d (0x%02x) registered", vector, vector)
}

// dispatchIRQ routes a kernel entry to the registered handler.
// An IRQ with no handler is fatal: it means the machine raised a vector the
// kernel never armed.
func (k *Kernel) dispatchIRQ(vector int) {
	if vector < 0 || vector >= irqMax {
		k.Panic("interrupts: invalid IRQ %d (0x%02x)", vector, vector)
		return
	}
	if k.irqHandlers[vector] == nil {
		k.Panic("interrupts: no handler registered for IRQ %d (0x%02x)", vector, vector)
		return
	}
	k.irqHandlers[vector]()
}
