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

// Memory resolves user-space addresses for the pointer-carrying system
// calls. The machine backs it with its flat user arena; the kernel reads and
// writes user buffers through the returned slice, never through raw
// pointers.
type Memory interface {
	// Bytes returns the n bytes of user memory starting at addr, or an
	// error when the range is not mapped.
	Bytes(addr, n uint32) ([]byte, error)
}

// userBytes resolves a user buffer, surfacing failures as a nil slice.
func (k *Kernel) userBytes(addr, n uint32) []byte {
	if k.mem == nil {
		k.log.err("mem: no user memory attached")
		return nil
	}
	buf, err := k.mem.Bytes(addr, n)
	if err != nil {
		k.log.err("mem: bad user range addr=%#x n=%d: %v", addr, n, err)
		return nil
	}
	return buf
}
