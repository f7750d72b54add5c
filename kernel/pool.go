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

// Every fixed kernel pool (process slots, mutex and semaphore ids, timer
// slots) hands out ids through a pre-filled FIFO, so allocation is first-fit
// and exhaustion surfaces as an empty queue.
type allocator = *queue.Queue

func newAllocator(n int) allocator {
	return queue.NewAllocator(n)
}

func newWaitQueue(n int) *queue.Queue {
	return queue.New(n)
}
