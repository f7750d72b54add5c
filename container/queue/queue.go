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

package queue

import "github.com/pkg/errors"

var (
	// ErrFull is returned by Enqueue when every slot is occupied.
	ErrFull = errors.New("queue: full")
	// ErrEmpty is returned by Dequeue when no item is queued.
	ErrEmpty = errors.New("queue: empty")
)

// Queue is a fixed-capacity FIFO of small non-negative integers.
// Slots are allocated by one malloc and the queue cannot be resized.
// It backs the kernel's ID allocators, run/sleep lists and wait lists;
// the value -1 is reserved as the empty sentinel and must never be queued.
type Queue struct {
	items []int
	head  int
	tail  int
	size  int
}

// New returns a Queue holding at most capacity items.
func New(capacity int) *Queue {
	return &Queue{items: make([]int, capacity)}
}

// NewAllocator returns a Queue of the given capacity pre-filled with
// the IDs 0..capacity-1, the shape every kernel pool allocator starts from.
func NewAllocator(capacity int) *Queue {
	q := New(capacity)
	for i := 0; i < capacity; i++ {
		q.items[i] = i
	}
	q.size = capacity
	return q
}

// Enqueue appends v at the tail.
func (q *Queue) Enqueue(v int) error {
	if q.size >= len(q.items) {
		return ErrFull
	}
	q.items[q.tail] = v
	q.tail = (q.tail + 1) % len(q.items)
	q.size++
	return nil
}

// Dequeue removes and returns the head item.
// Callers modeling the C ABI treat the error case as -1.
func (q *Queue) Dequeue() (int, error) {
	if q.size == 0 {
		return -1, ErrEmpty
	}
	v := q.items[q.head]
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return v, nil
}

// Remove deletes the first occurrence of v while preserving the order of
// everything else. It rotates the queue through itself once: each item is
// dequeued and either dropped (first match) or reinserted at the tail.
// Reports whether v was found.
func (q *Queue) Remove(v int) bool {
	found := false
	for i, n := 0, q.size; i < n; i++ {
		item, err := q.Dequeue()
		if err != nil {
			return found
		}
		if !found && item == v {
			found = true
			continue
		}
		q.Enqueue(item) //nolint:errcheck // a slot was just freed
	}
	return found
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return q.size
}

// Cap returns the total slot count.
func (q *Queue) Cap() int {
	return len(q.items)
}

// Empty reports whether no items are queued.
func (q *Queue) Empty() bool {
	return q.size == 0
}

// Full reports whether every slot is occupied.
func (q *Queue) Full() bool {
	return q.size == len(q.items)
}
