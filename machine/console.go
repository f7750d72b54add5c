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

package machine

import (
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
)

// Console renders terminal grids as plain text frames on a writer. Frames
// are copied out of the kernel synchronously and written in the background
// so a slow writer never stalls the simulated machine.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	wg sync.WaitGroup
}

// NewConsole returns a Console writing frames to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Render implements kernel.Display.
func (c *Console) Render(id int, grid []byte, rows, cols int) {
	frame := make([]byte, len(grid))
	copy(frame, grid)
	c.wg.Add(1)
	gopool.Go(func() {
		defer c.wg.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		fmt.Fprintf(c.w, "---- tty %d ----\n", id)
		for y := 0; y < rows; y++ {
			c.w.Write(frame[y*cols : (y+1)*cols]) //nolint:errcheck
			io.WriteString(c.w, "\n")             //nolint:errcheck
		}
	})
}

// Wait blocks until every queued frame has been written.
func (c *Console) Wait() {
	c.wg.Wait()
}
