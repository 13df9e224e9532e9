/*
 *
 * Copyright 2026 Aeron authors.
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
 *
 */

// Package cleaner recycles retired log partitions. After a rotation the
// outgoing partition still holds the previous term's bytes; the cleaner
// zeroes them, resets the partition counters and publishes the
// partition as clean so the producer may rotate onto it again.
package cleaner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/paulexy/Aeron/logbuffer"
)

// DefaultChunkLength is how many bytes are zeroed between rate-limit
// and cancellation checks.
const DefaultChunkLength = 256 * 1024

// Options configures a Cleaner.
type Options struct {
	// ChunkLength bounds the bytes zeroed in one step. Zero means
	// DefaultChunkLength.
	ChunkLength int

	// Limiter caps the zeroing bandwidth in bytes per second. The
	// limiter's burst must be at least ChunkLength. Nil means no cap.
	Limiter *rate.Limiter

	// Metrics receives counters for cleaned partitions and zeroed
	// bytes. Nil disables instrumentation.
	Metrics *Metrics
}

// Cleaner zeroes retired partitions of one log buffer. A log has at
// most one cleaner; the shared-memory provider enforces this with the
// cleaner role lock.
type Cleaner struct {
	buf     *logbuffer.Buffer
	chunk   int
	limiter *rate.Limiter
	metrics *Metrics
}

// New returns a Cleaner over buf.
func New(buf *logbuffer.Buffer, opts Options) *Cleaner {
	chunk := opts.ChunkLength
	if chunk <= 0 {
		chunk = DefaultChunkLength
	}
	return &Cleaner{
		buf:     buf,
		chunk:   chunk,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
	}
}

// Scan cleans every partition currently marked for cleaning and returns
// how many it cleaned. A scan that finds nothing to do returns (0, nil)
// immediately, so callers may poll it tightly.
func (c *Cleaner) Scan(ctx context.Context) (int, error) {
	start := time.Now()
	cleaned := 0
	for i := 0; i < logbuffer.PartitionCount; i++ {
		if c.buf.Meta(i).Status() != logbuffer.StatusNeedsCleaning {
			continue
		}
		if err := c.cleanPartition(ctx, i); err != nil {
			return cleaned, err
		}
		cleaned++
	}
	if c.metrics != nil {
		c.metrics.observeScan(time.Since(start))
		c.metrics.setBacklog(c.Backlog())
	}
	return cleaned, nil
}

// Backlog returns how many partitions currently await cleaning.
func (c *Cleaner) Backlog() int {
	n := 0
	for i := 0; i < logbuffer.PartitionCount; i++ {
		if c.buf.Meta(i).Status() == logbuffer.StatusNeedsCleaning {
			n++
		}
	}
	return n
}

// cleanPartition zeroes one partition and publishes it clean. The
// partition stays marked needs-cleaning for the duration, so the
// producer cannot rotate onto a half-zeroed term.
func (c *Cleaner) cleanPartition(ctx context.Context, partition int) error {
	term := c.buf.Term(partition)
	for off := 0; off < len(term); off += c.chunk {
		end := off + c.chunk
		if end > len(term) {
			end = len(term)
		}
		if c.limiter != nil {
			if err := c.limiter.WaitN(ctx, end-off); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		clear(term[off:end])
	}

	meta := c.buf.Meta(partition)
	meta.Reset()
	meta.SetStatus(logbuffer.StatusClean)
	if c.metrics != nil {
		c.metrics.observeCleaned(len(term))
	}
	return nil
}
