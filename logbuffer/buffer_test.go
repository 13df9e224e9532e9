/*
 *
 * Copyright 2025 Aeron authors.
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

package logbuffer_test

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/paulexy/Aeron/frame"
	"github.com/paulexy/Aeron/logbuffer"
)

func TestNewRejectsBadRegions(t *testing.T) {
	good := func() logbuffer.Regions {
		regions, err := logbuffer.SliceLog(make([]byte, logbuffer.ComputeLogLength(testTermLength)))
		if err != nil {
			t.Fatalf("SliceLog: %v", err)
		}
		return regions
	}

	tests := []struct {
		name   string
		mutate func(*logbuffer.Regions)
	}{
		{"short term", func(r *logbuffer.Regions) { r.Terms[1] = make([]byte, 1024) }},
		{"mismatched term lengths", func(r *logbuffer.Regions) { r.Terms[2] = make([]byte, 2*testTermLength) }},
		{"non power of two term", func(r *logbuffer.Regions) {
			for i := range r.Terms {
				r.Terms[i] = make([]byte, 100000)
			}
		}},
		{"short term metadata", func(r *logbuffer.Regions) { r.Metas[0] = make([]byte, 64) }},
		{"oversized term metadata", func(r *logbuffer.Regions) { r.Metas[2] = make([]byte, 256) }},
		{"short log metadata", func(r *logbuffer.Regions) { r.LogMeta = make([]byte, 32) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions := good()
			tt.mutate(&regions)
			if _, err := logbuffer.New(regions); !errors.Is(err, logbuffer.ErrInvalidLayout) {
				t.Errorf("New = %v, want ErrInvalidLayout", err)
			}
		})
	}

	if _, err := logbuffer.New(good()); err != nil {
		t.Errorf("New on valid regions: %v", err)
	}
}

func TestSliceLogRejectsBadLength(t *testing.T) {
	for _, n := range []int64{0, 100, 3 * testTermLength, logbuffer.ComputeLogLength(testTermLength) - 1} {
		if _, err := logbuffer.SliceLog(make([]byte, n)); !errors.Is(err, logbuffer.ErrInvalidLayout) {
			t.Errorf("SliceLog(len %d) = %v, want ErrInvalidLayout", n, err)
		}
	}
}

func TestInitStream(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 42)

	if got := buf.Log().InitialTermID(); got != 42 {
		t.Errorf("InitialTermID = %d, want 42", got)
	}
	if got := buf.Log().ActiveTermID(); got != 42 {
		t.Errorf("ActiveTermID = %d, want 42", got)
	}
	if got := buf.ActivePartitionIndex(); got != 0 {
		t.Errorf("ActivePartitionIndex = %d, want 0", got)
	}
	for i := 0; i < logbuffer.PartitionCount; i++ {
		meta := buf.Meta(i)
		if got := meta.Status(); got != logbuffer.StatusClean {
			t.Errorf("partition %d status = %v, want clean", i, got)
		}
		if got := meta.Tail(); got != 0 {
			t.Errorf("partition %d tail = %d, want 0", i, got)
		}
		if got := meta.HighWaterMark(); got != 0 {
			t.Errorf("partition %d high-water mark = %d, want 0", i, got)
		}
	}
	if got := buf.ProducerPosition(); got != 0 {
		t.Errorf("ProducerPosition = %d, want 0", got)
	}
}

func TestAppendClaims(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	offset, err := buf.Append(100)
	if err != nil {
		t.Fatalf("Append(100): %v", err)
	}
	if offset != 0 {
		t.Errorf("first claim offset = %d, want 0", offset)
	}
	meta := buf.Meta(0)
	if got, want := meta.Tail(), frame.Align(100); got != want {
		t.Errorf("tail after claim = %d, want %d", got, want)
	}
	if got, want := meta.HighWaterMark(), frame.Align(100); got != want {
		t.Errorf("high-water mark after claim = %d, want %d", got, want)
	}

	offset, err = buf.Append(100)
	if err != nil {
		t.Fatalf("Append(100): %v", err)
	}
	if want := frame.Align(100); offset != want {
		t.Errorf("second claim offset = %d, want %d", offset, want)
	}

	offset, err = buf.Append(frame.Alignment)
	if err != nil {
		t.Fatalf("Append(%d): %v", frame.Alignment, err)
	}
	if want := 2 * frame.Align(100); offset != want {
		t.Errorf("third claim offset = %d, want %d", offset, want)
	}
	if got, want := buf.ProducerPosition(), int64(2*frame.Align(100)+frame.Alignment); got != want {
		t.Errorf("ProducerPosition = %d, want %d", got, want)
	}
}

func TestAppendRejectsBadLengths(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	for _, length := range []int32{0, -1, -100} {
		if _, err := buf.Append(length); err == nil {
			t.Errorf("Append(%d) succeeded, want error", length)
		} else if errors.Is(err, logbuffer.ErrTermFull) {
			t.Errorf("Append(%d) = ErrTermFull, want argument error", length)
		}
	}

	// A frame that can never fit any term is an argument error, not a
	// full term.
	if _, err := buf.Append(testTermLength + 1); err == nil || errors.Is(err, logbuffer.ErrTermFull) {
		t.Errorf("Append(term+1) = %v, want argument error", err)
	}
	if got := buf.Meta(0).Tail(); got != 0 {
		t.Errorf("tail moved to %d on rejected appends, want 0", got)
	}

	// A frame of exactly the term length is the largest legal claim.
	offset, err := buf.Append(testTermLength)
	if err != nil {
		t.Fatalf("Append(termLength): %v", err)
	}
	if offset != 0 {
		t.Errorf("whole-term claim offset = %d, want 0", offset)
	}
}

func TestAppendTermFull(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	if _, err := buf.Append(testTermLength); err != nil {
		t.Fatalf("Append(termLength): %v", err)
	}
	_, err := buf.Append(frame.Alignment)
	if !errors.Is(err, logbuffer.ErrTermFull) {
		t.Fatalf("Append on full term = %v, want ErrTermFull", err)
	}

	// A refused append changes nothing.
	meta := buf.Meta(0)
	if got := meta.Tail(); got != testTermLength {
		t.Errorf("tail = %d after refusal, want %d", got, testTermLength)
	}
	if got := meta.HighWaterMark(); got != testTermLength {
		t.Errorf("high-water mark = %d after refusal, want %d", got, testTermLength)
	}
	if got := buf.ActivePartitionIndex(); got != 0 {
		t.Errorf("active partition = %d after refusal, want 0", got)
	}
}

func TestAppendNearBoundary(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	// Claim all but one frame slot, then the last slot, then overflow.
	if _, err := buf.Append(testTermLength - frame.Alignment); err != nil {
		t.Fatalf("Append: %v", err)
	}
	offset, err := buf.Append(1)
	if err != nil {
		t.Fatalf("Append(1) into last slot: %v", err)
	}
	if want := int32(testTermLength - frame.Alignment); offset != want {
		t.Errorf("last slot offset = %d, want %d", offset, want)
	}
	if _, err := buf.Append(1); !errors.Is(err, logbuffer.ErrTermFull) {
		t.Errorf("Append past end = %v, want ErrTermFull", err)
	}
}

func TestRotate(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)
	if _, err := buf.Append(testTermLength); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := buf.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if got := buf.Log().ActiveTermID(); got != 1 {
		t.Errorf("ActiveTermID = %d, want 1", got)
	}
	if got := buf.ActivePartitionIndex(); got != 1 {
		t.Errorf("ActivePartitionIndex = %d, want 1", got)
	}
	if got := buf.Meta(0).Status(); got != logbuffer.StatusNeedsCleaning {
		t.Errorf("outgoing partition status = %v, want needs-cleaning", got)
	}
	// The outgoing counters survive rotation; consumers may still be
	// draining that term.
	if got := buf.Meta(0).Tail(); got != testTermLength {
		t.Errorf("outgoing tail = %d, want %d", got, testTermLength)
	}

	offset, err := buf.Append(100)
	if err != nil {
		t.Fatalf("Append after rotate: %v", err)
	}
	if offset != 0 {
		t.Errorf("first claim in new term offset = %d, want 0", offset)
	}
}

func TestRotateBlocked(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	// Two rotations succeed against the initially clean partitions.
	if err := buf.Rotate(); err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	if err := buf.Rotate(); err != nil {
		t.Fatalf("second Rotate: %v", err)
	}

	// The third would reuse partition 0, which is still dirty.
	err := buf.Rotate()
	if !errors.Is(err, logbuffer.ErrRotationBlocked) {
		t.Fatalf("third Rotate = %v, want ErrRotationBlocked", err)
	}

	// A refused rotation changes nothing.
	if got := buf.Log().ActiveTermID(); got != 2 {
		t.Errorf("ActiveTermID = %d after refusal, want 2", got)
	}
	if got := buf.ActivePartitionIndex(); got != 2 {
		t.Errorf("ActivePartitionIndex = %d after refusal, want 2", got)
	}
	if got := buf.Meta(2).Status(); got != logbuffer.StatusClean {
		t.Errorf("active partition status = %v after refusal, want clean", got)
	}

	// Cleaning partition 0 unblocks the rotation.
	cleanPartition(t, buf, 0)
	if err := buf.Rotate(); err != nil {
		t.Fatalf("Rotate after cleaning: %v", err)
	}
	if got := buf.ActivePartitionIndex(); got != 0 {
		t.Errorf("ActivePartitionIndex = %d, want 0", got)
	}
	if got := buf.Meta(0).Tail(); got != 0 {
		t.Errorf("recycled partition tail = %d, want 0", got)
	}
}

func TestPositionsAcrossRotations(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)
	shift := logbuffer.PositionBitsToShift(testTermLength)

	// Partitions that have not held a term yet report where their first
	// term will begin.
	if got, want := buf.Position(1), int64(1)<<shift; got != want {
		t.Errorf("Position(1) = %d, want %d", got, want)
	}
	if got, want := buf.Position(2), int64(2)<<shift; got != want {
		t.Errorf("Position(2) = %d, want %d", got, want)
	}

	if _, err := buf.Append(testTermLength); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := buf.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := buf.Append(100); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Partition 0 still records the end of term 0.
	if got, want := buf.Position(0), int64(testTermLength); got != want {
		t.Errorf("Position(0) = %d, want %d", got, want)
	}
	// Partition 1 records term 1's claimed bytes.
	if got, want := buf.Position(1), int64(1)<<shift+int64(frame.Align(100)); got != want {
		t.Errorf("Position(1) = %d, want %d", got, want)
	}
	if got := buf.ProducerPosition(); got != buf.Position(1) {
		t.Errorf("ProducerPosition = %d, want %d", got, buf.Position(1))
	}
}

func TestLocation(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	tests := []struct {
		name          string
		position      int64
		wantPartition int
		wantOffset    int32
	}{
		{"origin", 0, 0, 0},
		{"inside first term", 100, 0, 100},
		{"start of second term", 1 << 16, 1, 0},
		{"inside third term", (2 << 16) + 100, 2, 100},
		{"fourth term wraps to partition 0", 3 << 16, 0, 0},
		{"deep into the stream", (7 << 16) + 4096, 1, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partition, offset := buf.Location(tt.position)
			if partition != tt.wantPartition || offset != tt.wantOffset {
				t.Errorf("Location(%d) = (%d, %d), want (%d, %d)",
					tt.position, partition, offset, tt.wantPartition, tt.wantOffset)
			}
		})
	}
}

func TestLocationWithNonzeroInitialTerm(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 5)

	// Stream positions are relative to the initial term, so position 0
	// is term 5 in partition 0.
	partition, offset := buf.Location(0)
	if partition != 0 || offset != 0 {
		t.Errorf("Location(0) = (%d, %d), want (0, 0)", partition, offset)
	}
	partition, offset = buf.Location((1 << 16) + 64)
	if partition != 1 || offset != 64 {
		t.Errorf("Location(term 1 + 64) = (%d, %d), want (1, 64)", partition, offset)
	}
}

func TestStreamThroughManyTerms(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)
	const claim = 1024

	last := int64(-1)
	for term := 0; term < 10; term++ {
		n := fillTerm(t, buf, claim)
		if want := testTermLength / int(frame.Align(claim)); n != want {
			t.Fatalf("term %d accepted %d claims, want %d", term, n, want)
		}
		if pos := buf.ProducerPosition(); pos <= last {
			t.Fatalf("producer position %d did not advance past %d", pos, last)
		} else {
			last = pos
		}

		if err := buf.Rotate(); err != nil {
			oldest := logbuffer.NextPartitionIndex(buf.ActivePartitionIndex())
			if !errors.Is(err, logbuffer.ErrRotationBlocked) {
				t.Fatalf("Rotate: %v", err)
			}
			cleanPartition(t, buf, oldest)
			if err := buf.Rotate(); err != nil {
				t.Fatalf("Rotate after cleaning: %v", err)
			}
		}
	}

	if got, want := buf.Log().ActiveTermID(), int32(10); got != want {
		t.Errorf("ActiveTermID = %d after 10 rotations, want %d", got, want)
	}
	if got, want := buf.ProducerPosition(), int64(10)<<logbuffer.PositionBitsToShift(testTermLength); got != want {
		t.Errorf("ProducerPosition = %d, want %d", got, want)
	}
}

// TestReaderObservesRotation checks the publication contract: a reader
// that sees a new active term also sees the retired partition's final
// counters and status.
func TestReaderObservesRotation(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)

	var g errgroup.Group
	g.Go(func() error {
		for buf.Log().ActiveTermID() == 0 {
			runtime.Gosched()
		}
		meta := buf.Meta(0)
		if got := meta.Tail(); got != testTermLength {
			return fmt.Errorf("observed tail %d after rotation, want %d", got, testTermLength)
		}
		if got := meta.Status(); got != logbuffer.StatusNeedsCleaning {
			return fmt.Errorf("observed status %v after rotation, want needs-cleaning", got)
		}
		return nil
	})

	fillTerm(t, buf, 4096)
	if err := buf.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
}

// TestConcurrentProducerAndCleaner drives a producer through many terms
// while a cleaner races it, the way the two run in separate processes
// over one mapped log.
func TestConcurrentProducerAndCleaner(t *testing.T) {
	buf := makeBuffer(t, testTermLength, 0)
	const terms = 50

	var g errgroup.Group
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		for term := 0; term < terms; term++ {
			for {
				_, err := buf.Append(4000)
				if err == nil {
					continue
				}
				if !errors.Is(err, logbuffer.ErrTermFull) {
					return err
				}
				break
			}
			for {
				err := buf.Rotate()
				if err == nil {
					break
				}
				if !errors.Is(err, logbuffer.ErrRotationBlocked) {
					return err
				}
				runtime.Gosched()
			}
		}
		return nil
	})

	g.Go(func() error {
		for {
			cleaned := false
			for i := 0; i < logbuffer.PartitionCount; i++ {
				meta := buf.Meta(i)
				if meta.Status() != logbuffer.StatusNeedsCleaning {
					continue
				}
				term := buf.Term(i)
				for j := range term {
					term[j] = 0
				}
				meta.Reset()
				meta.SetStatus(logbuffer.StatusClean)
				cleaned = true
			}
			select {
			case <-done:
				if !cleaned {
					return nil
				}
			default:
				if !cleaned {
					runtime.Gosched()
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		t.Fatalf("stream run: %v", err)
	}
	if got, want := buf.Log().ActiveTermID(), int32(terms); got != want {
		t.Errorf("ActiveTermID = %d, want %d", got, want)
	}
}
