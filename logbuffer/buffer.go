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

package logbuffer

import (
	"fmt"

	"github.com/paulexy/Aeron/frame"
)

// Regions is the set of memory regions a log is assembled from. The
// regions normally come from SliceLog over one contiguous mapping, but
// any buffers satisfying the layout checks work, which keeps tests free
// of mmap.
type Regions struct {
	Terms   [PartitionCount][]byte
	Metas   [PartitionCount][]byte
	LogMeta []byte
}

// Buffer is a view over the regions of one log. It holds no state of
// its own besides the region slices; every counter and identifier lives
// in the shared metadata blocks, so any number of Buffers in any number
// of processes may view the same log.
type Buffer struct {
	terms        [PartitionCount][]byte
	metas        [PartitionCount]*TermMeta
	log          *LogMeta
	termLength   int32
	positionBits int
}

// New assembles a Buffer from validated regions. All three term regions
// must have the same length.
func New(r Regions) (*Buffer, error) {
	termLength := len(r.Terms[0])
	for i, term := range r.Terms {
		if err := CheckTermRegion(term); err != nil {
			return nil, fmt.Errorf("term %d: %w", i, err)
		}
		if len(term) != termLength {
			return nil, fmt.Errorf("%w: term %d length %d differs from term 0 length %d",
				ErrInvalidLayout, i, len(term), termLength)
		}
	}
	b := &Buffer{
		terms:        r.Terms,
		termLength:   int32(termLength),
		positionBits: PositionBitsToShift(int32(termLength)),
	}
	for i, region := range r.Metas {
		meta, err := NewTermMeta(region)
		if err != nil {
			return nil, fmt.Errorf("term metadata %d: %w", i, err)
		}
		b.metas[i] = meta
	}
	log, err := NewLogMeta(r.LogMeta)
	if err != nil {
		return nil, fmt.Errorf("log metadata: %w", err)
	}
	b.log = log
	return b, nil
}

// SliceLog carves one contiguous log mapping into its regions. The
// term length is recovered from the mapping length, so this works on
// any mapping produced with ComputeLogLength.
func SliceLog(log []byte) (Regions, error) {
	termLength, err := ComputeTermLength(int64(len(log)))
	if err != nil {
		return Regions{}, err
	}
	layout, err := ComputeLogLayout(termLength)
	if err != nil {
		return Regions{}, err
	}
	var r Regions
	for i := 0; i < PartitionCount; i++ {
		r.Terms[i] = log[layout.TermOffsets[i] : layout.TermOffsets[i]+int64(termLength)]
		r.Metas[i] = log[layout.MetaOffsets[i] : layout.MetaOffsets[i]+TermMetaLength]
	}
	r.LogMeta = log[layout.LogMetaOffset : layout.LogMetaOffset+LogMetaLength]
	return r, nil
}

// InitStream initializes the log for a new stream: the initial and
// active term identifiers are set to initialTermID, partition counters
// are zeroed and every partition is marked StatusClean. The term data
// itself is not touched; a creator reusing memory must zero it first.
func (b *Buffer) InitStream(initialTermID int32) {
	for _, meta := range b.metas {
		meta.Reset()
		meta.SetStatus(StatusClean)
	}
	b.log.SetInitialTermID(initialTermID)
	b.log.SetActiveTermID(initialTermID)
}

// TermLength returns the length of each term in bytes.
func (b *Buffer) TermLength() int32 {
	return b.termLength
}

// Term returns the data region of the given partition.
func (b *Buffer) Term(partition int) []byte {
	return b.terms[partition]
}

// Meta returns the metadata view of the given partition.
func (b *Buffer) Meta(partition int) *TermMeta {
	return b.metas[partition]
}

// Log returns the log metadata view.
func (b *Buffer) Log() *LogMeta {
	return b.log
}

// ActivePartitionIndex returns the partition currently accepting
// appends.
func (b *Buffer) ActivePartitionIndex() int {
	return PartitionIndex(b.log.InitialTermID(), b.log.ActiveTermID())
}

// Append claims space for a frame of the given length in the active
// term and returns the term offset of the claim. The claim is rounded
// up to frame.Alignment, so consecutive claims always start on frame
// boundaries. When the active term cannot hold the frame Append returns
// ErrTermFull and changes nothing; the caller rotates and retries.
//
// Append never blocks. It is safe against concurrent readers but
// assumes a single appending party, which the shared-memory provider
// enforces with a producer lock.
func (b *Buffer) Append(length int32) (int32, error) {
	if length <= 0 {
		return 0, fmt.Errorf("logbuffer: append length %d must be positive", length)
	}
	aligned := frame.Align(length)
	if aligned > b.termLength {
		return 0, fmt.Errorf("logbuffer: append length %d cannot fit a term of length %d", length, b.termLength)
	}
	meta := b.metas[b.ActivePartitionIndex()]
	tail := meta.Tail()
	newTail := int64(tail) + int64(aligned)
	if newTail > int64(b.termLength) {
		return 0, ErrTermFull
	}
	meta.setTail(int32(newTail))
	meta.setHighWaterMark(int32(newTail))
	return tail, nil
}

// Rotate advances the stream to the next term. The outgoing partition
// is marked StatusNeedsCleaning and the next partition, which must be
// StatusClean, becomes active. If the next partition has not been
// cleaned yet Rotate returns ErrRotationBlocked and changes nothing.
//
// The active term identifier is published last, so a party that
// observes the new term also observes the outgoing partition's status
// change.
func (b *Buffer) Rotate() error {
	initial := b.log.InitialTermID()
	active := b.log.ActiveTermID()
	idx := PartitionIndex(initial, active)
	next := NextPartitionIndex(idx)
	if b.metas[next].Status() != StatusClean {
		return ErrRotationBlocked
	}
	b.metas[idx].SetStatus(StatusNeedsCleaning)
	b.log.SetActiveTermID(active + 1)
	return nil
}

// Position returns the stream position recorded by the given partition:
// the position just past the bytes claimed in the term the partition
// most recently held. For a partition that has not yet held a term this
// is the position at which its first term will begin.
func (b *Buffer) Position(partition int) int64 {
	initial := b.log.InitialTermID()
	active := b.log.ActiveTermID()
	activeIdx := PartitionIndex(initial, active)
	lag := (activeIdx - partition + PartitionCount) % PartitionCount
	termCount := int64(active-initial) - int64(lag)
	if termCount < 0 {
		// Not yet bound; report where its first term will begin.
		termCount += PartitionCount
	}
	return termCount<<b.positionBits + int64(b.metas[partition].Tail())
}

// ProducerPosition returns the stream position of the next append.
func (b *Buffer) ProducerPosition() int64 {
	return b.Position(b.ActivePartitionIndex())
}

// Location maps a stream position to the partition and term offset
// where that position's bytes live. position must be non-negative.
func (b *Buffer) Location(position int64) (partition int, offset int32) {
	initial := b.log.InitialTermID()
	termID := TermIDFromPosition(position, b.positionBits, initial)
	return PartitionIndex(initial, termID), TermOffsetFromPosition(position, b.positionBits)
}
