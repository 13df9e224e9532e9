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
	"sync/atomic"
	"unsafe"
)

// Metadata blocks are overlaid onto shared memory, so the header
// structs below are ABI: field order, widths and padding must never
// change. Every cross-party field is accessed through sync/atomic,
// which on Go's supported architectures gives loads acquire semantics
// and stores release semantics. A reader that observes a store
// therefore also observes every write that preceded it.

// Status is the cleanliness state of a term partition.
type Status int32

const (
	// StatusClean means the partition holds only zeroed bytes and may
	// be activated by a rotation.
	StatusClean Status = 0

	// StatusNeedsCleaning means the partition holds bytes from a
	// previous term and must be zeroed before reuse.
	StatusNeedsCleaning Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusNeedsCleaning:
		return "needs-cleaning"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

const (
	highWaterMarkOffset = 0
	tailCounterOffset   = CacheLineLength
	statusOffset        = CacheLineLength + 4
	initialTermIDOffset = 0
	activeTermIDOffset  = 4
)

// termMetaHeader is the layout of one term metadata block. The producer
// counters live on their own cache lines away from the frequently read
// status word.
type termMetaHeader struct {
	highWaterMark int32                     // 0x00: highest byte offset claimed
	_             [CacheLineLength - 4]byte // pad to 0x40
	tailCounter   int32                     // 0x40: next byte offset to claim
	status        int32                     // 0x44: Status word
	_             [CacheLineLength - 8]byte // pad to 0x80
}

// logMetaHeader is the layout of the log metadata block.
type logMetaHeader struct {
	initialTermID int32                     // 0x00: fixed at stream start
	activeTermID  int32                     // 0x04: advanced by rotation
	_             [CacheLineLength - 8]byte // pad to 0x40
}

func init() {
	// The overlay structs must match the layout constants exactly or
	// every process attached to a log would disagree about where the
	// fields live.
	if s := unsafe.Sizeof(termMetaHeader{}); s != TermMetaLength {
		panic(fmt.Sprintf("logbuffer: termMetaHeader size %d, want %d", s, TermMetaLength))
	}
	if s := unsafe.Sizeof(logMetaHeader{}); s != LogMetaLength {
		panic(fmt.Sprintf("logbuffer: logMetaHeader size %d, want %d", s, LogMetaLength))
	}
	if o := unsafe.Offsetof(termMetaHeader{}.highWaterMark); o != highWaterMarkOffset {
		panic(fmt.Sprintf("logbuffer: highWaterMark offset %d, want %d", o, highWaterMarkOffset))
	}
	if o := unsafe.Offsetof(termMetaHeader{}.tailCounter); o != tailCounterOffset {
		panic(fmt.Sprintf("logbuffer: tailCounter offset %d, want %d", o, tailCounterOffset))
	}
	if o := unsafe.Offsetof(termMetaHeader{}.status); o != statusOffset {
		panic(fmt.Sprintf("logbuffer: status offset %d, want %d", o, statusOffset))
	}
	if o := unsafe.Offsetof(logMetaHeader{}.initialTermID); o != initialTermIDOffset {
		panic(fmt.Sprintf("logbuffer: initialTermID offset %d, want %d", o, initialTermIDOffset))
	}
	if o := unsafe.Offsetof(logMetaHeader{}.activeTermID); o != activeTermIDOffset {
		panic(fmt.Sprintf("logbuffer: activeTermID offset %d, want %d", o, activeTermIDOffset))
	}
}

// TermMeta is a view over one term metadata block. It holds the backing
// bytes, not a Go pointer into them, so an unmapped region is not kept
// alive by a stale view.
type TermMeta struct {
	region []byte
}

// NewTermMeta wraps a term metadata region after validating it.
func NewTermMeta(region []byte) (*TermMeta, error) {
	if err := CheckTermMetaRegion(region); err != nil {
		return nil, err
	}
	return &TermMeta{region: region}, nil
}

func (m *TermMeta) hdr() *termMetaHeader {
	return (*termMetaHeader)(unsafe.Pointer(&m.region[0]))
}

// Tail returns the next byte offset the producer will claim.
func (m *TermMeta) Tail() int32 {
	return atomic.LoadInt32(&m.hdr().tailCounter)
}

// HighWaterMark returns the highest byte offset claimed in the term.
func (m *TermMeta) HighWaterMark() int32 {
	return atomic.LoadInt32(&m.hdr().highWaterMark)
}

// Status returns the cleanliness state of the partition.
func (m *TermMeta) Status() Status {
	return Status(atomic.LoadInt32(&m.hdr().status))
}

// SetStatus publishes a new cleanliness state. The store has release
// semantics, so marking a partition StatusClean publishes the zeroing
// and counter resets that preceded it.
func (m *TermMeta) SetStatus(s Status) {
	atomic.StoreInt32(&m.hdr().status, int32(s))
}

// Reset zeroes the producer counters ahead of partition reuse. Callers
// zero the term data first and publish with SetStatus(StatusClean)
// afterwards.
func (m *TermMeta) Reset() {
	atomic.StoreInt32(&m.hdr().highWaterMark, 0)
	atomic.StoreInt32(&m.hdr().tailCounter, 0)
}

func (m *TermMeta) setTail(v int32) {
	atomic.StoreInt32(&m.hdr().tailCounter, v)
}

func (m *TermMeta) setHighWaterMark(v int32) {
	atomic.StoreInt32(&m.hdr().highWaterMark, v)
}

// LogMeta is a view over the log metadata block.
type LogMeta struct {
	region []byte
}

// NewLogMeta wraps a log metadata region after validating it.
func NewLogMeta(region []byte) (*LogMeta, error) {
	if err := CheckLogMetaRegion(region); err != nil {
		return nil, err
	}
	return &LogMeta{region: region}, nil
}

func (m *LogMeta) hdr() *logMetaHeader {
	return (*logMetaHeader)(unsafe.Pointer(&m.region[0]))
}

// InitialTermID returns the identifier of the stream's first term. It
// is fixed once the stream is initialized.
func (m *LogMeta) InitialTermID() int32 {
	return atomic.LoadInt32(&m.hdr().initialTermID)
}

// SetInitialTermID records the identifier of the stream's first term.
// Called once during stream initialization, before the log is shared.
func (m *LogMeta) SetInitialTermID(v int32) {
	atomic.StoreInt32(&m.hdr().initialTermID, v)
}

// ActiveTermID returns the identifier of the term currently accepting
// appends. The load has acquire semantics, so an attaching party that
// observes a rotated term also observes the partition state the
// rotation published.
func (m *LogMeta) ActiveTermID() int32 {
	return atomic.LoadInt32(&m.hdr().activeTermID)
}

// SetActiveTermID publishes a new active term with release semantics.
func (m *LogMeta) SetActiveTermID(v int32) {
	atomic.StoreInt32(&m.hdr().activeTermID, v)
}

func isAligned4(region []byte) bool {
	return uintptr(unsafe.Pointer(&region[0]))%4 == 0
}
