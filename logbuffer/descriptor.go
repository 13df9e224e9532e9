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
	"math"

	"github.com/paulexy/Aeron/frame"
)

const (
	// PartitionCount is the number of term partitions in a log. One is
	// active, one is the previously active term draining to consumers,
	// and one is kept clean and ready for the next rotation.
	PartitionCount = 3

	// TermMinLength is the smallest permitted term. Two cache lines of
	// metadata per term would dominate anything smaller.
	TermMinLength = 64 * 1024

	// TermMaxLength bounds the term so that positions stay well inside
	// int64 even after billions of rotations.
	TermMaxLength = 1 << 30

	// CacheLineLength is the alignment unit for metadata fields that
	// are written by different parties. Producer-written and
	// consumer-read fields sit on separate lines to avoid false
	// sharing.
	CacheLineLength = 64

	// TermMetaLength is the per-term metadata block:
	//
	//	0x00 highWaterMark int32  // highest byte offset claimed
	//	0x04 _             pad    // to CacheLineLength
	//	0x40 tailCounter   int32  // next byte offset to claim
	//	0x44 status        int32  // StatusClean or StatusNeedsCleaning
	//	0x48 _             pad    // to 2*CacheLineLength
	TermMetaLength = 2 * CacheLineLength

	// LogMetaLength is the stream-wide metadata block:
	//
	//	0x00 initialTermID int32  // fixed at stream start
	//	0x04 activeTermID  int32  // advanced by rotation
	//	0x08 _             pad    // to CacheLineLength
	LogMetaLength = CacheLineLength
)

// LogLayout describes where each region of a log lives, as byte offsets
// from the start of the backing memory. Terms come first so that the
// hot data path begins at offset zero, followed by the per-term
// metadata blocks and finally the log metadata block.
type LogLayout struct {
	TermLength    int32
	TermOffsets   [PartitionCount]int64
	MetaOffsets   [PartitionCount]int64
	LogMetaOffset int64
	TotalLength   int64
}

// ComputeLogLayout computes region offsets for the given term length.
// It fails with ErrInvalidLayout if the term length is out of range or
// not a power of two.
func ComputeLogLayout(termLength int32) (LogLayout, error) {
	if err := CheckTermLength(termLength); err != nil {
		return LogLayout{}, err
	}
	l := LogLayout{TermLength: termLength}
	for i := range l.TermOffsets {
		l.TermOffsets[i] = int64(i) * int64(termLength)
	}
	metaBase := PartitionCount * int64(termLength)
	for i := range l.MetaOffsets {
		l.MetaOffsets[i] = metaBase + int64(i)*TermMetaLength
	}
	l.LogMetaOffset = metaBase + PartitionCount*TermMetaLength
	l.TotalLength = l.LogMetaOffset + LogMetaLength
	return l, nil
}

// ComputeLogLength returns the total backing memory required for a log
// with the given term length: the three terms, their metadata blocks,
// and the log metadata block.
func ComputeLogLength(termLength int32) int64 {
	return PartitionCount*int64(termLength) +
		PartitionCount*TermMetaLength +
		LogMetaLength
}

// ComputeTermLength recovers the term length from a total log length,
// for example the size of an existing backing file. It fails with
// ErrInvalidLayout if no valid term length produces that total.
func ComputeTermLength(logLength int64) (int32, error) {
	termTotal := logLength - PartitionCount*TermMetaLength - LogMetaLength
	if termTotal <= 0 || termTotal%PartitionCount != 0 {
		return 0, fmt.Errorf("%w: log length %d does not fit the log layout", ErrInvalidLayout, logLength)
	}
	termLength := termTotal / PartitionCount
	if termLength > math.MaxInt32 {
		return 0, fmt.Errorf("%w: implied term length %d overflows int32", ErrInvalidLayout, termLength)
	}
	if err := CheckTermLength(int32(termLength)); err != nil {
		return 0, err
	}
	return int32(termLength), nil
}

// CheckTermLength validates a candidate term length: at least
// TermMinLength, at most TermMaxLength, a power of two, and a multiple
// of frame.Alignment so frames never straddle the end of a term.
func CheckTermLength(termLength int32) error {
	if termLength < TermMinLength {
		return fmt.Errorf("%w: term length %d is below the minimum %d", ErrInvalidLayout, termLength, TermMinLength)
	}
	if termLength > TermMaxLength {
		return fmt.Errorf("%w: term length %d exceeds the maximum %d", ErrInvalidLayout, termLength, TermMaxLength)
	}
	if !isPowerOfTwo(int64(termLength)) {
		return fmt.Errorf("%w: term length %d is not a power of two", ErrInvalidLayout, termLength)
	}
	if !frame.IsAligned(termLength) {
		return fmt.Errorf("%w: term length %d is not a multiple of %d", ErrInvalidLayout, termLength, frame.Alignment)
	}
	return nil
}

// CheckTermRegion validates a buffer that is to serve as a term.
func CheckTermRegion(region []byte) error {
	n := len(region)
	if int64(n) > TermMaxLength {
		return fmt.Errorf("%w: term region length %d exceeds the maximum %d", ErrInvalidLayout, n, TermMaxLength)
	}
	return CheckTermLength(int32(n))
}

// CheckTermMetaRegion validates a buffer that is to serve as a term
// metadata block. The fields are accessed atomically, so the region
// must start on at least a 4 byte boundary.
func CheckTermMetaRegion(region []byte) error {
	if len(region) != TermMetaLength {
		return fmt.Errorf("%w: term metadata region length %d, want %d", ErrInvalidLayout, len(region), TermMetaLength)
	}
	if !isAligned4(region) {
		return fmt.Errorf("%w: term metadata region is not 4 byte aligned", ErrInvalidLayout)
	}
	return nil
}

// CheckLogMetaRegion validates a buffer that is to serve as the log
// metadata block.
func CheckLogMetaRegion(region []byte) error {
	if len(region) != LogMetaLength {
		return fmt.Errorf("%w: log metadata region length %d, want %d", ErrInvalidLayout, len(region), LogMetaLength)
	}
	if !isAligned4(region) {
		return fmt.Errorf("%w: log metadata region is not 4 byte aligned", ErrInvalidLayout)
	}
	return nil
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}
