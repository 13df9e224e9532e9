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

import "math/bits"

// A stream position is a monotonically increasing int64 byte count over
// the life of a stream. Because terms are a power of two long, a
// position splits into a term count in the high bits and a term offset
// in the low bits, and the split is pure shift-and-mask arithmetic.

// PositionBitsToShift returns the number of low bits a term offset
// occupies within a position for the given term length. The term length
// must already have passed CheckTermLength.
func PositionBitsToShift(termLength int32) int {
	return bits.TrailingZeros32(uint32(termLength))
}

// ComputePosition returns the stream position of termOffset within the
// term identified by activeTermID.
//
// Term identifiers are int32 values that wrap naturally, so the term
// count is the int32 difference from initialTermID, not a comparison of
// raw values. A stream would have to run through two billion terms
// before the difference itself wrapped.
func ComputePosition(activeTermID, termOffset int32, positionBitsToShift int, initialTermID int32) int64 {
	termCount := int64(activeTermID - initialTermID)
	return (termCount << positionBitsToShift) + int64(termOffset)
}

// TermIDFromPosition recovers the term identifier that contains the
// given position.
func TermIDFromPosition(position int64, positionBitsToShift int, initialTermID int32) int32 {
	return int32(position>>positionBitsToShift) + initialTermID
}

// TermOffsetFromPosition recovers the byte offset within its term of
// the given position.
func TermOffsetFromPosition(position int64, positionBitsToShift int) int32 {
	mask := (int64(1) << positionBitsToShift) - 1
	return int32(position & mask)
}
