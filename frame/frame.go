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

// Package frame defines the alignment contract shared by every frame
// written to a term buffer. Encoding and decoding of frame headers is
// left to the layer above; the log buffer itself only needs to know how
// much space a frame of a given length reserves.
package frame

// Alignment is the boundary every frame begins and ends on. Term
// lengths are multiples of this, so a frame can never straddle the end
// of a term.
const Alignment = 32

// Align rounds length up to the next frame boundary. length must be
// non-negative.
func Align(length int32) int32 {
	return (length + Alignment - 1) &^ (Alignment - 1)
}

// IsAligned reports whether length falls on a frame boundary.
func IsAligned(length int32) bool {
	return length&(Alignment-1) == 0
}
