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

// Package logbuffer implements the shared-memory log underlying a
// message stream: a ring of three fixed-length term buffers through
// which a producer writes an unbounded stream, plus the metadata that
// lets producers, consumers and a cleaner coordinate without locks.
//
// A log is laid out in one contiguous region:
//
//	+-----------------------------+
//	|           Term 0            |
//	+-----------------------------+
//	|           Term 1            |
//	+-----------------------------+
//	|           Term 2            |
//	+-----------------------------+
//	|       Term 0 Metadata       |
//	+-----------------------------+
//	|       Term 1 Metadata       |
//	+-----------------------------+
//	|       Term 2 Metadata       |
//	+-----------------------------+
//	|        Log Metadata         |
//	+-----------------------------+
//
// Terms are a power of two in length, so a stream position maps to a
// term and offset by shift and mask alone. Each term in the stream gets
// a monotonically increasing identifier; the identifier modulo three
// selects the partition that holds it. At any moment one partition is
// active, one is draining the previous term to consumers, and one is
// being zeroed for reuse. The producer appends to the active term until
// it fills, rotates to the next partition, and frees the oldest for
// cleaning. Rotation refuses to reuse a partition that has not been
// cleaned, so a producer can never overwrite bytes a consumer might
// still be reading.
//
// All coordination state lives in the metadata blocks and is accessed
// atomically, so the package works identically over process-private
// memory and over a file mapped into many processes. The companion shm
// package provides the mapped-file plumbing, and the cleaner package a
// background agent that zeroes retired partitions.
package logbuffer
