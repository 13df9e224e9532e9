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
	"testing"

	"github.com/paulexy/Aeron/logbuffer"
)

const testTermLength = 64 * 1024

// makeBuffer assembles a heap-backed log and initializes a stream with
// the given initial term id.
func makeBuffer(t *testing.T, termLength int32, initialTermID int32) *logbuffer.Buffer {
	t.Helper()
	log := make([]byte, logbuffer.ComputeLogLength(termLength))
	regions, err := logbuffer.SliceLog(log)
	if err != nil {
		t.Fatalf("SliceLog: %v", err)
	}
	buf, err := logbuffer.New(regions)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf.InitStream(initialTermID)
	return buf
}

// cleanPartition does what the cleaner agent does: zero the term data,
// reset the counters, then publish the partition as clean.
func cleanPartition(t *testing.T, buf *logbuffer.Buffer, partition int) {
	t.Helper()
	meta := buf.Meta(partition)
	if meta.Status() != logbuffer.StatusNeedsCleaning {
		t.Fatalf("partition %d status = %v, want %v before cleaning",
			partition, meta.Status(), logbuffer.StatusNeedsCleaning)
	}
	term := buf.Term(partition)
	for i := range term {
		term[i] = 0
	}
	meta.Reset()
	meta.SetStatus(logbuffer.StatusClean)
}

// fillTerm appends fixed-size claims until the active term reports
// full, returning the number of claims made.
func fillTerm(t *testing.T, buf *logbuffer.Buffer, claim int32) int {
	t.Helper()
	n := 0
	for {
		_, err := buf.Append(claim)
		if errors.Is(err, logbuffer.ErrTermFull) {
			return n
		}
		if err != nil {
			t.Fatalf("Append(%d): %v", claim, err)
		}
		n++
	}
}
