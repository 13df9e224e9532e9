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

//go:build linux

package shm

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// randomInitialTermID draws a random initial term identifier for a new
// stream. Randomizing the starting term keeps positions from colliding
// when a log is torn down and recreated under the same name.
func randomInitialTermID() (int32, error) {
	var b [4]byte
	if _, err := unix.Getrandom(b[:], 0); err != nil {
		// Kernels before 3.17 lack the syscall.
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("shm: random initial term id: %w", err)
		}
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}
