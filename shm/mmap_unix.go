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

//go:build unix

package shm

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps length bytes of f read-write and shared, so that every
// attached process observes the same pages.
func mapFile(f *os.File, length int64) ([]byte, error) {
	if length <= 0 || length > math.MaxInt-1 {
		return nil, fmt.Errorf("shm: cannot map %d bytes", length)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %d bytes: %w", length, err)
	}
	return mem, nil
}

func unmapFile(mem []byte) error {
	return unix.Munmap(mem)
}

func flushMap(mem []byte) error {
	return unix.Msync(mem, unix.MS_SYNC)
}
