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

// Package shm maps log buffers into files on a shared-memory
// filesystem so that producer, consumers and the cleaner can run in
// separate processes. Creation sizes and zeroes the backing file and
// initializes the stream; attachment validates the layout it finds.
// Sidecar advisory locks enforce the single-producer and
// single-cleaner rules.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/paulexy/Aeron/logbuffer"
)

const (
	// logSuffix names backing files so strays are recognizable in a
	// shared directory.
	logSuffix = ".logbuffer"

	producerLockSuffix = ".producer.lock"
	cleanerLockSuffix  = ".cleaner.lock"
)

var (
	// ErrProducerActive is returned when attaching as producer to a log
	// whose producer lock is already held.
	ErrProducerActive = errors.New("shm: another producer owns the log")

	// ErrCleanerActive is returned when attaching as cleaner to a log
	// whose cleaner lock is already held.
	ErrCleanerActive = errors.New("shm: another cleaner owns the log")
)

// Role is the capacity in which a party attaches to a log.
type Role int

const (
	// RoleConsumer attaches read-only semantically; it takes no lock,
	// any number of consumers may attach.
	RoleConsumer Role = iota

	// RoleProducer appends and rotates. At most one producer may be
	// attached, enforced with an advisory file lock.
	RoleProducer

	// RoleCleaner zeroes retired partitions. At most one cleaner may be
	// attached, enforced with an advisory file lock.
	RoleCleaner
)

func (r Role) String() string {
	switch r {
	case RoleConsumer:
		return "consumer"
	case RoleProducer:
		return "producer"
	case RoleCleaner:
		return "cleaner"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Log is a log buffer mapped from a backing file.
type Log struct {
	// Buffer views the mapped memory. It is valid until Close.
	Buffer *logbuffer.Buffer

	path string
	role Role
	file *os.File
	mem  []byte
	lock *flock.Flock
}

// DefaultDir returns the preferred directory for backing files: a
// subdirectory of /dev/shm where mapped pages never touch a disk, or of
// the system temporary directory on hosts without one.
func DefaultDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm/aeron"
	}
	return filepath.Join(os.TempDir(), "aeron")
}

// LogPath returns the backing file path for a named log in dir.
func LogPath(dir, name string) string {
	return filepath.Join(dir, name+logSuffix)
}

// LogExists reports whether a named log's backing file exists in dir.
func LogExists(dir, name string) bool {
	_, err := os.Stat(LogPath(dir, name))
	return err == nil
}

// CreateLog creates the backing file for a new log, maps it, and
// initializes a stream with a randomized initial term identifier. The
// creator holds the producer role. Creation fails if the log already
// exists.
func CreateLog(dir, name string, termLength int32) (*Log, error) {
	if err := logbuffer.CheckTermLength(termLength); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shm: create log dir: %w", err)
	}
	path := LogPath(dir, name)

	lock, err := acquireLock(path+producerLockSuffix, ErrProducerActive)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("shm: create log: %w", err)
	}
	logLength := logbuffer.ComputeLogLength(termLength)
	if err := f.Truncate(logLength); err != nil {
		f.Close()
		os.Remove(path)
		releaseLock(lock)
		return nil, fmt.Errorf("shm: size log to %d: %w", logLength, err)
	}

	l, err := attach(f, path, RoleProducer, lock)
	if err != nil {
		f.Close()
		os.Remove(path)
		releaseLock(lock)
		return nil, err
	}

	initialTermID, err := randomInitialTermID()
	if err != nil {
		l.Close()
		os.Remove(path)
		return nil, err
	}
	l.Buffer.InitStream(initialTermID)
	return l, nil
}

// OpenLog maps an existing log in the given role. Producer and cleaner
// attachments take the corresponding sidecar lock and fail with
// ErrProducerActive or ErrCleanerActive if another holder is alive.
func OpenLog(dir, name string, role Role) (*Log, error) {
	path := LogPath(dir, name)

	var lock *flock.Flock
	switch role {
	case RoleProducer:
		var err error
		if lock, err = acquireLock(path+producerLockSuffix, ErrProducerActive); err != nil {
			return nil, err
		}
	case RoleCleaner:
		var err error
		if lock, err = acquireLock(path+cleanerLockSuffix, ErrCleanerActive); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("shm: open log: %w", err)
	}
	l, err := attach(f, path, role, lock)
	if err != nil {
		f.Close()
		releaseLock(lock)
		return nil, err
	}
	return l, nil
}

// attach maps the file and validates the layout implied by its size.
func attach(f *os.File, path string, role Role, lock *flock.Flock) (*Log, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: stat log: %w", err)
	}
	if _, err := logbuffer.ComputeTermLength(fi.Size()); err != nil {
		return nil, err
	}
	mem, err := mapFile(f, fi.Size())
	if err != nil {
		return nil, err
	}
	regions, err := logbuffer.SliceLog(mem)
	if err != nil {
		unmapFile(mem)
		return nil, err
	}
	buf, err := logbuffer.New(regions)
	if err != nil {
		unmapFile(mem)
		return nil, err
	}
	return &Log{
		Buffer: buf,
		path:   path,
		role:   role,
		file:   f,
		mem:    mem,
		lock:   lock,
	}, nil
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// Role returns the role this attachment holds.
func (l *Log) Role() Role {
	return l.role
}

// Size returns the length of the mapped region in bytes.
func (l *Log) Size() int64 {
	return int64(len(l.mem))
}

// Sync flushes the mapped region to its backing file. On a
// shared-memory filesystem this is a no-op kernel-side, but it matters
// when the directory is disk-backed.
func (l *Log) Sync() error {
	if err := flushMap(l.mem); err != nil {
		return fmt.Errorf("shm: sync log: %w", err)
	}
	return nil
}

// Close unmaps the log and releases any role lock. The Buffer must not
// be used afterwards.
func (l *Log) Close() error {
	var firstErr error
	if l.mem != nil {
		if err := unmapFile(l.mem); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: unmap log: %w", err)
		}
		l.mem = nil
		l.Buffer = nil
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: close log: %w", err)
		}
		l.file = nil
	}
	if l.lock != nil {
		releaseLock(l.lock)
		l.lock = nil
	}
	return firstErr
}

// RemoveLog deletes a log's backing file and lock sidecars. Parties
// still attached keep their mappings until they close.
func RemoveLog(dir, name string) error {
	path := LogPath(dir, name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("shm: remove log: %w", err)
	}
	os.Remove(path + producerLockSuffix)
	os.Remove(path + cleanerLockSuffix)
	return nil
}

// acquireLock takes a sidecar lock without blocking, translating a held
// lock into the given sentinel.
func acquireLock(path string, held error) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("shm: lock %s: %w", filepath.Base(path), err)
	}
	if !ok {
		return nil, held
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		lock.Unlock()
	}
}
