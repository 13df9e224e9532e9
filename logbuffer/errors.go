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

import "errors"

var (
	// ErrInvalidLayout is returned when a buffer region does not satisfy
	// the layout rules: wrong length, bad alignment, or a term length
	// outside the permitted range.
	ErrInvalidLayout = errors.New("logbuffer: invalid layout")

	// ErrTermFull is returned by Append when the active term has no room
	// for the requested frame. The caller should Rotate and retry.
	ErrTermFull = errors.New("logbuffer: term full")

	// ErrRotationBlocked is returned by Rotate when the next partition
	// has not been cleaned since it last held a term.
	ErrRotationBlocked = errors.New("logbuffer: rotation blocked: next partition needs cleaning")
)
