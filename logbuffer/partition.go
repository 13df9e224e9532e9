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

// PartitionIndex maps a term identifier onto its partition. Successive
// terms cycle through the partitions in order, so the index is the term
// count modulo PartitionCount. The result is always in
// [0, PartitionCount), even when the int32 difference is negative.
func PartitionIndex(initialTermID, activeTermID int32) int {
	rem := int((activeTermID - initialTermID) % PartitionCount)
	if rem < 0 {
		rem += PartitionCount
	}
	return rem
}

// NextPartitionIndex returns the partition that follows current in
// rotation order.
func NextPartitionIndex(current int) int {
	return (current + 1) % PartitionCount
}

// PreviousPartitionIndex returns the partition that preceded current in
// rotation order.
func PreviousPartitionIndex(current int) int {
	return (current + PartitionCount - 1) % PartitionCount
}
