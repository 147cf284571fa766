// Copyright 2025 The Tablekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dict

import (
	"fmt"
	"time"
)

// ResizePolicy selects how eagerly tables grow and rehash, process-wide.
//
// With ResizeEnable tables grow at a 1:1 load factor and rehash freely. With
// ResizeAvoid growing and rehashing are deferred until the load factor (for
// growth) or the table-size ratio (for an in-flight rehash) exceeds
// forceResizeRatio; the host sets this while a fork-based snapshot child is
// alive so copy-on-write pages are not churned. ResizeForbid blocks automatic
// growth, Resize and all rehash steps; only the initial table allocation
// still happens on insert. An explicit Expand still installs a target table,
// but no entries migrate to it while the policy is in force.
type ResizePolicy int8

const (
	ResizeEnable ResizePolicy = iota
	ResizeAvoid
	ResizeForbid
)

var canResize = ResizeEnable

// SetResizePolicy sets the process-wide resize policy.
func SetResizePolicy(p ResizePolicy) { canResize = p }

func resizePolicy() ResizePolicy { return canResize }

// Rehash performs up to n steps of incremental rehashing and reports whether
// more work remains. A step migrates one non-empty bucket, chain and all,
// from the old table to the new one; since part of the table may be empty
// space, at most n*10 empty buckets are visited in total per call so the
// work stays bounded even on sparse tables.
func (d *Dict[K, V]) Rehash(n int) bool {
	emptyVisits := n * 10
	s0 := htSize(d.htExp[0])
	s1 := htSize(d.htExp[1])
	if canResize == ResizeForbid || !d.isRehashing() {
		return false
	}
	if canResize == ResizeAvoid &&
		((s1 > s0 && s1/s0 < forceResizeRatio) ||
			(s1 < s0 && s0/s1 < forceResizeRatio)) {
		return false
	}

	for ; n > 0 && d.htUsed[0] != 0; n-- {
		// rehashIdx can't run off the table: htUsed[0] != 0 guarantees a
		// non-empty bucket remains at or beyond it.
		for *d.ht[0].At(uintptr(d.rehashIdx)) == nil {
			d.rehashIdx++
			emptyVisits--
			if emptyVisits == 0 {
				return true
			}
		}
		if debug {
			fmt.Printf("rehash: migrating bucket %d (used %d/%d)\n",
				d.rehashIdx, d.htUsed[0], d.htUsed[1])
		}
		ref := *d.ht[0].At(uintptr(d.rehashIdx))
		for ref != nil {
			next := entryNext[K, V](ref)
			key := entryKey[K, V](ref)
			var idx uint64
			if d.htExp[1] > d.htExp[0] {
				idx = d.typ.Hash(key) & htMask(d.htExp[1])
			} else {
				// Shrinking: table sizes are powers of two and every entry
				// in this bucket shares the source index's low bits, so
				// masking the source index by the smaller table yields the
				// destination index.
				idx = uint64(d.rehashIdx) & htMask(d.htExp[1])
			}
			dst := d.ht[1].At(uintptr(idx))
			if d.typ.NoValue {
				switch {
				case d.compactKeys && *dst == nil:
					// Empty destination bucket: the key can live there
					// without an entry record. Key-only references move
					// as-is.
					if !refIsKeyOnly(ref) {
						ref = newKeyOnly(key)
					}
				case refIsKeyOnly(ref):
					// A next link became necessary; upgrade to a no-value
					// entry record.
					ref = newEntryNoValue(key, *dst)
				default:
					entrySetNext[K, V](ref, *dst)
				}
			} else {
				entrySetNext[K, V](ref, *dst)
			}
			*dst = ref
			d.htUsed[0]--
			d.htUsed[1]++
			ref = next
		}
		*d.ht[0].At(uintptr(d.rehashIdx)) = nil
		d.rehashIdx++
	}

	// The old table has drained: move the new table into its slot.
	if d.htUsed[0] == 0 {
		d.allocator.FreeBuckets(d.ht[0].Slice(0, uintptr(s0)))
		d.ht[0] = d.ht[1]
		d.htUsed[0] = d.htUsed[1]
		d.htExp[0] = d.htExp[1]
		d.reset(1)
		d.rehashIdx = -1
		d.checkInvariants()
		return false
	}

	// More to rehash.
	return true
}

// RehashDuration rehashes in batches of 100 buckets until just past the
// given wall-time budget, returning the number of steps attempted. It
// returns 0 while rehashing is paused: an explicit bulk rehash must not
// undermine a pause taken by a safe iterator or scan callback higher up the
// stack.
func (d *Dict[K, V]) RehashDuration(budget time.Duration) int {
	if d.pauseRehash > 0 {
		return 0
	}
	start := time.Now()
	rehashes := 0
	for d.Rehash(100) {
		rehashes += 100
		if time.Since(start) > budget {
			break
		}
	}
	return rehashes
}

// rehashStep performs a single step of rehashing, but only if rehashing is
// not paused. Iterators and scans in progress pause rehashing: moving
// entries between the two tables underneath them would skip or duplicate
// elements. Lookup and update operations call this so the table migrates
// while it is actively used.
func (d *Dict[K, V]) rehashStep() {
	if d.pauseRehash == 0 {
		d.Rehash(1)
	}
}

func (d *Dict[K, V]) pauseRehashing() { d.pauseRehash++ }

func (d *Dict[K, V]) resumeRehashing() {
	d.pauseRehash--
	if d.pauseRehash < 0 {
		panic("dict: unbalanced rehash resume")
	}
}
