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

import "unsafe"

// fingerprint is a 64-bit digest of the dict's structural state: the
// identities, size exponents and element counts of both tables, folded
// together so that the same values in a different order (almost certainly)
// produce a different digest. An unsafe iterator captures it on first
// advance and re-checks it at Release to detect forbidden mutations.
func (d *Dict[K, V]) fingerprint() uint64 {
	ints := [6]uint64{
		uint64(uintptr(d.ht[0].ptr)),
		uint64(d.htExp[0]),
		d.htUsed[0],
		uint64(uintptr(d.ht[1].ptr)),
		uint64(d.htExp[1]),
		d.htUsed[1],
	}
	var h uint64
	for _, v := range ints {
		h += v
		// Thomas Wang's 64 bit integer hash.
		h = ^h + h<<21
		h ^= h >> 24
		h = h + h<<3 + h<<8
		h ^= h >> 14
		h = h + h<<2 + h<<4
		h ^= h >> 28
		h += h << 31
	}
	return h
}

// Iterator walks the entries of a Dict bucket by bucket, old table first,
// then the new table if a rehash is in flight.
type Iterator[K comparable, V any] struct {
	d           *Dict[K, V]
	index       int64
	table       int
	safe        bool
	entry       unsafe.Pointer
	nextEntry   unsafe.Pointer
	fingerprint uint64
}

// Iterator returns an unsafe iterator: it is cheap, but the only operation
// permitted on the dict until Release is Next. A structural fingerprint
// taken on the first advance is re-checked at Release; a mismatch means the
// caller mutated the dict mid-iteration and panics.
func (d *Dict[K, V]) Iterator() *Iterator[K, V] {
	return &Iterator[K, V]{d: d, index: -1}
}

// SafeIterator returns an iterator that pauses incremental rehashing for its
// lifetime, so the caller may call Add, Find, Delete and the other
// operations against the dict while iterating. Explicit Rehash calls are not
// suppressed and remain forbidden.
func (d *Dict[K, V]) SafeIterator() *Iterator[K, V] {
	it := d.Iterator()
	it.safe = true
	return it
}

// Next advances the iterator and returns the next entry. The next chain
// position is saved before returning, so deleting the returned entry (on a
// safe iterator) does not break the walk.
func (it *Iterator[K, V]) Next() (Entry[K, V], bool) {
	for {
		if it.entry == nil {
			if it.index == -1 && it.table == 0 {
				if it.safe {
					it.d.pauseRehashing()
				} else {
					it.fingerprint = it.d.fingerprint()
				}
			}
			it.index++
			if it.index >= int64(htSize(it.d.htExp[it.table])) {
				if it.d.isRehashing() && it.table == 0 {
					it.table++
					it.index = 0
				} else {
					break
				}
			}
			it.entry = *it.d.ht[it.table].At(uintptr(it.index))
		} else {
			it.entry = it.nextEntry
		}
		if it.entry != nil {
			it.nextEntry = entryNext[K, V](it.entry)
			return Entry[K, V]{d: it.d, ref: it.entry}, true
		}
	}
	return Entry[K, V]{}, false
}

// Release ends the iteration. For a safe iterator it resumes rehashing; for
// an unsafe one it verifies the fingerprint and panics if the dict was
// mutated during iteration.
func (it *Iterator[K, V]) Release() {
	if it.index == -1 && it.table == 0 {
		// Never advanced.
		return
	}
	if it.safe {
		it.d.resumeRehashing()
	} else if fp := it.d.fingerprint(); fp != it.fingerprint {
		panic("dict: unsafe iterator released after forbidden mutation")
	}
}

// All calls yield for each entry in the dict, stopping early if yield
// returns false. It runs on a safe iterator, so yield may mutate the dict.
func (d *Dict[K, V]) All(yield func(e Entry[K, V]) bool) {
	it := d.SafeIterator()
	defer it.Release()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		if !yield(e) {
			return
		}
	}
}
