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
	"math/bits"
	"unsafe"
)

// Scan iterates over the dict one bucket group at a time, statelessly.
//
// Start by calling Scan with a cursor of 0. Each call emits the entries of
// the addressed bucket(s) to fn and returns the cursor to pass to the next
// call; when the returned cursor is 0 the iteration is complete. Every
// element present in the dict for the whole duration of the iteration is
// emitted at least once; elements may be emitted multiple times when the
// table is resized between calls, and the caller must tolerate that.
//
// The cursor is incremented from its high-order bits: the bits of the word
// are reversed, the reversed value incremented, and the bits reversed again.
// Because bucket indexes are the hash masked by size-1, every index already
// emitted under one mask stays covered after the mask grows or shrinks, so a
// resize between calls never forces a restart. While a rehash is in flight
// the smaller table's bucket is emitted first, followed by all the larger
// table's buckets that project down onto it, which reduces the two-table
// case to the one-table one.
//
// Rehashing is paused for the duration of each call, so fn may call back
// into the dict (e.g. Find), but must not mutate it.
func (d *Dict[K, V]) Scan(cursor uint64, fn func(e Entry[K, V])) uint64 {
	return d.ScanDefrag(cursor, fn, DefragFuncs[K, V]{})
}

// DefragFuncs relocate the allocations visited by ScanDefrag. Entry decides
// whether an entry record is copied into a fresh allocation; Key and Value
// may return relocated replacements for the stored key and value (ok=false
// leaves the original in place). Any field may be nil.
type DefragFuncs[K comparable, V any] struct {
	Entry func(e Entry[K, V]) bool
	Key   func(k K) (K, bool)
	Value func(v V) (V, bool)
}

func (f DefragFuncs[K, V]) empty() bool {
	return f.Entry == nil && f.Key == nil && f.Value == nil
}

// ScanDefrag is Scan with a defragmentation pass over each visited bucket:
// entry records, keys and values are relocated as directed by the callbacks,
// the chain is relinked to the replacements, and the type's
// AfterReplaceEntry hook is invoked for every relocated record.
func (d *Dict[K, V]) ScanDefrag(cursor uint64, fn func(e Entry[K, V]), defrag DefragFuncs[K, V]) uint64 {
	if d.Len() == 0 {
		return 0
	}

	// Needed in case the scan callback calls back into the dict.
	d.pauseRehashing()
	defer d.resumeRehashing()

	v := cursor
	emit := func(table int, mask uint64) {
		bucket := d.ht[table].At(uintptr(v & mask))
		if !defrag.empty() {
			d.defragBucket(bucket, defrag)
		}
		ref := *bucket
		for ref != nil {
			next := entryNext[K, V](ref)
			fn(Entry[K, V]{d: d, ref: ref})
			ref = next
		}
	}

	if !d.isRehashing() {
		m0 := htMask(d.htExp[0])
		emit(0, m0)
		return scanNext(v, m0)
	}

	// Two tables: iterate the smaller one first, then all the expansions of
	// the cursor into the larger one.
	t0, t1 := 0, 1
	if htSize(d.htExp[t0]) > htSize(d.htExp[t1]) {
		t0, t1 = 1, 0
	}
	m0 := htMask(d.htExp[t0])
	m1 := htMask(d.htExp[t1])

	emit(t0, m0)

	for {
		emit(t1, m1)

		// Increment the part of the reversed cursor not covered by the
		// smaller mask.
		v = scanNext(v, m1)

		// Continue while the bits covered by the mask difference are
		// non-zero.
		if v&(m0^m1) == 0 {
			break
		}
	}
	return v
}

// scanNext advances a scan cursor over the given bucket mask by incrementing
// it from the high-order bit down: the unmasked bits are forced to one so
// that, once the word is bit-reversed, the increment operates on the masked
// bits only.
func scanNext(v, mask uint64) uint64 {
	v |= ^mask
	v = bits.Reverse64(v)
	v++
	return bits.Reverse64(v)
}

// defragBucket walks one bucket's chain applying the relocation callbacks
// and relinking the chain to any replacements.
func (d *Dict[K, V]) defragBucket(link *unsafe.Pointer, fns DefragFuncs[K, V]) {
	for link != nil && *link != nil {
		ref := *link
		var moved unsafe.Pointer
		switch {
		case refIsKeyOnly(ref):
			// The reference is the key allocation itself.
			if fns.Key != nil {
				if k, ok := fns.Key(*asKeyOnly[K](ref)); ok {
					*link = newKeyOnly(k)
				}
			}
		case refIsNoValue(ref):
			ent := asNoValue[K](ref)
			if fns.Entry != nil && fns.Entry(Entry[K, V]{d: d, ref: ref}) {
				clone := &entryNoValue[K]{key: ent.key, next: ent.next}
				moved = refTagged(unsafe.Pointer(clone), entryPtrNoValue)
				ent = clone
			}
			if fns.Key != nil {
				if k, ok := fns.Key(ent.key); ok {
					ent.key = k
				}
			}
		default:
			ent := asEntry[K, V](ref)
			if fns.Entry != nil && fns.Entry(Entry[K, V]{d: d, ref: ref}) {
				clone := &entry[K, V]{key: ent.key, val: ent.val, next: ent.next, meta: ent.meta}
				moved = refTagged(unsafe.Pointer(clone), entryPtrNormal)
				ent = clone
			}
			if fns.Key != nil {
				if k, ok := fns.Key(ent.key); ok {
					ent.key = k
				}
			}
			if fns.Value != nil {
				if nv, ok := fns.Value(ent.val); ok {
					ent.val = nv
				}
			}
		}
		if moved != nil {
			*link = moved
			if hook := d.typ.AfterReplaceEntry; hook != nil {
				hook(d, Entry[K, V]{d: d, ref: moved})
			}
		}
		link = entryNextRef[K, V](*link)
	}
}
