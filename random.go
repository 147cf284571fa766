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

// fairSampleSize is how many entries FairRandomEntry samples before picking
// one uniformly.
const fairSampleSize = 15

// RandomEntry returns a random entry. The distribution is biased toward
// entries in shorter chains, which is acceptable for randomized algorithms
// such as eviction sampling; use FairRandomEntry for a smoother
// distribution.
func (d *Dict[K, V]) RandomEntry() (Entry[K, V], bool) {
	if d.Len() == 0 {
		return Entry[K, V]{}, false
	}
	if d.isRehashing() {
		d.rehashStep()
	}
	var ref unsafe.Pointer
	if d.isRehashing() {
		s0 := htSize(d.htExp[0])
		for ref == nil {
			// There are no elements at indexes below rehashIdx in the old
			// table, so draw from the combined remainder of both tables.
			h := uint64(d.rehashIdx) + d.random()%(uint64(d.Buckets())-uint64(d.rehashIdx))
			if h >= s0 {
				ref = *d.ht[1].At(uintptr(h - s0))
			} else {
				ref = *d.ht[0].At(uintptr(h))
			}
		}
	} else {
		m := htMask(d.htExp[0])
		for ref == nil {
			ref = *d.ht[0].At(uintptr(d.random() & m))
		}
	}

	// The bucket is a chain; counting its length and indexing uniformly is
	// the only sane way to pick an element from it.
	chainLen := uint64(0)
	orig := ref
	for ref != nil {
		ref = entryNext[K, V](ref)
		chainLen++
	}
	ele := d.random() % chainLen
	ref = orig
	for ; ele > 0; ele-- {
		ref = entryNext[K, V](ref)
	}
	return Entry[K, V]{d: d, ref: ref}, true
}

// SomeEntries samples up to count entries from random locations. It does not
// guarantee returning exactly count entries, nor that the entries are
// distinct, but it makes an effort toward both and is much faster than
// calling RandomEntry count times. Not suitable when a good distribution is
// required; it samples runs of adjacent buckets.
func (d *Dict[K, V]) SomeEntries(count int) []Entry[K, V] {
	if count > d.Len() {
		count = d.Len()
	}
	if count <= 0 {
		return nil
	}
	maxSteps := count * 10

	// Do rehashing work proportional to the requested sample.
	for j := 0; j < count && d.isRehashing(); j++ {
		d.rehashStep()
	}

	tables := 1
	if d.isRehashing() {
		tables = 2
	}
	maxSizeMask := htMask(d.htExp[0])
	if tables > 1 && maxSizeMask < htMask(d.htExp[1]) {
		maxSizeMask = htMask(d.htExp[1])
	}

	// Pick a random point inside the larger table.
	i := d.random() & maxSizeMask
	emptyLen := 0 // continuous empty buckets so far
	des := make([]Entry[K, V], count)
	stored := 0
	for stored < count && maxSteps > 0 {
		maxSteps--
		for j := 0; j < tables; j++ {
			// Up to the indexes already visited in the old table there are
			// no populated buckets, so skip them.
			if tables == 2 && j == 0 && i < uint64(d.rehashIdx) {
				// If we are also out of range in the new table there are no
				// elements in either table up to the rehashing index; jump
				// past it (happens when shrinking).
				if i >= htSize(d.htExp[1]) {
					i = uint64(d.rehashIdx)
				} else {
					continue
				}
			}
			if i >= htSize(d.htExp[j]) {
				continue // out of range for this table
			}
			ref := *d.ht[j].At(uintptr(i))

			// Count contiguous empty buckets and jump to another location
			// when the run exceeds count (with a minimum of 5).
			if ref == nil {
				emptyLen++
				if emptyLen >= 5 && emptyLen > count {
					i = d.random() & maxSizeMask
					emptyLen = 0
				}
				continue
			}
			emptyLen = 0
			for ref != nil {
				// Collect every element of each non-empty bucket found. Past
				// the first count elements, reservoir sampling keeps the
				// tail of long chains reachable: each further element
				// replaces a stored one with probability count/(stored+1).
				if stored < count {
					des[stored] = Entry[K, V]{d: d, ref: ref}
				} else {
					r := int(d.random() % uint64(stored+1))
					if r < count {
						des[r] = Entry[K, V]{d: d, ref: ref}
					}
				}
				ref = entryNext[K, V](ref)
				stored++
			}
			if stored >= count {
				return des
			}
		}
		i = (i + 1) & maxSizeMask
	}
	return des[:stored]
}

// FairRandomEntry is RandomEntry with more work spent to smooth away the
// chain-length bias: it samples a linear range of buckets and picks
// uniformly from the collected entries.
func (d *Dict[K, V]) FairRandomEntry() (Entry[K, V], bool) {
	entries := d.SomeEntries(fairSampleSize)
	// SomeEntries may come back empty in an unlucky run even when the dict
	// is not; fall back to the primitive that always yields an element.
	if len(entries) == 0 {
		return d.RandomEntry()
	}
	return entries[d.random()%uint64(len(entries))], true
}
