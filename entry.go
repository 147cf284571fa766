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

// The 3 least significant bits of a stored entry reference identify what the
// reference points to. If the least bit is set the reference points directly
// at a key allocation. Otherwise the bit pattern of the low 3 bits marks the
// kind of entry record.
//
// The records involved all contain a pointer field, so the Go heap aligns
// them to at least 8 bytes on 64-bit platforms, leaving the low 3 bits of
// their addresses free for the tag. Key-only references additionally require
// the key type itself to have 8-byte alignment, which is checked once at
// dict creation.
const (
	entryPtrMask    uintptr = 7 // 111
	entryPtrNormal  uintptr = 0 // 000
	entryPtrKeyOnly uintptr = 1 // 001
	entryPtrNoValue uintptr = 2 // 010
)

// entry is the normal representation: key, value, chain link and optional
// caller-defined metadata.
type entry[K comparable, V any] struct {
	key  K
	val  V
	next unsafe.Pointer
	meta []byte
}

// entryNoValue is the representation used by no-value dicts when the key
// cannot be stored directly in the bucket.
type entryNoValue[K comparable] struct {
	key  K
	next unsafe.Pointer
}

func refTag(ref unsafe.Pointer) uintptr { return uintptr(ref) & entryPtrMask }

// refIsKeyOnly reports whether the reference points directly at a key
// allocation rather than at an entry record.
func refIsKeyOnly(ref unsafe.Pointer) bool { return uintptr(ref)&entryPtrKeyOnly != 0 }

func refIsNormal(ref unsafe.Pointer) bool { return refTag(ref) == entryPtrNormal }

func refIsNoValue(ref unsafe.Pointer) bool { return refTag(ref) == entryPtrNoValue }

// refTagged encodes the tag into the low bits of p.
func refTagged(p unsafe.Pointer, tag uintptr) unsafe.Pointer {
	if uintptr(p)&entryPtrMask != 0 {
		panic("dict: entry allocation is not 8-byte aligned")
	}
	return unsafe.Pointer(uintptr(p) | tag)
}

// refUntagged strips the tag bits, recovering the record address.
func refUntagged(ref unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ref) &^ entryPtrMask)
}

func asEntry[K comparable, V any](ref unsafe.Pointer) *entry[K, V] {
	return (*entry[K, V])(refUntagged(ref))
}

func asNoValue[K comparable](ref unsafe.Pointer) *entryNoValue[K] {
	return (*entryNoValue[K])(refUntagged(ref))
}

func asKeyOnly[K comparable](ref unsafe.Pointer) *K {
	return (*K)(refUntagged(ref))
}

func newEntry[K comparable, V any](key K, next unsafe.Pointer, metaBytes int) unsafe.Pointer {
	e := &entry[K, V]{key: key, next: next}
	if metaBytes > 0 {
		e.meta = make([]byte, metaBytes)
	}
	return refTagged(unsafe.Pointer(e), entryPtrNormal)
}

func newEntryNoValue[K comparable](key K, next unsafe.Pointer) unsafe.Pointer {
	e := &entryNoValue[K]{key: key, next: next}
	return refTagged(unsafe.Pointer(e), entryPtrNoValue)
}

// newKeyOnly boxes the key and returns a key-only reference. Only valid when
// the dict resolved compactKeys at creation, which implies the box is 8-byte
// aligned.
func newKeyOnly[K comparable](key K) unsafe.Pointer {
	box := new(K)
	*box = key
	return refTagged(unsafe.Pointer(box), entryPtrKeyOnly)
}

func entryKey[K comparable, V any](ref unsafe.Pointer) K {
	if refIsKeyOnly(ref) {
		return *asKeyOnly[K](ref)
	}
	if refIsNoValue(ref) {
		return asNoValue[K](ref).key
	}
	return asEntry[K, V](ref).key
}

// entryNext returns the next reference in the chain, or nil if the entry is a
// key-only reference (which is always terminal).
func entryNext[K comparable, V any](ref unsafe.Pointer) unsafe.Pointer {
	if refIsKeyOnly(ref) {
		return nil
	}
	if refIsNoValue(ref) {
		return asNoValue[K](ref).next
	}
	return asEntry[K, V](ref).next
}

// entryNextRef returns a pointer to the entry's next field, or nil for
// key-only references.
func entryNextRef[K comparable, V any](ref unsafe.Pointer) *unsafe.Pointer {
	if refIsKeyOnly(ref) {
		return nil
	}
	if refIsNoValue(ref) {
		return &asNoValue[K](ref).next
	}
	return &asEntry[K, V](ref).next
}

func entrySetNext[K comparable, V any](ref, next unsafe.Pointer) {
	if refIsKeyOnly(ref) {
		panic("dict: key-only entry has no next link")
	}
	if refIsNoValue(ref) {
		asNoValue[K](ref).next = next
		return
	}
	asEntry[K, V](ref).next = next
}

// Entry is an opaque handle to an element stored in a Dict. The zero Entry
// is not usable. Handles remain valid until the element is deleted or the
// dict is cleared or released; they stay valid across rehash steps because
// normal entries are spliced between tables, not reallocated. Two cases do
// allocate: in CompactKeys dicts a migration may re-box a key or give it a
// no-value record, and ScanDefrag may relocate a record. A handle taken
// before either still refers to the previous allocation.
type Entry[K comparable, V any] struct {
	d   *Dict[K, V]
	ref unsafe.Pointer
}

// Key returns the entry's key.
func (e Entry[K, V]) Key() K {
	return entryKey[K, V](e.ref)
}

// Value returns the entry's value. It panics if the dict was created with
// NoValue set.
func (e Entry[K, V]) Value() V {
	if !refIsNormal(e.ref) {
		panic("dict: entry has no value")
	}
	return asEntry[K, V](e.ref).val
}

// SetValue overwrites the entry's value, applying the type's DupValue
// callback if one is defined. It panics if the dict was created with NoValue
// set. The previous value is not released; callers needing destructor
// semantics should use Dict.Replace.
func (e Entry[K, V]) SetValue(v V) {
	if !refIsNormal(e.ref) {
		panic("dict: entry has no value")
	}
	if dup := e.d.typ.DupValue; dup != nil {
		v = dup(v)
	}
	asEntry[K, V](e.ref).val = v
}

// SetKey overwrites the entry's key, applying the type's DupKey callback if
// one is defined. It panics on no-value dicts.
func (e Entry[K, V]) SetKey(k K) {
	if e.d.typ.NoValue {
		panic("dict: SetKey on no-value dict")
	}
	if dup := e.d.typ.DupKey; dup != nil {
		k = dup(k)
	}
	asEntry[K, V](e.ref).key = k
}

// Metadata returns the entry's caller-defined metadata region. It panics for
// entries of no-value dicts, which cannot carry metadata.
func (e Entry[K, V]) Metadata() []byte {
	if !refIsNormal(e.ref) {
		panic("dict: entry has no metadata")
	}
	return asEntry[K, V](e.ref).meta
}
