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

// Package dict implements a chained hash table with incremental rehashing,
// designed as the central index of an in-memory key/value store.
//
// # Design
//
// A Dict maps keys to values using two bucket arrays, each a power of two in
// size, with collisions handled by chaining. At any moment at most one
// resize is in flight: the new array is installed alongside the old one and
// entries migrate bucket by bucket, driven either by an explicit time or
// step budget (Rehash, RehashDuration) or opportunistically by a single step
// piggybacked on each lookup, insert, and delete. No operation ever pays for
// a full-table rehash, which matters when the host process is periodically
// forked for snapshotting: a stop-the-world rehash would touch every page
// and defeat copy-on-write.
//
// While a rehash is in progress lookups probe both tables; inserts always go
// to the new table so the old one only drains. A migrated prefix of the old
// table is guaranteed empty, which the random-sampling and scan code rely
// on.
//
// Bucket slots hold tagged references: the low 3 bits of each stored pointer
// select one of three entry representations (normal, no-value, key-only),
// letting set-like dicts avoid one allocation per element. See entry.go.
//
// # Iteration
//
// Three traversal mechanisms are provided with different trade-offs:
//
//   - An unsafe Iterator is cheapest but forbids mutation; misuse is
//     detected with a structural fingerprint checked at Release.
//   - A safe Iterator pauses incremental rehashing so the caller may insert,
//     find and delete while iterating.
//   - Scan is a stateless cursor-based traversal that tolerates resizes
//     between calls. It visits buckets in reverse-binary cursor order:
//     the cursor is incremented from its high bits (reverse the word,
//     increment, reverse back), so every bucket combination already visited
//     at one table size remains visited after a grow or shrink. Entries
//     present for the whole scan are visited at least once; duplicates are
//     possible and the caller must tolerate them.
//
// A Dict is NOT goroutine-safe: the caller serializes all operations.
package dict

import (
	"errors"
	"math"
	"math/bits"
	"math/rand/v2"
	"reflect"
	"unsafe"
)

const (
	debug = false

	// initialExp is the size exponent every first table allocation uses.
	initialExp  = 2
	initialSize = 1 << initialExp

	// forceResizeRatio is the used/size ratio above which a grow is forced
	// even under the avoid policy, and the table-size ratio below which the
	// avoid policy refuses to rehash.
	forceResizeRatio = 5

	ptrSize = unsafe.Sizeof(uintptr(0))
)

var (
	// ErrKeyExists is returned by Add when the key is already present.
	ErrKeyExists = errors.New("dict: key already exists")
	// ErrKeyNotFound is returned by Delete when the key is absent.
	ErrKeyNotFound = errors.New("dict: key not found")
	// ErrExpand is returned when a resize is rejected: a rehash is already
	// in progress, the requested size cannot hold the current elements, the
	// size overflows, or it equals the current size.
	ErrExpand = errors.New("dict: expand not performed")
	// ErrAllocation is returned by TryExpand when the allocator fails.
	ErrAllocation = errors.New("dict: allocation failed")
)

// Type defines the behavior of a Dict over its keys and values. Hash is
// required; every other field is optional. A Type is typically a package
// level singleton shared by all dicts of the same shape.
type Type[K comparable, V any] struct {
	// Hash maps a key to a 64-bit digest. Use the HashString/HashBytes
	// helpers for SipHash-2-4 keyed by the process-wide seed.
	Hash func(K) uint64
	// Compare reports key equality. If nil, keys are compared with ==.
	Compare func(a, b K) bool
	// DupKey, if set, is applied to keys before they are stored, giving the
	// dict ownership of the copy.
	DupKey func(K) K
	// DupValue, if set, is applied to values before they are stored.
	DupValue func(V) V
	// FreeKey and FreeValue are destructors run when an element is deleted
	// or the dict is cleared or released. They exist for reference-counted
	// keys and values; plain Go values need neither.
	FreeKey   func(K)
	FreeValue func(V)
	// ExpandAllowed may veto a specific expansion, e.g. to refuse a large
	// allocation under memory pressure. moreMem is the bucket-array memory
	// the grow would add; usedRatio the current load factor.
	ExpandAllowed func(moreMem uintptr, usedRatio float64) bool
	// EntryMetadataBytes sizes a caller-defined metadata region carried by
	// every entry. Mutually exclusive with NoValue.
	EntryMetadataBytes func() int
	// MetadataBytes sizes a caller-defined metadata region carried by the
	// dict itself, zero-initialized at creation.
	MetadataBytes func() int
	// AfterReplaceEntry is invoked when ScanDefrag relocates an entry
	// record. Required when entries carry metadata that external structures
	// point into.
	AfterReplaceEntry func(d *Dict[K, V], e Entry[K, V])

	// NoValue declares that values are unused, i.e. the dict is a set.
	// Value accessors panic and entries are stored without a value field.
	NoValue bool
	// CompactKeys additionally allows storing a key allocation directly in
	// the bucket, without an entry record, when the key type's alignment
	// leaves the tag bits free. Requires NoValue.
	CompactKeys bool
}

// Dict is a chained hash table mapping keys of type K to values of type V.
// The zero value is not usable; call New.
type Dict[K comparable, V any] struct {
	typ *Type[K, V]

	ht     [2]unsafeSlice[unsafe.Pointer]
	htUsed [2]uint64
	htExp  [2]int8 // size exponent; -1 = table not allocated

	// rehashIdx is the next bucket of ht[0] to migrate, or -1 when no
	// rehash is in progress.
	rehashIdx int64
	// pauseRehash suppresses the opportunistic rehash step embedded in
	// lookups while positive. Negative values are a programming error.
	pauseRehash int16

	// compactKeys is CompactKeys resolved against K's alignment.
	compactKeys bool

	allocator Allocator
	random    func() uint64
	meta      []byte
}

// New constructs a Dict with the given type. No table is allocated until the
// first insert.
func New[K comparable, V any](typ *Type[K, V], opts ...Option[K, V]) *Dict[K, V] {
	if typ == nil || typ.Hash == nil {
		panic("dict: Type.Hash is required")
	}
	if typ.NoValue && typ.EntryMetadataBytes != nil {
		panic("dict: entry metadata cannot be combined with NoValue")
	}
	if typ.CompactKeys && !typ.NoValue {
		panic("dict: CompactKeys requires NoValue")
	}
	d := &Dict[K, V]{
		typ:       typ,
		rehashIdx: -1,
		allocator: defaultAllocator{},
		random:    rand.Uint64,
	}
	d.htExp[0], d.htExp[1] = -1, -1
	d.compactKeys = typ.CompactKeys && keyAlign[K]() > int(entryPtrMask)
	if typ.MetadataBytes != nil {
		if n := typ.MetadataBytes(); n > 0 {
			d.meta = make([]byte, n)
		}
	}
	for _, o := range opts {
		o.apply(d)
	}
	return d
}

// keyAlign returns the alignment of K's allocations, which bounds how many
// low pointer bits are guaranteed zero.
func keyAlign[K comparable]() int {
	return reflect.TypeOf((*K)(nil)).Elem().Align()
}

func htSize(exp int8) uint64 {
	if exp == -1 {
		return 0
	}
	return 1 << uint(exp)
}

func htMask(exp int8) uint64 {
	if exp == -1 {
		return 0
	}
	return (1 << uint(exp)) - 1
}

func (d *Dict[K, V]) isRehashing() bool { return d.rehashIdx != -1 }

// Len returns the number of elements in the dict.
func (d *Dict[K, V]) Len() int { return int(d.htUsed[0] + d.htUsed[1]) }

// Buckets returns the total number of buckets across both tables.
func (d *Dict[K, V]) Buckets() int {
	return int(htSize(d.htExp[0]) + htSize(d.htExp[1]))
}

// Metadata returns the dict-level metadata region sized by the type's
// MetadataBytes, or nil if the type declares none.
func (d *Dict[K, V]) Metadata() []byte { return d.meta }

// Hash returns the type's hash of key.
func (d *Dict[K, V]) Hash(key K) uint64 { return d.typ.Hash(key) }

// MemUsage returns the memory in bytes used by entry records and bucket
// arrays, excluding what the keys and values themselves reference.
func (d *Dict[K, V]) MemUsage() uintptr {
	return uintptr(d.Len())*d.EntryMemUsage() + uintptr(d.Buckets())*ptrSize
}

// EntryMemUsage returns the size in bytes of a normal entry record.
func (d *Dict[K, V]) EntryMemUsage() uintptr {
	var e entry[K, V]
	return unsafe.Sizeof(e)
}

func (d *Dict[K, V]) keyEqual(a, b K) bool {
	if cmp := d.typ.Compare; cmp != nil {
		return cmp(a, b)
	}
	return a == b
}

// Find returns the entry holding key, if present.
func (d *Dict[K, V]) Find(key K) (Entry[K, V], bool) {
	if d.Len() == 0 {
		return Entry[K, V]{}, false
	}
	if d.isRehashing() {
		d.rehashStep()
	}
	h := d.typ.Hash(key)
	for table := 0; table <= 1; table++ {
		idx := h & htMask(d.htExp[table])
		for ref := *d.ht[table].At(uintptr(idx)); ref != nil; ref = entryNext[K, V](ref) {
			if d.keyEqual(key, entryKey[K, V](ref)) {
				return Entry[K, V]{d: d, ref: ref}, true
			}
		}
		if !d.isRehashing() {
			break
		}
	}
	return Entry[K, V]{}, false
}

// FetchValue returns the value stored under key. It panics on no-value
// dicts.
func (d *Dict[K, V]) FetchValue(key K) (V, bool) {
	e, ok := d.Find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.Value(), true
}

// FindByKeyAndHash locates an entry using a precomputed hash and identity
// (==) comparison only, skipping the type's Compare. Useful when
// revalidating a handle for a key whose backing storage may have been
// replaced by an equal copy.
func (d *Dict[K, V]) FindByKeyAndHash(key K, hash uint64) (Entry[K, V], bool) {
	if d.Len() == 0 {
		return Entry[K, V]{}, false
	}
	for table := 0; table <= 1; table++ {
		idx := hash & htMask(d.htExp[table])
		for ref := *d.ht[table].At(uintptr(idx)); ref != nil; ref = entryNext[K, V](ref) {
			if key == entryKey[K, V](ref) {
				return Entry[K, V]{d: d, ref: ref}, true
			}
		}
		if !d.isRehashing() {
			break
		}
	}
	return Entry[K, V]{}, false
}

// Position identifies the bucket a key should be inserted into. It is only
// valid until the next mutating or rehashing operation on the dict.
type Position struct {
	table int8
	idx   uint64
}

// FindPositionForInsert returns the position where key should be inserted
// with InsertAtPosition. If the key is already present, ErrKeyExists is
// returned along with the existing entry. The two calls split an insert so
// the caller can prepare the key or value in between without a second
// lookup.
func (d *Dict[K, V]) FindPositionForInsert(key K) (Position, Entry[K, V], error) {
	h := d.typ.Hash(key)
	if d.isRehashing() {
		d.rehashStep()
	}
	if err := d.expandIfNeeded(); err != nil {
		return Position{}, Entry[K, V]{}, err
	}
	var idx uint64
	for table := 0; table <= 1; table++ {
		idx = h & htMask(d.htExp[table])
		for ref := *d.ht[table].At(uintptr(idx)); ref != nil; ref = entryNext[K, V](ref) {
			if d.keyEqual(key, entryKey[K, V](ref)) {
				return Position{}, Entry[K, V]{d: d, ref: ref}, ErrKeyExists
			}
		}
		if !d.isRehashing() {
			break
		}
	}
	// While rehashing, inserts always land in the new table.
	table := int8(0)
	if d.isRehashing() {
		table = 1
	}
	return Position{table: table, idx: idx}, Entry[K, V]{}, nil
}

// InsertAtPosition inserts key at a position returned by a preceding
// FindPositionForInsert, placing the new entry at the head of the chain.
// The key is stored as given; callers wanting DupKey semantics should use
// Add or AddOrFind. It panics if the position is stale.
func (d *Dict[K, V]) InsertAtPosition(pos Position, key K) Entry[K, V] {
	htidx := int8(0)
	if d.isRehashing() {
		htidx = 1
	}
	if pos.table != htidx || pos.idx > htMask(d.htExp[htidx]) {
		panic("dict: stale insert position")
	}
	bucket := d.ht[htidx].At(uintptr(pos.idx))
	var ref unsafe.Pointer
	if d.typ.NoValue {
		if d.compactKeys && *bucket == nil {
			// Empty destination bucket: store the key without an entry
			// record.
			ref = newKeyOnly(key)
		} else {
			ref = newEntryNoValue(key, *bucket)
		}
	} else {
		metaBytes := 0
		if d.typ.EntryMetadataBytes != nil {
			metaBytes = d.typ.EntryMetadataBytes()
		}
		// Insert at the head, on the assumption that recently added entries
		// are accessed more frequently.
		ref = newEntry[K, V](key, *bucket, metaBytes)
	}
	*bucket = ref
	d.htUsed[htidx]++
	d.checkInvariants()
	return Entry[K, V]{d: d, ref: ref}
}

func (d *Dict[K, V]) addRaw(key K) (e, existing Entry[K, V], err error) {
	pos, existing, err := d.FindPositionForInsert(key)
	if err != nil {
		return Entry[K, V]{}, existing, err
	}
	if dup := d.typ.DupKey; dup != nil {
		key = dup(key)
	}
	return d.InsertAtPosition(pos, key), Entry[K, V]{}, nil
}

// Add inserts key with the given value. ErrKeyExists is returned if the key
// is already present. On no-value dicts the value argument is ignored.
func (d *Dict[K, V]) Add(key K, val V) error {
	e, _, err := d.addRaw(key)
	if err != nil {
		return err
	}
	if !d.typ.NoValue {
		e.SetValue(val)
	}
	return nil
}

// AddOrFind inserts key and returns the new entry, or returns the existing
// entry if the key is already present. The caller fills in the value through
// the entry handle as needed.
func (d *Dict[K, V]) AddOrFind(key K) (e Entry[K, V], added bool) {
	e, existing, err := d.addRaw(key)
	switch {
	case err == nil:
		return e, true
	case errors.Is(err, ErrKeyExists):
		return existing, false
	default:
		panic(err)
	}
}

// Replace inserts key if absent, otherwise overwrites its value. It reports
// whether the key was inserted. The new value is installed before the old
// value's destructor runs: with reference counting you want to increment
// (set) and then decrement (free), never the reverse, in case new and old
// alias.
func (d *Dict[K, V]) Replace(key K, val V) (inserted bool) {
	e, existing, err := d.addRaw(key)
	switch {
	case err == nil:
		e.SetValue(val)
		return true
	case errors.Is(err, ErrKeyExists):
		old := existing.Value()
		existing.SetValue(val)
		if free := d.typ.FreeValue; free != nil {
			free(old)
		}
		return false
	default:
		panic(err)
	}
}

// genericDelete searches key and unlinks its entry. When nofree is set the
// entry is returned intact for the caller to inspect and later release with
// FreeUnlinked.
func (d *Dict[K, V]) genericDelete(key K, nofree bool) (Entry[K, V], bool) {
	if d.Len() == 0 {
		return Entry[K, V]{}, false
	}
	if d.isRehashing() {
		d.rehashStep()
	}
	h := d.typ.Hash(key)
	for table := 0; table <= 1; table++ {
		idx := h & htMask(d.htExp[table])
		var prev unsafe.Pointer
		ref := *d.ht[table].At(uintptr(idx))
		for ref != nil {
			next := entryNext[K, V](ref)
			if d.keyEqual(key, entryKey[K, V](ref)) {
				if prev != nil {
					entrySetNext[K, V](prev, next)
				} else {
					*d.ht[table].At(uintptr(idx)) = next
				}
				d.htUsed[table]--
				e := Entry[K, V]{d: d, ref: ref}
				if !nofree {
					d.freeEntry(e)
				}
				d.checkInvariants()
				return e, true
			}
			prev = ref
			ref = next
		}
		if !d.isRehashing() {
			break
		}
	}
	return Entry[K, V]{}, false
}

func (d *Dict[K, V]) freeEntry(e Entry[K, V]) {
	if free := d.typ.FreeKey; free != nil {
		free(e.Key())
	}
	if free := d.typ.FreeValue; free != nil {
		free(e.Value())
	}
}

// Delete removes key, running the key and value destructors. ErrKeyNotFound
// is returned if the key is absent.
func (d *Dict[K, V]) Delete(key K) error {
	if _, ok := d.genericDelete(key, false); !ok {
		return ErrKeyNotFound
	}
	return nil
}

// Unlink removes key from the table without releasing the entry, so the
// caller can use its key and value before freeing it with FreeUnlinked. This
// avoids the double lookup of Find followed by Delete.
func (d *Dict[K, V]) Unlink(key K) (Entry[K, V], bool) {
	return d.genericDelete(key, true)
}

// FreeUnlinked runs the destructors for an entry returned by Unlink. Calling
// it with a zero Entry is a no-op.
func (d *Dict[K, V]) FreeUnlinked(e Entry[K, V]) {
	if e.ref == nil {
		return
	}
	d.freeEntry(e)
}

// UnlinkPosition records where TwoPhaseUnlinkFind located an entry so that
// TwoPhaseUnlinkFree can unlink it without a second lookup.
type UnlinkPosition struct {
	link  *unsafe.Pointer
	table int8
}

// TwoPhaseUnlinkFind locates key and pauses rehashing so the caller may
// inspect the entry without the table mutating underneath. It must be paired
// with TwoPhaseUnlinkFree, which unlinks the entry and resumes rehashing.
// The dict must not be mutated between the two calls.
func (d *Dict[K, V]) TwoPhaseUnlinkFind(key K) (Entry[K, V], UnlinkPosition, bool) {
	if d.Len() == 0 {
		return Entry[K, V]{}, UnlinkPosition{}, false
	}
	if d.isRehashing() {
		d.rehashStep()
	}
	h := d.typ.Hash(key)
	for table := 0; table <= 1; table++ {
		idx := h & htMask(d.htExp[table])
		link := d.ht[table].At(uintptr(idx))
		for link != nil && *link != nil {
			if d.keyEqual(key, entryKey[K, V](*link)) {
				d.pauseRehashing()
				return Entry[K, V]{d: d, ref: *link}, UnlinkPosition{link: link, table: int8(table)}, true
			}
			link = entryNextRef[K, V](*link)
		}
		if !d.isRehashing() {
			break
		}
	}
	return Entry[K, V]{}, UnlinkPosition{}, false
}

// TwoPhaseUnlinkFree unlinks and releases an entry found by
// TwoPhaseUnlinkFind and resumes rehashing. Calling it with a zero Entry is
// a no-op.
func (d *Dict[K, V]) TwoPhaseUnlinkFree(e Entry[K, V], pos UnlinkPosition) {
	if e.ref == nil {
		return
	}
	d.htUsed[pos.table]--
	*pos.link = entryNext[K, V](e.ref)
	d.freeEntry(e)
	d.resumeRehashing()
}

// Expand grows (or initially allocates) the table to hold at least n
// elements. ErrExpand is returned if the resize is rejected. Allocation
// failure from a custom allocator panics; use TryExpand to surface it.
func (d *Dict[K, V]) Expand(n int) error {
	if n < 0 {
		return ErrExpand
	}
	return d.expand(uint64(n), false)
}

// TryExpand is Expand except that allocator failure is reported as
// ErrAllocation instead of panicking, leaving the dict unchanged.
func (d *Dict[K, V]) TryExpand(n int) error {
	if n < 0 {
		return ErrExpand
	}
	return d.expand(uint64(n), true)
}

func (d *Dict[K, V]) expand(size uint64, try bool) error {
	// The size is invalid if it cannot hold the elements already inside the
	// table, and only one resize may be in flight at a time.
	if d.isRehashing() || d.htUsed[0] > size {
		return ErrExpand
	}
	exp := nextExp(size)
	newSize := htSize(exp)
	if newSize < size || newSize > math.MaxInt/uint64(ptrSize) {
		return ErrExpand
	}
	// Rehashing to the same table size is not useful.
	if exp == d.htExp[0] {
		return ErrExpand
	}
	buckets, err := d.allocator.AllocBuckets(int(newSize))
	if err != nil {
		if try {
			return ErrAllocation
		}
		panic("dict: bucket allocation failed: " + err.Error())
	}
	// The first allocation installs the table directly; it is not really a
	// rehash.
	if d.htExp[0] == -1 {
		d.ht[0] = makeUnsafeSlice(buckets)
		d.htExp[0] = exp
		d.htUsed[0] = 0
		return nil
	}
	d.ht[1] = makeUnsafeSlice(buckets)
	d.htExp[1] = exp
	d.htUsed[1] = 0
	d.rehashIdx = 0
	d.checkInvariants()
	return nil
}

// Resize shrinks the table to the minimal size holding all elements, with a
// used/buckets ratio near 1. It is rejected unless the resize policy is
// ResizeEnable and no rehash is in progress.
func (d *Dict[K, V]) Resize() error {
	if resizePolicy() != ResizeEnable || d.isRehashing() {
		return ErrExpand
	}
	minimal := d.htUsed[0]
	if minimal < initialSize {
		minimal = initialSize
	}
	return d.expand(minimal, false)
}

func (d *Dict[K, V]) expandIfNeeded() error {
	// Incremental rehashing already in progress.
	if d.isRehashing() {
		return nil
	}
	if d.htExp[0] == -1 {
		return d.expand(initialSize, false)
	}
	// Grow when we reached the 1:1 load factor and resizing is enabled, or
	// when the load factor is over the safe threshold regardless of the
	// avoid policy.
	size := htSize(d.htExp[0])
	policy := resizePolicy()
	if (policy == ResizeEnable && d.htUsed[0] >= size) ||
		(policy != ResizeForbid && d.htUsed[0]/size > forceResizeRatio) {
		if !d.typeExpandAllowed() {
			return nil
		}
		return d.expand(d.htUsed[0]+1, false)
	}
	return nil
}

// typeExpandAllowed consults the type's veto before a grow that may allocate
// a large bucket array.
func (d *Dict[K, V]) typeExpandAllowed() bool {
	if d.typ.ExpandAllowed == nil {
		return true
	}
	moreMem := uintptr(htSize(nextExp(d.htUsed[0]+1))) * ptrSize
	return d.typ.ExpandAllowed(moreMem, float64(d.htUsed[0])/float64(htSize(d.htExp[0])))
}

// nextExp returns the smallest exponent e such that 1<<e >= size. Sizes at
// or below the initial size are pinned before any bit-length computation,
// and huge requests saturate at the width of the index type.
func nextExp(size uint64) int8 {
	if size <= initialSize {
		return initialExp
	}
	if size >= math.MaxInt64 {
		return 63
	}
	return int8(64 - bits.LeadingZeros64(size-1))
}

// Clear empties the dict without releasing it. The callback, if non-nil, is
// invoked every 65536 buckets so the host can perform housekeeping during
// the teardown of a huge table.
func (d *Dict[K, V]) Clear(callback func(*Dict[K, V])) {
	d.clearTable(0, callback)
	d.clearTable(1, callback)
	d.rehashIdx = -1
	d.pauseRehash = 0
}

// Release destroys the dict, running the destructors for every live key and
// value. The dict must not be used afterwards. Release is idempotent.
func (d *Dict[K, V]) Release() {
	d.clearTable(0, nil)
	d.clearTable(1, nil)
	d.rehashIdx = -1
	d.allocator = nil
}

func (d *Dict[K, V]) clearTable(htidx int, callback func(*Dict[K, V])) {
	size := htSize(d.htExp[htidx])
	for i := uint64(0); i < size && d.htUsed[htidx] > 0; i++ {
		if callback != nil && i&65535 == 0 {
			callback(d)
		}
		ref := *d.ht[htidx].At(uintptr(i))
		for ref != nil {
			next := entryNext[K, V](ref)
			d.freeEntry(Entry[K, V]{d: d, ref: ref})
			d.htUsed[htidx]--
			ref = next
		}
	}
	if d.htExp[htidx] != -1 {
		d.allocator.FreeBuckets(d.ht[htidx].Slice(0, uintptr(size)))
	}
	d.reset(htidx)
}

func (d *Dict[K, V]) reset(htidx int) {
	d.ht[htidx] = unsafeSlice[unsafe.Pointer]{}
	d.htExp[htidx] = -1
	d.htUsed[htidx] = 0
}

// unsafeSlice provides semi-ergonomic limited slice-like functionality
// without bounds checking for fixed sized slices.
type unsafeSlice[T any] struct {
	ptr unsafe.Pointer
}

func makeUnsafeSlice[T any](s []T) unsafeSlice[T] {
	return unsafeSlice[T]{ptr: unsafe.Pointer(unsafe.SliceData(s))}
}

// At returns a pointer to the element at index i.
func (s unsafeSlice[T]) At(i uintptr) *T {
	var t T
	return (*T)(unsafe.Add(s.ptr, unsafe.Sizeof(t)*i))
}

// Slice returns a Go slice akin to slice[start:end] for a Go builtin slice.
func (s unsafeSlice[T]) Slice(start, end uintptr) []T {
	return unsafe.Slice((*T)(s.ptr), end)[start:end]
}
