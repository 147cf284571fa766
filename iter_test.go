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
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIteratorVisitsAll(t *testing.T) {
	test := func(t *testing.T, d *Dict[int, int], count int) {
		seen := make(map[int]int)
		it := d.Iterator()
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			seen[e.Key()] = e.Value()
		}
		it.Release()
		require.Equal(t, d.toBuiltinMap(), seen)
		require.Equal(t, count, len(seen))
	}

	t.Run("idle", func(t *testing.T) {
		d := New(intType)
		for i := 0; i < 1000; i++ {
			require.NoError(t, d.Add(i, i))
		}
		drainRehash(d)
		test(t, d, 1000)
	})

	t.Run("mid-rehash", func(t *testing.T) {
		d := New(intType)
		for i := 0; i < 1000; i++ {
			require.NoError(t, d.Add(i, i))
		}
		drainRehash(d)
		require.NoError(t, d.Expand(4096))
		d.Rehash(100)
		require.True(t, d.isRehashing())
		test(t, d, 1000)
	})

	t.Run("empty", func(t *testing.T) {
		d := New(intType)
		it := d.Iterator()
		_, ok := it.Next()
		require.False(t, ok)
		it.Release()
	})
}

func TestFingerprintStability(t *testing.T) {
	d := New(strType)
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(strconv.Itoa(i), int64(i)))
	}
	require.Equal(t, d.fingerprint(), d.fingerprint())

	fp := d.fingerprint()
	require.NoError(t, d.Add("x", 1))
	require.NotEqual(t, fp, d.fingerprint())
}

func TestUnsafeIteratorDetectsMutation(t *testing.T) {
	d := New(strType)
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(strconv.Itoa(i), int64(i)))
	}

	it := d.Iterator()
	for i := 0; i < 10; i++ {
		_, ok := it.Next()
		require.True(t, ok)
	}
	require.NoError(t, d.Add("fresh", 1))
	require.Panics(t, func() { it.Release() })
}

func TestUnsafeIteratorCleanRelease(t *testing.T) {
	d := New(strType)
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(strconv.Itoa(i), int64(i)))
	}
	it := d.Iterator()
	for _, ok := it.Next(); ok; _, ok = it.Next() {
	}
	require.NotPanics(t, func() { it.Release() })

	// Releasing a never-advanced iterator is always fine.
	require.NotPanics(t, func() { d.Iterator().Release() })
}

func TestSafeIteratorDeleteWhileIterating(t *testing.T) {
	keyFrees := make(map[string]int)
	typ := &Type[string, int64]{
		Hash:    HashString,
		FreeKey: func(k string) { keyFrees[k]++ },
	}
	d := New(typ)
	const count = 1000
	for i := 0; i < count; i++ {
		require.NoError(t, d.Add(strconv.Itoa(i), int64(i)))
	}

	it := d.SafeIterator()
	deleted := 0
	for i := 0; ; i++ {
		e, ok := it.Next()
		if !ok {
			break
		}
		if i%2 == 0 {
			require.NoError(t, d.Delete(e.Key()))
			deleted++
		}
	}
	it.Release()
	require.EqualValues(t, 0, d.pauseRehash)
	require.Equal(t, count-deleted, d.Len())
	for k, n := range keyFrees {
		require.Equalf(t, 1, n, "key %s freed %d times", k, n)
	}
	require.Equal(t, deleted, len(keyFrees))
}

func TestSafeIteratorPausesRehash(t *testing.T) {
	d := New(intType)
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.Add(i, i))
	}
	drainRehash(d)
	require.NoError(t, d.Expand(4096))
	idx := d.rehashIdx

	it := d.SafeIterator()
	_, ok := it.Next()
	require.True(t, ok)

	// Lookups normally advance the rehash by one step; with a safe iterator
	// open they must not.
	for i := 0; i < 100; i++ {
		d.Find(i)
	}
	require.Equal(t, idx, d.rehashIdx)

	// An explicit bulk rehash is not suppressed by the pause.
	require.True(t, d.Rehash(1))
	require.NotEqual(t, idx, d.rehashIdx)

	it.Release()
	require.EqualValues(t, 0, d.pauseRehash)
}

func TestRehashDuration(t *testing.T) {
	d := New(intType)
	for i := 0; i < 100000; i++ {
		require.NoError(t, d.Add(i, i))
	}
	drainRehash(d)
	require.NoError(t, d.Expand(1 << 18))
	require.True(t, d.isRehashing())

	steps := d.RehashDuration(100 * time.Millisecond)
	require.Greater(t, steps, 0)
	drainRehash(d)
	require.False(t, d.isRehashing())

	// Paused dicts refuse bulk rehashing entirely.
	require.NoError(t, d.Expand(1<<19))
	d.pauseRehashing()
	require.Equal(t, 0, d.RehashDuration(time.Millisecond))
	d.resumeRehashing()
}

func TestAllEarlyStop(t *testing.T) {
	d := New(intType)
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(i, i))
	}
	n := 0
	d.All(func(e Entry[int, int]) bool {
		n++
		return n < 10
	})
	require.Equal(t, 10, n)
	require.EqualValues(t, 0, d.pauseRehash)
}
