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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomEntryEmpty(t *testing.T) {
	d := New(intType)
	_, ok := d.RandomEntry()
	require.False(t, ok)
	_, ok = d.FairRandomEntry()
	require.False(t, ok)
	require.Nil(t, d.SomeEntries(10))
}

func TestRandomEntry(t *testing.T) {
	test := func(t *testing.T, d *Dict[int, int], e map[int]int) {
		hits := make(map[int]int)
		for i := 0; i < 10000; i++ {
			ent, ok := d.RandomEntry()
			require.True(t, ok)
			v, present := e[ent.Key()]
			require.True(t, present)
			require.Equal(t, v, ent.Value())
			hits[ent.Key()]++
		}
		// Coarse uniformity: a sample this large should touch most keys.
		require.Greater(t, len(hits), len(e)/2)
	}

	src := rand.New(rand.NewPCG(1, 2))
	d := New(intType, WithRandomSource[int, int](src.Uint64))
	e := make(map[int]int)
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Add(i, i*3))
		e[i] = i * 3
	}

	t.Run("idle", func(t *testing.T) {
		drainRehash(d)
		test(t, d, e)
	})

	t.Run("mid-rehash", func(t *testing.T) {
		drainRehash(d)
		require.NoError(t, d.Expand(1024))
		d.Rehash(3)
		test(t, d, e)
	})
}

func TestSomeEntries(t *testing.T) {
	src := rand.New(rand.NewPCG(7, 9))
	d := New(intType, WithRandomSource[int, int](src.Uint64))
	e := make(map[int]bool)
	for i := 0; i < 500; i++ {
		require.NoError(t, d.Add(i, i))
		e[i] = true
	}

	// The sample never exceeds the requested count and contains only live
	// entries.
	for _, count := range []int{1, 10, 100} {
		got := d.SomeEntries(count)
		require.LessOrEqual(t, len(got), count)
		require.NotEmpty(t, got)
		for _, ent := range got {
			require.True(t, e[ent.Key()])
		}
	}

	// A request beyond the dict size is clamped.
	got := d.SomeEntries(10000)
	require.LessOrEqual(t, len(got), 500)
}

func TestSomeEntriesMidShrink(t *testing.T) {
	src := rand.New(rand.NewPCG(11, 13))
	d := New(intType, WithRandomSource[int, int](src.Uint64))
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.Add(i, i))
	}
	drainRehash(d)
	for i := 64; i < 1000; i++ {
		require.NoError(t, d.Delete(i))
	}
	require.NoError(t, d.Resize())
	require.True(t, d.isRehashing())

	got := d.SomeEntries(32)
	for _, ent := range got {
		require.Less(t, ent.Key(), 64)
	}
}

func TestFairRandomEntry(t *testing.T) {
	src := rand.New(rand.NewPCG(3, 5))
	d := New(intType, WithRandomSource[int, int](src.Uint64))
	e := make(map[int]bool)
	for i := 0; i < 200; i++ {
		require.NoError(t, d.Add(i, i))
		e[i] = true
	}
	for i := 0; i < 1000; i++ {
		ent, ok := d.FairRandomEntry()
		require.True(t, ok)
		require.True(t, e[ent.Key()])
	}
}
