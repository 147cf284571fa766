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

import "fmt"

// checkInvariants validates the structural invariants of the table pair.
// It is compiled away unless the invariants build tag is set; with the tag
// it runs after every structural mutation, making test failures loud and
// close to their cause.
func (d *Dict[K, V]) checkInvariants() {
	if !invariantsEnabled {
		return
	}
	if !d.isRehashing() {
		if d.htUsed[1] != 0 || d.htExp[1] != -1 {
			panic(fmt.Sprintf("invariant failed: idle dict has a rehash table (exp=%d used=%d)",
				d.htExp[1], d.htUsed[1]))
		}
	} else {
		if d.htExp[0] == -1 || d.htExp[1] == -1 {
			panic(fmt.Sprintf("invariant failed: rehashing dict missing a table (exp0=%d exp1=%d)",
				d.htExp[0], d.htExp[1]))
		}
		for i := int64(0); i < d.rehashIdx; i++ {
			if *d.ht[0].At(uintptr(i)) != nil {
				panic(fmt.Sprintf("invariant failed: migrated bucket %d is not empty", i))
			}
		}
	}
	for t := 0; t < 2; t++ {
		var n uint64
		for i := uint64(0); i < htSize(d.htExp[t]); i++ {
			for ref := *d.ht[t].At(uintptr(i)); ref != nil; ref = entryNext[K, V](ref) {
				if tag := refTag(ref); tag != entryPtrNormal && tag != entryPtrKeyOnly && tag != entryPtrNoValue {
					panic(fmt.Sprintf("invariant failed: entry tag %d in table %d bucket %d", tag, t, i))
				}
				n++
			}
		}
		if n != d.htUsed[t] {
			panic(fmt.Sprintf("invariant failed: table %d holds %d entries but used count is %d",
				t, n, d.htUsed[t]))
		}
	}
}
