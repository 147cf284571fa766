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
	"strings"
)

// statsVectLen is the number of buckets in the chain-length histogram; the
// last bucket aggregates every chain of length >= statsVectLen-1.
const statsVectLen = 50

// Stats returns a human-readable report of table health: per table, the
// size, element count, number of distinct non-empty buckets, maximum chain
// length, counted and computed average chain lengths, and (when full is set)
// a chain-length histogram. The rehash target table is included when a
// rehash is in flight.
func (d *Dict[K, V]) Stats(full bool) string {
	var sb strings.Builder
	d.tableStats(&sb, 0, full)
	if d.isRehashing() {
		d.tableStats(&sb, 1, full)
	}
	return sb.String()
}

func (d *Dict[K, V]) tableStats(sb *strings.Builder, htidx int, full bool) {
	name := "main hash table"
	if htidx == 1 {
		name = "rehashing target"
	}
	if d.htUsed[htidx] == 0 {
		fmt.Fprintf(sb,
			"Hash table %d stats (%s):\nNo stats available for empty dictionaries\n",
			htidx, name)
		return
	}
	size := htSize(d.htExp[htidx])
	if !full {
		fmt.Fprintf(sb,
			"Hash table %d stats (%s):\n"+
				" table size: %d\n"+
				" number of elements: %d\n",
			htidx, name, size, d.htUsed[htidx])
		return
	}

	var clvector [statsVectLen]uint64
	var slots, maxChainLen, totChainLen uint64
	for i := uint64(0); i < size; i++ {
		ref := *d.ht[htidx].At(uintptr(i))
		if ref == nil {
			clvector[0]++
			continue
		}
		slots++
		chainLen := uint64(0)
		for ; ref != nil; ref = entryNext[K, V](ref) {
			chainLen++
		}
		bucket := chainLen
		if bucket >= statsVectLen {
			bucket = statsVectLen - 1
		}
		clvector[bucket]++
		if chainLen > maxChainLen {
			maxChainLen = chainLen
		}
		totChainLen += chainLen
	}

	fmt.Fprintf(sb,
		"Hash table %d stats (%s):\n"+
			" table size: %d\n"+
			" number of elements: %d\n"+
			" different slots: %d\n"+
			" max chain length: %d\n"+
			" avg chain length (counted): %.02f\n"+
			" avg chain length (computed): %.02f\n"+
			" Chain length distribution:\n",
		htidx, name, size, d.htUsed[htidx], slots, maxChainLen,
		float64(totChainLen)/float64(slots),
		float64(d.htUsed[htidx])/float64(slots))
	for i := 0; i < statsVectLen; i++ {
		if clvector[i] == 0 {
			continue
		}
		label := fmt.Sprintf("%d", i)
		if i == statsVectLen-1 {
			label = fmt.Sprintf(">=%d", i)
		}
		fmt.Fprintf(sb, "   %s: %d (%.02f%%)\n",
			label, clvector[i], float64(clvector[i])/float64(size)*100)
	}
}
