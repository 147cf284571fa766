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
	"encoding/binary"
	"unsafe"

	"github.com/dchest/siphash"
)

// hashSeed is the process-wide 16-byte key for the default SipHash-2-4
// helpers. Set it once at startup, before any dict is populated.
var hashSeed [16]byte

// SetHashSeed sets the process-wide hash seed.
func SetHashSeed(seed [16]byte) { hashSeed = seed }

// HashSeed returns the process-wide hash seed.
func HashSeed() [16]byte { return hashSeed }

func seedKeys() (k0, k1 uint64) {
	return binary.LittleEndian.Uint64(hashSeed[0:8]),
		binary.LittleEndian.Uint64(hashSeed[8:16])
}

// HashBytes hashes b with SipHash-2-4 keyed by the process-wide seed.
func HashBytes(b []byte) uint64 {
	k0, k1 := seedKeys()
	return siphash.Hash(k0, k1, b)
}

// HashString hashes s with SipHash-2-4 keyed by the process-wide seed,
// without copying the string.
func HashString(s string) uint64 {
	return HashBytes(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// HashStringNoCase is HashString with ASCII letters folded to lower case, so
// keys differing only in case hash identically.
func HashStringNoCase(s string) uint64 {
	h := siphash.New(hashSeed[:])
	var buf [64]byte
	for i := 0; i < len(s); i += len(buf) {
		n := copy(buf[:], s[i:])
		for j := 0; j < n; j++ {
			if c := buf[j]; c >= 'A' && c <= 'Z' {
				buf[j] = c + 'a' - 'A'
			}
		}
		h.Write(buf[:n])
	}
	return h.Sum64()
}
