// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// base85Alphabet is the RFC 1924 alphabet. It contains no quote characters
// and no backslash, so encoded payloads can be embedded verbatim inside a
// quoted string literal in the generated driver script.
const base85Alphabet = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"!#$%&()*+-;<=>?@^_`{|}~"

var base85Reverse [256]int16

func init() {
	for i := range base85Reverse {
		base85Reverse[i] = -1
	}
	for i := 0; i < len(base85Alphabet); i++ {
		base85Reverse[base85Alphabet[i]] = int16(i)
	}
}

// encodeBase85 encodes src into the RFC 1924 base85 alphabet. The input is
// zero-padded to a 4-byte boundary so the output always consists of full
// 5-character groups; the gob stream carried inside is self-delimiting, so
// the padding is inert on decode.
func encodeBase85(src []byte) string {
	var out strings.Builder
	out.Grow((len(src) + 3) / 4 * 5)
	for off := 0; off < len(src); off += 4 {
		var chunk [4]byte
		copy(chunk[:], src[off:])
		v := binary.BigEndian.Uint32(chunk[:])
		var group [5]byte
		for i := 4; i >= 0; i-- {
			group[i] = base85Alphabet[v%85]
			v /= 85
		}
		out.Write(group[:])
	}
	return out.String()
}

// decodeBase85 reverses encodeBase85. The returned slice may carry up to
// three trailing zero bytes of padding.
func decodeBase85(s string) ([]byte, error) {
	if len(s)%5 != 0 {
		return nil, fmt.Errorf("base85 payload length %d is not a multiple of 5", len(s))
	}
	out := make([]byte, 0, len(s)/5*4)
	for off := 0; off < len(s); off += 5 {
		var v uint64
		for i := 0; i < 5; i++ {
			d := base85Reverse[s[off+i]]
			if d < 0 {
				return nil, fmt.Errorf("invalid base85 character %q at offset %d", s[off+i], off+i)
			}
			v = v*85 + uint64(d)
		}
		if v > 0xFFFFFFFF {
			return nil, fmt.Errorf("base85 group at offset %d overflows 32 bits", off)
		}
		var chunk [4]byte
		binary.BigEndian.PutUint32(chunk[:], uint32(v))
		out = append(out, chunk[:]...)
	}
	return out, nil
}
