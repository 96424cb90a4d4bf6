// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import (
	"bytes"
	"testing"

	"github.com/hooklift/assert"
)

func TestSignaturesEmptySource(t *testing.T) {
	sigs, err := Signatures(bytes.NewReader(nil), 4)
	assert.Ok(t, err)
	assert.Equals(t, 0, len(sigs))
}

func TestSignaturesBlockCountAndShortFinalBlock(t *testing.T) {
	sigs, err := Signatures(bytes.NewReader([]byte("abcdefghij")), 4)
	assert.Ok(t, err)
	assert.Equals(t, 3, len(sigs))
	assert.Equals(t, uint32(4), sigs[0].Length)
	assert.Equals(t, uint32(4), sigs[1].Length)
	assert.Equals(t, uint32(2), sigs[2].Length)
	for i, s := range sigs {
		assert.Equals(t, uint32(i), s.Index)
	}
}

func TestSignaturesRejectsZeroBlockSize(t *testing.T) {
	_, err := Signatures(bytes.NewReader([]byte("x")), 0)
	assert.Cond(t, err != nil, "expected an error for a zero block size")
}

func TestSignatureIndexLookup(t *testing.T) {
	sigs, err := Signatures(bytes.NewReader([]byte("aaaaaaaabbbb")), 4)
	assert.Ok(t, err)

	idx := NewSignatureIndex(4, sigs)
	assert.Equals(t, 3, idx.BlockCount())

	candidates := idx.Lookup(sigs[0].Weak)
	assert.Cond(t, len(candidates) >= 1, "expected at least one candidate for a repeated block")

	length, ok := idx.BlockLength(2)
	assert.Cond(t, ok, "expected BlockLength to find index 2")
	assert.Equals(t, uint32(4), length)

	_, ok = idx.BlockLength(99)
	assert.Cond(t, !ok, "expected BlockLength to report false for an out-of-range index")
}
