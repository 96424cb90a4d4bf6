// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import (
	"testing"

	"github.com/hooklift/assert"
)

// TestRollingHashLaw exercises spec §8 property 5 directly: rolling a window
// forward by one byte must agree with recomputing it from scratch.
func TestRollingHashLaw(t *testing.T) {
	data := []byte("abcdefghijklmnop")
	blockSize := 4

	w := newWindow(data[0:blockSize])
	for i := 0; i+blockSize < len(data); i++ {
		w = w.roll(data[i], data[i+blockSize])
		want := newWindow(data[i+1 : i+1+blockSize])
		assert.Equals(t, want.sum(), w.sum())
	}
}

// TestRollingHashShrink exercises the tail-shrinking phase: dropping the
// leading byte without a replacement must also agree with recomputing the
// shorter window from scratch.
func TestRollingHashShrink(t *testing.T) {
	data := []byte("abcdef")

	w := newWindow(data)
	for i := 0; i < len(data)-1; i++ {
		w = w.shrink(data[i])
		want := newWindow(data[i+1:])
		assert.Equals(t, want.sum(), w.sum())
	}
}

func TestWeakSumEmptyWindow(t *testing.T) {
	w := newWindow(nil)
	assert.Equals(t, WeakSum(0), w.sum())
}
