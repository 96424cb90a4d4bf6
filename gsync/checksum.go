// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

// WeakSum is the 32-bit rolling checksum used to cheaply identify candidate
// block matches before paying for a strong hash comparison. It is an
// Adler-style checksum as described in Tridgell's rsync thesis
// (https://www.samba.org/~tridge/phd_thesis.pdf): two 16-bit running sums
// combined into one 32-bit value.
type WeakSum uint32

// weakMod bounds each of the two running sums to 16 bits, matching the
// original rsync rolling checksum and the teacher's rollingHash/rollingHash2.
const weakMod = 1 << 16

// window holds the (a, b) state needed to roll a WeakSum forward one byte at
// a time without rescanning the whole block, as required by spec §3's
// rolling update law.
type window struct {
	a, b   uint32
	length uint32
}

// sum combines the running sums into the WeakSum representation: a | (b<<16).
func (w window) sum() WeakSum {
	return WeakSum(w.a | (w.b << 16))
}

// newWindow computes the checksum of block from scratch. Used for the first
// window of a scan and after every block match, where recomputing is as
// cheap and far simpler than trying to roll across the match boundary.
func newWindow(block []byte) window {
	var a, b uint32
	l := uint32(len(block))
	for i, c := range block {
		a += uint32(c)
		b += (l - uint32(i)) * uint32(c)
	}
	return window{a: a % weakMod, b: b % weakMod, length: l}
}

// roll advances a same-length window by one byte: out leaves at the front,
// in enters at the back. length is unchanged.
func (w window) roll(out, in byte) window {
	a := (w.a - uint32(out) + uint32(in)) % weakMod
	b := (w.b - w.length*uint32(out) + a) % weakMod
	return window{a: a, b: b, length: w.length}
}

// shrink drops the leading byte without replacing it, reducing length by
// one. This implements the tail-shrinking phase of spec §4.2 step 4, used
// when fewer than W bytes remain ahead of the leading edge. Every remaining
// byte's weight (length - position) is unchanged, since both its position
// and the length drop by one, so only the outgoing byte's term is removed:
// it is subtracted at its weight, the old window length.
func (w window) shrink(out byte) window {
	a := (w.a - uint32(out)) % weakMod
	b := (w.b - w.length*uint32(out)) % weakMod
	return window{a: a, b: b, length: w.length - 1}
}
