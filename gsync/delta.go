// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import (
	"bufio"
	"hash"
	"io"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
)

// literalChunkCap bounds how many bytes Scan buffers before flushing a
// Literal instruction, matching the wire protocol's 64 KiB per-frame cap
// (spec §6) and keeping memory usage O(B + literalChunkCap) rather than
// O(S), as spec §4.2's Result clause requires.
const literalChunkCap = 64 * 1024

// Scan is the sender side's "Delta Scanner" (component B in spec §4.2 — "the
// hard part"): it rolls a weak checksum across src, confirms candidate
// matches with a strong hash, and emits Match/Literal instructions such that
// replaying them against the destination's old content reproduces src
// exactly.
//
// Grounded on the rolling-checksum algebra already present in the teacher's
// gsync.go (rollingHash/rollingHash2), which its own TestRollingHash test
// exercises byte-by-byte but whose Sync function never actually uses: the
// teacher's Sync only compares whole, block-aligned chunks. This generalizes
// that algebra into the real sliding-window scan spec §4.2 describes.
func Scan(src io.Reader, idx *SignatureIndex, blockSize uint32, emit InstructionWriter) (TransferStats, error) {
	if err := validateBlockSize(blockSize); err != nil {
		return TransferStats{}, err
	}

	s := newDeltaScanner(src, blockSize)
	if err := s.refill(); err != nil {
		return TransferStats{}, err
	}

	strongHash := sha256.New()
	var stats TransferStats
	var literal []byte

	flush := func() error {
		if len(literal) == 0 {
			return nil
		}
		if err := emit(Instruction{Kind: InstructionLiteral, Data: literal}); err != nil {
			return err
		}
		stats.TransferredBytes += uint64(len(literal))
		stats.TotalBytes += uint64(len(literal))
		literal = nil
		return nil
	}

	for s.windowLen() > 0 {
		w := s.windowLen()

		if sig, ok := findMatch(strongHash, s.window(), w, idx.Lookup(s.weak())); ok {
			if err := flush(); err != nil {
				return stats, err
			}
			if err := emit(Instruction{Kind: InstructionMatch, BlockIndex: sig.Index}); err != nil {
				return stats, err
			}
			stats.ReusedBytes += uint64(sig.Length)
			stats.TotalBytes += uint64(sig.Length)

			if err := s.refill(); err != nil {
				return stats, err
			}
			continue
		}

		out, err := s.advanceByOne()
		if err != nil {
			return stats, err
		}
		literal = append(literal, out)
		if len(literal) >= literalChunkCap {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	if err := emit(Instruction{Kind: InstructionEnd}); err != nil {
		return stats, err
	}

	return stats, nil
}

// findMatch computes the strong hash of block only if at least one candidate
// shares block's length, per spec §4.2 step 4's "at least one signature in
// it has length == W" gate.
func findMatch(h hash.Hash, block []byte, length uint32, candidates []BlockSignature) (BlockSignature, bool) {
	hasLengthCandidate := false
	for _, c := range candidates {
		if c.Length == length {
			hasLengthCandidate = true
			break
		}
	}
	if !hasLengthCandidate {
		return BlockSignature{}, false
	}

	h.Reset()
	h.Write(block)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))

	for _, c := range candidates {
		if c.Length == length && c.Strong == sum {
			return c, true
		}
	}
	return BlockSignature{}, false
}

// deltaScanner maintains the sliding window of up to blockSize bytes used by
// Scan, as a fixed-capacity circular buffer so that rolling the window
// forward by one byte is O(1) and total memory stays O(blockSize) instead
// of O(len(src)).
type deltaScanner struct {
	r         *bufio.Reader
	blockSize uint32
	buf       []byte // capacity blockSize, circular
	scratch   []byte // contiguous copy of the window when it wraps
	start     int    // index of the window's first byte within buf
	n         int    // number of valid bytes currently in the window
	sum       window // rolling weak-checksum state for the current window
	eof       bool   // true once the underlying reader is known exhausted
}

func newDeltaScanner(r io.Reader, blockSize uint32) *deltaScanner {
	return &deltaScanner{
		r:         bufio.NewReaderSize(r, int(blockSize)+1),
		blockSize: blockSize,
		buf:       make([]byte, blockSize),
		scratch:   make([]byte, blockSize),
	}
}

func (s *deltaScanner) windowLen() int {
	return s.n
}

func (s *deltaScanner) weak() WeakSum {
	return s.sum.sum()
}

// window returns the current window's bytes in order. It copies into a
// scratch buffer only when the circular window has wrapped past the end of
// buf; otherwise it returns a direct subslice.
func (s *deltaScanner) window() []byte {
	if s.n == 0 {
		return nil
	}
	end := s.start + s.n
	if end <= len(s.buf) {
		return s.buf[s.start:end]
	}
	first := len(s.buf) - s.start
	copy(s.scratch[:first], s.buf[s.start:])
	copy(s.scratch[first:s.n], s.buf[:end-len(s.buf)])
	return s.scratch[:s.n]
}

// refill discards whatever is left of the current window and reads a fresh
// window of up to blockSize bytes, used for the very first window and after
// every block match (spec §4.2 step 4: "Recompute the weak sum from scratch
// for the new window; do not attempt to roll across a match boundary").
func (s *deltaScanner) refill() error {
	n, eof, err := readUpTo(s.r, s.buf[:s.blockSize])
	if err != nil {
		return errors.Wrapf(ErrIO, "reading source block: %v", err)
	}
	s.start = 0
	s.n = n
	s.eof = eof
	if n > 0 {
		s.sum = newWindow(s.buf[:n])
	} else {
		s.sum = window{}
	}
	return nil
}

// advanceByOne implements one step of spec §4.2 step 4's non-match branch:
// the byte at the window's leading edge becomes a literal byte, and the
// window either rolls forward by one (a new byte is available) or shrinks
// by one (the source is exhausted, the "tail-shrinking" phase).
func (s *deltaScanner) advanceByOne() (byte, error) {
	out := s.buf[s.start]

	if !s.eof {
		in, err := s.r.ReadByte()
		if err == nil {
			s.buf[(s.start+s.n)%len(s.buf)] = in
			s.sum = s.sum.roll(out, in)
			s.start = (s.start + 1) % len(s.buf)
			return out, nil
		}
		if err != io.EOF {
			return 0, errors.Wrapf(ErrIO, "reading byte: %v", err)
		}
		s.eof = true
	}

	s.sum = s.sum.shrink(out)
	s.start = (s.start + 1) % len(s.buf)
	s.n--
	return out, nil
}

// readUpTo fills dst as completely as possible, reporting eof=true if the
// reader was exhausted before dst could be filled (or was already empty).
func readUpTo(r io.Reader, dst []byte) (n int, eof bool, err error) {
	n, err = io.ReadFull(r, dst)
	switch err {
	case nil:
		return n, false, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return n, true, nil
	default:
		return n, false, err
	}
}
