// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gsync implements the rsync family of algorithms: a block-signature
// generator, a rolling-checksum delta scanner, and a patch applier that
// together reconstruct a destination file so it becomes byte-identical to a
// source file while transferring only the bytes that cannot be reused from
// the destination's existing content.
//
// The package is a pure library: it has no opinion about local files versus
// network sockets, does no logging, and does not print anything. Callers in
// session/ and cmd/rsynx wire it up to files, TCP connections, and the user.
package gsync

// DefaultBlockSize is used when a caller does not specify a block size.
const DefaultBlockSize = 1024

// BlockSignature is the signature of a single destination block: its index,
// its length (equal to the block size except possibly for the last block),
// and its weak and strong checksums.
type BlockSignature struct {
	Index  uint32
	Length uint32
	Weak   WeakSum
	Strong [32]byte // SHA-256 digest
}

// SignatureIndex is the immutable, weak-sum-keyed lookup structure a Scan
// uses to find match candidates. Multiple blocks may share a weak sum; a
// bucket preserves block-index order, matching the teacher's convention of
// appending to `t[weak]` in insertion order.
type SignatureIndex struct {
	BlockSize uint32
	lengths   []uint32
	buckets   map[WeakSum][]BlockSignature
}

// NewSignatureIndex builds a SignatureIndex from an ordered list of block
// signatures (index 0..N-1, ascending) produced by Signatures.
func NewSignatureIndex(blockSize uint32, sigs []BlockSignature) *SignatureIndex {
	idx := &SignatureIndex{
		BlockSize: blockSize,
		lengths:   make([]uint32, len(sigs)),
		buckets:   make(map[WeakSum][]BlockSignature, len(sigs)),
	}
	for _, s := range sigs {
		idx.lengths[s.Index] = s.Length
		idx.buckets[s.Weak] = append(idx.buckets[s.Weak], s)
	}
	return idx
}

// Lookup returns the candidate signatures sharing a weak sum, in block-index
// order, or nil if there is no bucket for w.
func (idx *SignatureIndex) Lookup(w WeakSum) []BlockSignature {
	return idx.buckets[w]
}

// BlockCount reports N, the number of blocks the destination was split into.
func (idx *SignatureIndex) BlockCount() int {
	return len(idx.lengths)
}

// BlockLength reports the length of block i, which is BlockSize except
// possibly for the final block (i == BlockCount()-1).
func (idx *SignatureIndex) BlockLength(i uint32) (uint32, bool) {
	if int(i) >= len(idx.lengths) {
		return 0, false
	}
	return idx.lengths[i], true
}

// InstructionKind identifies which variant of the tagged Instruction union is
// populated.
type InstructionKind uint8

const (
	// InstructionMatch copies BlockLength(BlockIndex) bytes from the
	// destination's old content at offset BlockIndex*BlockSize.
	InstructionMatch InstructionKind = iota
	// InstructionLiteral writes Data verbatim.
	InstructionLiteral
	// InstructionEnd terminates the instruction stream.
	InstructionEnd
)

// Instruction is one step of file reconstruction, as emitted by Scan and
// consumed by Apply.
type Instruction struct {
	Kind       InstructionKind
	BlockIndex uint32 // valid when Kind == InstructionMatch
	Data       []byte // valid when Kind == InstructionLiteral
}

// InstructionWriter receives instructions as Scan produces them. Scan calls
// it synchronously and in order; implementations that need to hop onto a
// socket or channel should do so without buffering the whole stream.
type InstructionWriter func(Instruction) error

// TransferStats summarizes a completed Scan.
type TransferStats struct {
	TransferredBytes uint64 // sum of literal lengths
	ReusedBytes      uint64 // sum of matched block lengths
	TotalBytes       uint64 // TransferredBytes + ReusedBytes == source length
}
