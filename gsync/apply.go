// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// BlockLengthFunc resolves a block index to its length, the second return
// being false if the index is out of range. *SignatureIndex.BlockLength has
// this shape.
type BlockLengthFunc func(index uint32) (uint32, bool)

// InstructionReader yields the instructions Apply consumes, one at a time.
// Next returns io.EOF if the underlying stream is exhausted before an
// InstructionEnd was produced, which Apply treats as a protocol error.
type InstructionReader interface {
	Next() (Instruction, error)
}

// Apply reconstructs a file: Match instructions copy BlockLength(index)
// bytes from cache (the destination's old content) at offset
// index*blockSize; Literal instructions are written verbatim. It is the
// receiver side's "Patch Applier" (component C in spec §4.3).
//
// Grounded on the teacher's gsync_server.go Apply function, generalized to
// pull from an InstructionReader instead of draining a channel so the same
// function serves the local in-process pipeline and the network server
// reading frames off a socket.
func Apply(dst io.Writer, cache io.ReaderAt, blockSize uint32, lengths BlockLengthFunc, in InstructionReader) (TransferStats, error) {
	var stats TransferStats

	for {
		instr, err := in.Next()
		if err == io.EOF {
			return stats, errors.Wrapf(ErrProtocol, "instruction stream ended without End")
		}
		if err != nil {
			return stats, err
		}

		switch instr.Kind {
		case InstructionLiteral:
			if _, err := dst.Write(instr.Data); err != nil {
				return stats, errors.Wrapf(ErrIO, "writing literal: %v", err)
			}
			stats.TransferredBytes += uint64(len(instr.Data))
			stats.TotalBytes += uint64(len(instr.Data))

		case InstructionMatch:
			length, ok := lengths(instr.BlockIndex)
			if !ok {
				return stats, errors.Wrapf(ErrProtocol, "match references out-of-range block %d", instr.BlockIndex)
			}
			offset := int64(instr.BlockIndex) * int64(blockSize)
			buf := make([]byte, length)
			if _, err := io.ReadFull(io.NewSectionReader(cache, offset, int64(length)), buf); err != nil {
				return stats, errors.Wrapf(ErrIO, "reading cached block %d: %v", instr.BlockIndex, err)
			}
			if _, err := dst.Write(buf); err != nil {
				return stats, errors.Wrapf(ErrIO, "writing matched block %d: %v", instr.BlockIndex, err)
			}
			stats.ReusedBytes += uint64(length)
			stats.TotalBytes += uint64(length)

		case InstructionEnd:
			return stats, nil

		default:
			return stats, errors.Wrapf(ErrProtocol, "unknown instruction kind %d", instr.Kind)
		}
	}
}

// ApplyToFile runs Apply against a temporary sibling of destPath and
// atomically renames it over destPath on success, per spec §3's lifecycle
// note and §4.3's contract. On any error the temporary file is unlinked and
// destPath is left untouched.
func ApplyToFile(destPath string, cache io.ReaderAt, blockSize uint32, lengths BlockLengthFunc, in InstructionReader) (TransferStats, error) {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".rsynx-*")
	if err != nil {
		return TransferStats{}, errors.Wrapf(ErrIO, "creating temp file in %s: %v", dir, err)
	}
	tmpPath := tmp.Name()

	stats, applyErr := Apply(tmp, cache, blockSize, lengths, in)
	if applyErr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return stats, applyErr
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return stats, errors.Wrapf(ErrIO, "fsyncing %s: %v", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return stats, errors.Wrapf(ErrIO, "closing %s: %v", tmpPath, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return stats, errors.Wrapf(ErrIO, "renaming %s to %s: %v", tmpPath, destPath, err)
	}

	return stats, nil
}
