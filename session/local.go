// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package session implements spec §4.4's session orchestrator: local mode,
// which runs the signature generator, delta scanner, and patch applier
// in-process against two paths, and network mode, which splits them across
// a TCP client and server using package wire's framing.
package session

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AsheeHuang/rsynx/gsync"
)

// emptyReaderAt stands in for a destination that does not yet exist: a
// zero-length file, so the signature generator produces zero blocks and the
// scanner sends the whole source as literals (spec §8 scenario S5).
type emptyReaderAt struct{}

func (emptyReaderAt) ReadAt([]byte, int64) (int, error) { return 0, io.EOF }

// Local runs components A, B, and C in one process against two filesystem
// paths, with no framing involved, per spec §4.4. A destination that does
// not exist is treated as an empty file rather than an error — creating a new
// destination (spec §8 S5) is a degenerate case of syncing against nothing.
// A source that cannot be opened is reported as ErrPath.
func Local(srcPath, dstPath string, blockSize uint32, log zerolog.Logger) (gsync.TransferStats, error) {
	dstFile, dstExists, err := openExisting(dstPath)
	if err != nil {
		return gsync.TransferStats{}, err
	}
	if dstFile != nil {
		defer dstFile.Close()
	}

	var sigReader io.Reader = bytes.NewReader(nil)
	var cache io.ReaderAt = emptyReaderAt{}
	if dstExists {
		sigReader = dstFile
		cache = dstFile
	}

	sigs, err := gsync.Signatures(sigReader, blockSize)
	if err != nil {
		return gsync.TransferStats{}, errors.Wrapf(err, "generating signatures for %s", dstPath)
	}
	idx := gsync.NewSignatureIndex(blockSize, sigs)
	log.Debug().Int("blocks", idx.BlockCount()).Str("dst", dstPath).Msg("signatures generated")

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return gsync.TransferStats{}, errors.Wrapf(gsync.ErrPath, "opening source %s: %v", srcPath, err)
	}
	defer srcFile.Close()

	instructions := make(chan gsync.Instruction, 64)
	scanDone := make(chan error, 1)
	go func() {
		_, scanErr := gsync.Scan(srcFile, idx, blockSize, func(instr gsync.Instruction) error {
			instructions <- instr
			return nil
		})
		close(instructions)
		scanDone <- scanErr
	}()

	stats, applyErr := gsync.ApplyToFile(dstPath, cache, blockSize, idx.BlockLength, chanInstructionReader{ch: instructions, done: scanDone})
	if applyErr != nil {
		// The scanner may still be blocked sending to instructions; drain it
		// in the background so its goroutine isn't leaked.
		go func() {
			for range instructions {
			}
		}()
		return stats, errors.Wrapf(applyErr, "applying instructions to %s", dstPath)
	}

	log.Info().
		Uint64("transferred_bytes", stats.TransferredBytes).
		Uint64("reused_bytes", stats.ReusedBytes).
		Str("src", srcPath).
		Str("dst", dstPath).
		Msg("sync complete")

	return stats, nil
}

// openExisting opens path if it exists, reporting (nil, false, nil) if it
// does not and a wrapped ErrPath for any other failure.
func openExisting(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, true, nil
	}
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	return nil, false, errors.Wrapf(gsync.ErrPath, "opening %s: %v", path, err)
}

// chanInstructionReader bridges Scan's push-style emission (a callback) to
// Apply's pull-style consumption (gsync.InstructionReader), so the same
// Apply implementation serves both local, in-process pipelines and network
// connections reading wire frames.
type chanInstructionReader struct {
	ch   <-chan gsync.Instruction
	done <-chan error
}

func (c chanInstructionReader) Next() (gsync.Instruction, error) {
	if instr, ok := <-c.ch; ok {
		return instr, nil
	}
	if err := <-c.done; err != nil {
		return gsync.Instruction{}, err
	}
	return gsync.Instruction{}, io.EOF
}
