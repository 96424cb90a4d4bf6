// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package session

import (
	"bytes"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AsheeHuang/rsynx/gsync"
	"github.com/AsheeHuang/rsynx/wire"
)

// Serve accepts connections on listener serially — each one is handled to
// completion before the next is accepted, per spec §5's deliberate
// simplicity choice of no shared mutable state and no partial-failure
// fan-in. It runs until listener.Accept fails, which happens when the
// caller closes the listener.
func Serve(listener net.Listener, log zerolog.Logger) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return errors.Wrapf(gsync.ErrNetwork, "accepting connection: %v", err)
		}
		handleConnection(conn, log)
	}
}

// handleConnection implements the SERVER half of spec §4.4's network state
// machine: Accept → RecvHello → SendSignatures → RecvInstructions/Apply →
// Close. It is the receiver: it owns the destination file at the requested
// path and produces signatures for the client (the sender) to scan against.
func handleConnection(conn net.Conn, log zerolog.Logger) {
	defer conn.Close()

	sessionID := uuid.NewString()
	log = log.With().Str("session", sessionID).Logger()

	blockSize, path, err := wire.ReadHello(conn)
	if err != nil {
		log.Warn().Err(err).Msg("failed reading hello")
		return
	}
	log.Info().Str("path", path).Uint32("block_size", blockSize).Msg("hello received")

	dstFile, dstExists, err := openExisting(path)
	if err != nil {
		reportFatal(conn, err, log)
		return
	}
	if dstFile != nil {
		defer dstFile.Close()
	}

	var sigReader io.Reader = bytes.NewReader(nil)
	var cache io.ReaderAt = emptyReaderAt{}
	var fileLen uint64
	if dstExists {
		sigReader = dstFile
		cache = dstFile
		if info, statErr := dstFile.Stat(); statErr == nil {
			fileLen = uint64(info.Size())
		}
	}

	sigs, err := gsync.Signatures(sigReader, blockSize)
	if err != nil {
		reportFatal(conn, err, log)
		return
	}

	if err := wire.WriteSignatures(conn, fileLen, sigs); err != nil {
		log.Warn().Err(err).Msg("failed sending signatures")
		return
	}

	idx := gsync.NewSignatureIndex(blockSize, sigs)
	stats, err := gsync.ApplyToFile(path, cache, blockSize, idx.BlockLength, wire.InstructionReader{R: conn})
	if err != nil {
		// The client may have disconnected mid-stream (spec §5's
		// cancellation clause); ApplyToFile already unlinked its temp
		// file and left path untouched. Best-effort error report only.
		log.Warn().Err(err).Msg("failed applying instructions")
		reportFatal(conn, err, log)
		return
	}

	log.Info().
		Uint64("transferred_bytes", stats.TransferredBytes).
		Uint64("reused_bytes", stats.ReusedBytes).
		Str("path", path).
		Msg("sync complete")
}

// reportFatal makes a best-effort attempt to tell the client why the
// session is being aborted before closing the connection.
func reportFatal(conn net.Conn, cause error, log zerolog.Logger) {
	if err := wire.WriteError(conn, 1, cause.Error()); err != nil {
		log.Warn().Err(err).Msg("failed sending error frame")
	}
}
