// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package session

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AsheeHuang/rsynx/gsync"
	"github.com/AsheeHuang/rsynx/wire"
)

// dialTimeout bounds the initial TCP connect attempt. The core has no
// notion of timeouts (spec §5); this lives at the collaborator boundary.
const dialTimeout = 10 * time.Second

// ClientResult carries the outcome of a network-mode client run.
type ClientResult struct {
	Stats     gsync.TransferStats
	SessionID string
}

// RunClient implements the CLIENT half of spec §4.4's network state
// machine: Connect → SendHello → RecvSignatures → Scan/SendInstructions →
// Close. It is the sender: it owns srcPath and produces instructions from
// the signatures the server (the receiver) sends back.
func RunClient(addr, srcPath, remotePath string, blockSize uint32, log zerolog.Logger) (ClientResult, error) {
	sessionID := uuid.NewString()
	log = log.With().Str("session", sessionID).Logger()

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to connect")
		return ClientResult{}, errors.Wrapf(gsync.ErrNetwork, "connecting to %s: %v", addr, err)
	}
	defer conn.Close()

	fmt.Println("Connected to remote server")
	log.Info().Str("addr", addr).Str("remote_path", remotePath).Msg("connected")

	if err := wire.WriteHello(conn, blockSize, remotePath); err != nil {
		return ClientResult{SessionID: sessionID}, errors.Wrapf(err, "sending hello")
	}

	fileLen, sigs, err := wire.ReadSignatures(conn)
	if err != nil {
		return ClientResult{SessionID: sessionID}, errors.Wrapf(err, "receiving signatures")
	}
	idx := gsync.NewSignatureIndex(blockSize, sigs)
	log.Debug().Int("blocks", idx.BlockCount()).Uint64("remote_len", fileLen).Msg("received signatures")

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return ClientResult{SessionID: sessionID}, errors.Wrapf(gsync.ErrPath, "opening source %s: %v", srcPath, err)
	}
	defer srcFile.Close()

	stats, err := gsync.Scan(srcFile, idx, blockSize, wire.InstructionWriterTo(conn))
	if err != nil {
		return ClientResult{SessionID: sessionID}, errors.Wrapf(err, "scanning %s", srcPath)
	}

	log.Info().
		Uint64("transferred_bytes", stats.TransferredBytes).
		Uint64("reused_bytes", stats.ReusedBytes).
		Msg("sync complete")

	return ClientResult{Stats: stats, SessionID: sessionID}, nil
}
