// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import "github.com/pkg/errors"

// Taxonomy of error kinds shared by the core engine, the wire protocol, and
// the session orchestrator (spec §7). Call sites wrap these with
// errors.Wrapf for context; errors.Cause recovers the sentinel so the CLI
// can name the error category on stderr.
var (
	// ErrBadConfig indicates an invalid block size, invalid port, or
	// missing required argument.
	ErrBadConfig = errors.New("bad config")
	// ErrPath indicates a source that does not exist, a destination that
	// cannot be created, or a read-only parent directory.
	ErrPath = errors.New("path error")
	// ErrIO indicates a read, write, fsync, or rename failure.
	ErrIO = errors.New("io error")
	// ErrNetwork indicates a connect failure, unexpected EOF, or an
	// oversized frame.
	ErrNetwork = errors.New("network error")
	// ErrProtocol indicates a malformed frame, an out-of-order frame, an
	// out-of-range block index, or a block-size mismatch between sides.
	ErrProtocol = errors.New("protocol error")
	// ErrPermission indicates metadata preservation was attempted without
	// sufficient privilege. It is a warning, not fatal, unless the file
	// itself could not be written.
	ErrPermission = errors.New("permission error")
)

// validateBlockSize enforces spec §4.1's B >= 1 constraint.
func validateBlockSize(blockSize uint32) error {
	if blockSize == 0 {
		return errors.Wrap(ErrBadConfig, "block size must be at least 1")
	}
	return nil
}
