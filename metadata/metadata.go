// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package metadata preserves file mode, modification time, and ownership
// between a source and a destination after a successful sync. Like
// package walkdir, it is a collaborator: the core never sees it, and the
// CLI only calls it behind --metadata.
package metadata

import (
	"os"

	"github.com/pkg/errors"

	"github.com/AsheeHuang/rsynx/gsync"
)

// Apply copies srcPath's mode and modification time onto dstPath, and its
// ownership where the platform and caller's privilege allow it. A failure
// to preserve ownership is reported as ErrPermission, which the caller may
// treat as a warning rather than aborting the sync, per spec §7.
func Apply(srcPath, dstPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return errors.Wrapf(gsync.ErrPath, "statting %s: %v", srcPath, err)
	}

	if err := os.Chmod(dstPath, info.Mode().Perm()); err != nil {
		return errors.Wrapf(gsync.ErrIO, "chmod %s: %v", dstPath, err)
	}

	modTime := info.ModTime()
	if err := os.Chtimes(dstPath, modTime, modTime); err != nil {
		return errors.Wrapf(gsync.ErrIO, "chtimes %s: %v", dstPath, err)
	}

	if err := applyOwnership(info, dstPath); err != nil {
		return errors.Wrapf(gsync.ErrPermission, "preserving ownership of %s: %v", dstPath, err)
	}

	return nil
}
