// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build windows

package metadata

import "os"

// applyOwnership is a no-op on Windows: ownership is expressed through ACLs,
// not a uid/gid pair, and the spec's --metadata preservation targets the
// portable mode/mtime/ownership triad rsync itself preserves on POSIX.
func applyOwnership(srcInfo os.FileInfo, dstPath string) error {
	return nil
}
