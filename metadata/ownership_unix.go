// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build unix

package metadata

import (
	"os"

	"golang.org/x/sys/unix"
)

// applyOwnership chowns dstPath to match srcInfo's owning user and group.
// Grounded on mutagen's pkg/filesystem ownership_posix.go, which extracts
// Uid/Gid from the platform Stat_t rather than trusting os.FileInfo alone.
func applyOwnership(srcInfo os.FileInfo, dstPath string) error {
	stat, ok := srcInfo.Sys().(*unix.Stat_t)
	if !ok {
		return nil
	}
	return unix.Chown(dstPath, int(stat.Uid), int(stat.Gid))
}
