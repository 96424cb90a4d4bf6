// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package walkdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AsheeHuang/rsynx/gsync"
)

func copySync(srcPath, dstPath string) (gsync.TransferStats, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return gsync.TransferStats{}, err
	}
	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return gsync.TransferStats{}, err
	}
	return gsync.TransferStats{TransferredBytes: uint64(len(data))}, nil
}

func TestSyncWalksEveryFile(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()

	write(t, filepath.Join(srcRoot, "a.txt"), "a")
	write(t, filepath.Join(srcRoot, "sub", "b.txt"), "b")

	res, err := Sync(srcRoot, dstRoot, false, copySync, zerolog.Nop())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("synced %d files, want 2", len(res.Files))
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failed)
	}
	assertContent(t, filepath.Join(dstRoot, "a.txt"), "a")
	assertContent(t, filepath.Join(dstRoot, "sub", "b.txt"), "b")
}

func TestSyncPrunesExtraneousAfterSuccess(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()

	write(t, filepath.Join(srcRoot, "keep.txt"), "keep")
	write(t, filepath.Join(dstRoot, "keep.txt"), "old")
	write(t, filepath.Join(dstRoot, "stale.txt"), "stale")

	res, err := Sync(srcRoot, dstRoot, true, copySync, zerolog.Nop())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(res.Pruned) != 1 || res.Pruned[0] != "stale.txt" {
		t.Errorf("pruned = %v, want [stale.txt]", res.Pruned)
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "stale.txt")); !os.IsNotExist(err) {
		t.Error("expected stale.txt to be removed")
	}
}

func TestSyncDoesNotPruneOnFailure(t *testing.T) {
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()

	write(t, filepath.Join(srcRoot, "a.txt"), "a")
	write(t, filepath.Join(dstRoot, "stale.txt"), "stale")

	failing := func(srcPath, dstPath string) (gsync.TransferStats, error) {
		return gsync.TransferStats{}, os.ErrInvalid
	}

	res, err := Sync(srcRoot, dstRoot, true, failing, zerolog.Nop())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(res.Failed))
	}
	if len(res.Pruned) != 0 {
		t.Error("expected no pruning after a failed file")
	}
	if _, err := os.Stat(filepath.Join(dstRoot, "stale.txt")); err != nil {
		t.Error("expected stale.txt to survive a failed walk")
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("content of %s = %q, want %q", path, got, want)
	}
}
