// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLocalIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	mustWrite(t, src, "Hello World")
	mustWrite(t, dst, "Hello World")

	stats, err := Local(src, dst, 1024, zerolog.Nop())
	if err != nil {
		t.Fatalf("Local: %v", err)
	}
	if stats.TransferredBytes != 0 {
		t.Errorf("transferred = %d, want 0", stats.TransferredBytes)
	}
	if stats.ReusedBytes != 11 {
		t.Errorf("reused = %d, want 11", stats.ReusedBytes)
	}
	assertFileContent(t, dst, "Hello World")
}

func TestLocalCreatesNewDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")
	mustWrite(t, src, "Content to copy")

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	stats, err := Local(src, dst, 1024, zerolog.Nop())
	if err != nil {
		t.Fatalf("Local: %v", err)
	}
	if stats.TransferredBytes != 16 {
		t.Errorf("transferred = %d, want 16", stats.TransferredBytes)
	}
	assertFileContent(t, dst, "Content to copy")
}

func TestLocalIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	mustWrite(t, src, "some content that will be synced twice over")
	mustWrite(t, dst, "some other content entirely, different length")

	if _, err := Local(src, dst, 8, zerolog.Nop()); err != nil {
		t.Fatalf("first Local: %v", err)
	}
	stats, err := Local(src, dst, 8, zerolog.Nop())
	if err != nil {
		t.Fatalf("second Local: %v", err)
	}
	if stats.TransferredBytes != 0 {
		t.Errorf("re-sync transferred = %d, want 0 (idempotence)", stats.TransferredBytes)
	}
}

func TestLocalRejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Local(filepath.Join(dir, "nope.txt"), filepath.Join(dir, "dst.txt"), 1024, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("content of %s = %q, want %q", path, got, want)
	}
}
