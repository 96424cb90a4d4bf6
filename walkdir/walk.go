// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package walkdir implements directory-mode synchronization: applying a
// single-file sync function pairwise across every regular file under a
// source tree, with optional pruning of destination entries the source no
// longer has. It is a collaborator, not core: the core (package gsync) only
// ever sees one file at a time.
package walkdir

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/AsheeHuang/rsynx/gsync"
)

// SyncFunc syncs one file from srcPath to dstPath, returning transfer
// statistics. The CLI adapts session.Local to this shape with a closure that
// supplies the block size and logger.
type SyncFunc func(srcPath, dstPath string) (gsync.TransferStats, error)

// FileResult records the outcome of syncing one relative path.
type FileResult struct {
	RelPath string
	Stats   gsync.TransferStats
	Err     error
}

// Result summarizes a directory-mode sync: every file attempted, and the
// subset that failed. A non-empty Failed means the overall exit code must
// be non-zero even though the walk itself completed (spec §7's propagation
// policy: a per-file failure is logged but does not abort the walk).
type Result struct {
	Files  []FileResult
	Failed []FileResult
	Pruned []string
}

// Sync walks srcRoot, syncing every regular file it finds to the
// corresponding relative path under dstRoot via sync. If prune is true and
// every file synced successfully, destination entries with no matching
// source file are removed afterward — never mid-walk, per spec §9.
func Sync(srcRoot, dstRoot string, prune bool, sync SyncFunc, log zerolog.Logger) (Result, error) {
	relPaths, err := collectFiles(srcRoot)
	if err != nil {
		return Result{}, err
	}

	bar := progressbar.NewOptions(len(relPaths),
		progressbar.OptionSetDescription("syncing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	var res Result
	for _, rel := range relPaths {
		srcPath := filepath.Join(srcRoot, rel)
		dstPath := filepath.Join(dstRoot, rel)

		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			fr := FileResult{RelPath: rel, Err: errors.Wrapf(gsync.ErrPath, "creating parent of %s: %v", dstPath, err)}
			res.Files = append(res.Files, fr)
			res.Failed = append(res.Failed, fr)
			log.Error().Err(err).Str("file", rel).Msg("sync failed")
			bar.Add(1)
			continue
		}

		stats, syncErr := sync(srcPath, dstPath)
		fr := FileResult{RelPath: rel, Stats: stats, Err: syncErr}
		res.Files = append(res.Files, fr)
		if syncErr != nil {
			res.Failed = append(res.Failed, fr)
			log.Error().Err(syncErr).Str("file", rel).Msg("sync failed")
		} else {
			log.Debug().Str("file", rel).Uint64("transferred", stats.TransferredBytes).Msg("sync ok")
		}
		bar.Add(1)
	}

	if prune && len(res.Failed) == 0 {
		pruned, err := pruneExtraneous(srcRoot, dstRoot, relPaths, log)
		if err != nil {
			return res, err
		}
		res.Pruned = pruned
	}

	return res, nil
}

// collectFiles returns every regular file under root, relative to root, in
// the order filepath.WalkDir visits them (lexical per directory).
func collectFiles(root string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(gsync.ErrPath, "walking %s: %v", path, err)
		}
		if d.IsDir() {
			return nil
		}
		// Spec §9 leaves symlink handling to this collaborator; we skip
		// anything that isn't a regular file rather than dereferencing it,
		// since dereferencing risks walking outside srcRoot.
		if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return errors.Wrapf(gsync.ErrPath, "computing relative path for %s: %v", path, relErr)
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// pruneExtraneous removes files under dstRoot that have no corresponding
// entry in the synced set, then removes every directory under dstRoot that
// is empty afterwards. It runs only after every file synced successfully.
func pruneExtraneous(srcRoot, dstRoot string, syncedRel []string, log zerolog.Logger) ([]string, error) {
	wanted := make(map[string]bool, len(syncedRel))
	for _, rel := range syncedRel {
		wanted[rel] = true
	}

	var extraneous []string
	err := filepath.WalkDir(dstRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(gsync.ErrPath, "walking %s: %v", path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dstRoot, path)
		if relErr != nil {
			return errors.Wrapf(gsync.ErrPath, "computing relative path for %s: %v", path, relErr)
		}
		if !wanted[rel] {
			extraneous = append(extraneous, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, rel := range extraneous {
		full := filepath.Join(dstRoot, rel)
		if err := os.Remove(full); err != nil {
			log.Warn().Err(err).Str("file", rel).Msg("prune failed")
			continue
		}
		log.Info().Str("file", rel).Msg("pruned")
		pruned = append(pruned, rel)
	}

	removeEmptyDirs(dstRoot, log)
	return pruned, nil
}

// removeEmptyDirs removes every empty directory under root, whether or not
// pruning emptied it, deepest first. root itself is never removed.
func removeEmptyDirs(root string, log zerolog.Logger) {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil {
			continue // not empty, or a race with another writer; leave it
		}
		log.Debug().Str("dir", dirs[i]).Msg("removed empty directory")
	}
}
