// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/AsheeHuang/rsynx/gsync"
)

func TestCategoryOfRecoversSentinelThroughWrapping(t *testing.T) {
	err := errors.Wrapf(gsync.ErrBadConfig, "block size must be at least 1")
	if got := categoryOf(err); got != "bad config:" {
		t.Errorf("categoryOf = %q, want %q", got, "bad config:")
	}
}

func TestCategoryOfUnknownError(t *testing.T) {
	if got := categoryOf(errors.New("something else")); got != "" {
		t.Errorf("categoryOf = %q, want empty string", got)
	}
}

func TestMaybeStartProfileDisabledIsNoop(t *testing.T) {
	stop := maybeStartProfile(false)
	stop() // must not panic
}
