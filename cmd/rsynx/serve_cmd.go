// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AsheeHuang/rsynx/gsync"
	"github.com/AsheeHuang/rsynx/session"
)

// runServe starts the network server: spec §5's serial accept loop, running
// until killed or the listener fails.
func runServe(port uint16, log zerolog.Logger) error {
	if port == 0 {
		return errors.Wrap(gsync.ErrBadConfig, "port must be in 1..65535")
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(int(port)))
	if err != nil {
		return errors.Wrapf(gsync.ErrNetwork, "listening on port %d: %v", port, err)
	}
	defer listener.Close()

	fmt.Printf("Listening on port %d\n", port)
	log.Info().Uint16("port", port).Msg("server started")

	return session.Serve(listener, log)
}
