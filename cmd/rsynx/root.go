// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AsheeHuang/rsynx/gsync"
)

// options holds the CLI surface spec §6 describes. Root's flag parsing fills
// the package-level opts once; the run functions read it and pass the
// individual values the session and walk layers need as parameters.
type options struct {
	blockSize uint32
	port      uint16
	metadata  bool
	delete    bool
	server    bool
	profile   bool
	verbose   bool
}

var opts options

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rsynx <src> <dst>",
		Short:         "Synchronize a file or directory tree using block-delta transfer",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString,
		RunE:          runRoot,
	}

	root.Flags().Uint32VarP(&opts.blockSize, "block-size", "b", gsync.DefaultBlockSize, "block size in bytes")
	root.Flags().Uint16Var(&opts.port, "port", 8730, "server port (1..65535)")
	root.Flags().BoolVar(&opts.metadata, "metadata", false, "preserve mode, mtime, and ownership on success")
	root.Flags().BoolVar(&opts.delete, "delete", false, "in directory mode, remove destination entries absent from source")
	root.Flags().BoolVar(&opts.server, "server", false, "run in server mode, listening on --port")
	root.Flags().BoolVar(&opts.profile, "profile", false, "write a CPU profile of the transfer")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	// cobra's built-in --version has no -V shorthand; spec §6 requires one.
	root.Flags().BoolP("version-short", "V", false, "print the version and exit")
	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		if short, _ := cmd.Flags().GetBool("version-short"); short {
			fmt.Println(versionString)
			os.Exit(0)
		}
		return nil
	}

	return root
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func runRoot(cmd *cobra.Command, args []string) error {
	stopProfile := maybeStartProfile(opts.profile)
	defer stopProfile()

	log := newLogger()

	if opts.server {
		return runServe(opts.port, log)
	}

	if len(args) != 2 {
		return errors.Wrap(gsync.ErrBadConfig, "expected exactly two arguments: <src> <dst>")
	}
	return runSync(args[0], args[1], log)
}

// parseRemote splits dst into a host and remote path if it has the
// <host>:<remote_path> shape spec §6 describes. The idx <= 1 guard keeps a
// Windows drive letter like "C:\path" from being misread as a host.
func parseRemote(dst string) (host, path string, ok bool) {
	idx := strings.Index(dst, ":")
	if idx <= 1 {
		return "", "", false
	}
	return dst[:idx], dst[idx+1:], true
}

func addrWithPort(host string, port uint16) string {
	if strings.Contains(host, ":") {
		return host // already host:port
	}
	return host + ":" + strconv.Itoa(int(port))
}
