// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package session

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// TestNetworkRoundTrip exercises spec §8 scenario S6 end-to-end: a client
// syncs a local file to a path on a real in-process server over TCP.
func TestNetworkRoundTrip(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		handleConnection(conn, zerolog.Nop())
		serverDone <- nil
	}()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	remoteDst := filepath.Join(dir, "remote-dst.txt")
	if err := os.WriteFile(src, []byte("Network sync test content"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := RunClient(listener.Addr().String(), src, remoteDst, 1024, zerolog.Nop())
	if err != nil {
		t.Fatalf("RunClient: %v", err)
	}
	if result.SessionID == "" {
		t.Error("expected a non-empty session ID")
	}

	<-serverDone

	got, err := os.ReadFile(remoteDst)
	if err != nil {
		t.Fatalf("reading remote destination: %v", err)
	}
	if string(got) != "Network sync test content" {
		t.Errorf("remote destination = %q, want %q", got, "Network sync test content")
	}
}

func TestRunClientFailsToConnect(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Nothing is expected to listen on port 1; this should fail fast.
	_, err := RunClient("127.0.0.1:1", src, "/tmp/whatever", 1024, zerolog.Nop())
	if err == nil {
		t.Fatal("expected a connection error")
	}
}
