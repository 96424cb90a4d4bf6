// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import "testing"

func TestParseRemote(t *testing.T) {
	cases := []struct {
		dst      string
		wantHost string
		wantPath string
		wantOK   bool
	}{
		{"myhost:/var/data/file.bin", "myhost", "/var/data/file.bin", true},
		{"/local/path/file.bin", "", "", false},
		{`C:\Users\file.bin`, "", "", false},
		{"192.168.1.5:/srv/backup.tar", "192.168.1.5", "/srv/backup.tar", true},
	}

	for _, tt := range cases {
		host, path, ok := parseRemote(tt.dst)
		if ok != tt.wantOK {
			t.Errorf("parseRemote(%q) ok = %v, want %v", tt.dst, ok, tt.wantOK)
			continue
		}
		if ok && (host != tt.wantHost || path != tt.wantPath) {
			t.Errorf("parseRemote(%q) = (%q, %q), want (%q, %q)", tt.dst, host, path, tt.wantHost, tt.wantPath)
		}
	}
}

func TestAddrWithPort(t *testing.T) {
	if got := addrWithPort("example.com", 8730); got != "example.com:8730" {
		t.Errorf("addrWithPort = %q, want example.com:8730", got)
	}
	if got := addrWithPort("example.com:9000", 8730); got != "example.com:9000" {
		t.Errorf("addrWithPort = %q, want example.com:9000 (already has a port)", got)
	}
}
