package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
}

func TestString(t *testing.T) {
	s := String()
	info := Get()

	if !strings.HasPrefix(s, info.Version+" (") {
		t.Errorf("String() = %q, want version prefix %q", s, info.Version)
	}
	if !strings.Contains(s, "built at "+info.BuildTime) {
		t.Errorf("String() = %q, want build time", s)
	}
	if !strings.HasSuffix(s, info.GoVersion) {
		t.Errorf("String() = %q, want go version suffix", s)
	}
}

func TestResolve(t *testing.T) {
	stamp := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.2",
			Main:      debug.Module{Version: "v1.4.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	tests := []struct {
		name                    string
		version, commit, built  string
		read                    func() (*debug.BuildInfo, bool)
		wantVersion, wantCommit string
		wantBuilt               string
		wantModified            bool
	}{
		{
			name:    "ldflags win",
			version: "v2.0.0", commit: "feedbeef", built: "yesterday",
			read:        stamp,
			wantVersion: "v2.0.0", wantCommit: "feedbeef", wantBuilt: "yesterday",
			wantModified: true,
		},
		{
			name:    "vcs stamp fills defaults",
			version: "dev", commit: "unknown", built: "unknown",
			read:        stamp,
			wantVersion: "v1.4.0", wantCommit: "0123456789ab", wantBuilt: "2026-03-01T10:00:00Z",
			wantModified: true,
		},
		{
			name:    "no build info",
			version: "dev", commit: "unknown", built: "unknown",
			read:        func() (*debug.BuildInfo, bool) { return nil, false },
			wantVersion: "dev", wantCommit: "unknown", wantBuilt: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.built, tt.read)
			if got.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", got.Version, tt.wantVersion)
			}
			if got.Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", got.Commit, tt.wantCommit)
			}
			if got.BuildTime != tt.wantBuilt {
				t.Errorf("BuildTime = %q, want %q", got.BuildTime, tt.wantBuilt)
			}
			if got.Modified != tt.wantModified {
				t.Errorf("Modified = %v, want %v", got.Modified, tt.wantModified)
			}
			if got.GoVersion == "" {
				t.Error("GoVersion should not be empty")
			}
		})
	}
}
