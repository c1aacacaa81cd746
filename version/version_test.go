package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestReadInfoPrefersLdflags(t *testing.T) {
	called := false
	info := readInfo("v1.2.3", "abcdef1", "2024-01-01", func() (*debug.BuildInfo, bool) {
		called = true
		return nil, false
	})
	if called {
		t.Fatal("build info should not be read when ldflags are set")
	}
	if info.Version != "v1.2.3" || info.Commit != "abcdef1" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestReadInfoFallsBackToBuildInfo(t *testing.T) {
	info := readInfo("", "", "", func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.4.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2024-06-01T10:00:00Z"},
			},
		}, true
	})
	if info.Version != "v0.4.0" {
		t.Fatalf("expected v0.4.0, got %q", info.Version)
	}
	if info.Commit != "0123456" {
		t.Fatalf("expected short commit, got %q", info.Commit)
	}
	if info.Date != "2024-06-01T10:00:00Z" {
		t.Fatalf("unexpected date %q", info.Date)
	}
}

func TestReadInfoDevel(t *testing.T) {
	info := readInfo("", "", "", func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	})
	if info.Version != "dev" || info.Commit != "unknown" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestGetFull(t *testing.T) {
	full := GetFull()
	if !strings.HasPrefix(full, "streamview ") {
		t.Fatalf("expected streamview prefix, got %q", full)
	}
	if !strings.Contains(full, "Go:") {
		t.Fatalf("expected Go version line, got %q", full)
	}
}
