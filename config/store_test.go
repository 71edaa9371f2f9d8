package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	if got := s.GetInt("clt_pub_port", 77778); got != 77778 {
		t.Fatalf("got %d, want default 77778", got)
	}
}

func TestLoadParsesKeysAndIgnoresComments(t *testing.T) {
	path := writeTempConfig(t, "# a comment\n\nclt_pub_port = 9001\nclient_name=Tester\n")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.GetInt("clt_pub_port", -1); got != 9001 {
		t.Fatalf("got %d, want 9001", got)
	}
	if got := s.GetString("client_name", ""); got != "Tester" {
		t.Fatalf("got %q, want %q", got, "Tester")
	}
}

func TestGetIntFallsBackOnUnparsable(t *testing.T) {
	path := writeTempConfig(t, "query_timeout = not-a-number\n")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.GetInt("query_timeout", 2000); got != 2000 {
		t.Fatalf("got %d, want fallback 2000", got)
	}
}

func TestGetDurationInterpretsMilliseconds(t *testing.T) {
	path := writeTempConfig(t, "inpoll_timeout = 250\n")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.GetDuration("inpoll_timeout", 500); got != 250*time.Millisecond {
		t.Fatalf("got %v, want 250ms", got)
	}
}

func TestHas(t *testing.T) {
	path := writeTempConfig(t, "service_discovery_address = 239.192.1.1\n")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Has("service_discovery_address") {
		t.Fatal("expected Has to report the key present")
	}
	if s.Has("nonexistent") {
		t.Fatal("expected Has to report an absent key as false")
	}
}
