package infra

import (
	"testing"
	"time"
)

func TestNewHTTPServerLeavesWriteDeadlineUnset(t *testing.T) {
	cfg := &Config{
		Port:            "0",
		HTTPReadTimeout: 15 * time.Second,
		HTTPIdleTimeout: 60 * time.Second,
	}
	s := NewHTTPServer(cfg, nil)
	if s.server.WriteTimeout != 0 {
		t.Fatalf("WriteTimeout = %v, want 0 so event streams stay open", s.server.WriteTimeout)
	}
	if s.server.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout = %v, want 15s", s.server.ReadTimeout)
	}
	if s.server.ReadHeaderTimeout == 0 {
		t.Fatal("ReadHeaderTimeout must be set to bound slow clients")
	}
	if s.server.Addr != ":0" {
		t.Fatalf("Addr = %q, want :0", s.server.Addr)
	}
}
