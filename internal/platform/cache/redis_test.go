package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewReturnsClientWhenPingFails(t *testing.T) {
	// Port 1 refuses immediately; the client must still come back usable so
	// the process can run degraded and close cleanly.
	client, err := New(context.Background(), "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected ping error for unreachable address")
	}
	if client == nil {
		t.Fatal("client must be returned alongside the ping error")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close degraded client: %v", err)
	}
}

func TestNewHealthy(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := New(context.Background(), srv.Addr())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
