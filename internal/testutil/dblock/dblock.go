// Package dblock serializes database integration tests across test binaries by
// holding a loopback TCP port for the duration of a test.
package dblock

import (
	"net"
	"os"
	"testing"
	"time"
)

const defaultLockAddr = "127.0.0.1:45433"

// Acquire blocks until the lock is free and releases it when tb finishes.
func Acquire(tb testing.TB) {
	tb.Helper()
	addr := os.Getenv("DBLOCK_ADDR")
	if addr == "" {
		addr = defaultLockAddr
	}
	deadline := time.Now().Add(2 * time.Minute)
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			tb.Cleanup(func() { _ = ln.Close() })
			return
		}
		if time.Now().After(deadline) {
			tb.Fatalf("dblock: could not acquire %s: %v", addr, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
