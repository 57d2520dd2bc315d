package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DaanHessen/agency-gm/internal/util"
)

func TestServeReturnsWhenListenFails(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	dir := t.TempDir()
	cfg := util.Config{
		Addr:      busy.Addr().String(),
		DataDir:   dir,
		NotesDir:  dir,
		PublicDir: dir,
		Backend:   util.BackendFile,
	}
	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), cfg) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a listen error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
}
