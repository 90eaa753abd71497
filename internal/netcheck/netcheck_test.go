package netcheck

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestEmptyAddressIsOnline(t *testing.T) {
	if !New("", time.Second).Online(context.Background()) {
		t.Fatal("empty address should report online")
	}
	var p *Probe
	if !p.Online(context.Background()) {
		t.Fatal("nil probe should report online")
	}
}

func TestProbeAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if !New(addr, time.Second).Online(context.Background()) {
		t.Fatal("expected listener to be reachable")
	}
	ln.Close()
	if New(addr, 200*time.Millisecond).Online(context.Background()) {
		t.Fatal("expected closed listener to be unreachable")
	}
}

func TestProbeUsesDialFunc(t *testing.T) {
	want := errors.New("no route")
	p := &Probe{Address: "example.org:443", Dial: func(context.Context, string, string) (net.Conn, error) {
		return nil, want
	}}
	if err := p.Check(context.Background()); !errors.Is(err, want) {
		t.Fatalf("Check() = %v", err)
	}
	if p.Online(context.Background()) {
		t.Fatal("dial failure should report offline")
	}
}
