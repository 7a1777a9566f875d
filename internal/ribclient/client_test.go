package ribclient_test

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/go-ospfd/ospfd/internal/ospf"
	"github.com/go-ospfd/ospfd/internal/ribclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientInstallSendsRouteAdd(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client := ribclient.New("tcp", ln.Addr().String(), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	client.Install([]ospf.Route{{
		Prefix: netip.MustParsePrefix("10.1.0.0/16"),
		Type:   ospf.RouteIntraArea,
		Cost:   20,
	}})

	var conn net.Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := ribclient.ReadMessage(r)
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if msg.Cmd != ribclient.CmdRouteAdd {
		t.Fatalf("Cmd = %v, want ROUTE_ADD", msg.Cmd)
	}

	got, err := ribclient.DecodeRoute(msg.Payload)
	if err != nil {
		t.Fatalf("DecodeRoute() error: %v", err)
	}
	if got.Prefix.String() != "10.1.0.0/16" {
		t.Errorf("Prefix = %s, want 10.1.0.0/16", got.Prefix)
	}

	cancel()
	<-done
}

func TestClientCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	client := ribclient.New("tcp", "127.0.0.1:1", discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Run(ctx) //nolint:errcheck

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
