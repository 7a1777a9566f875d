package ribclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("ribclient: client is closed")

// dialBackoff bounds the delay between reconnect attempts.
const (
	dialBackoffMin = 500 * time.Millisecond
	dialBackoffMax = 30 * time.Second
)

// Client implements ospf.RouteInstaller over the length-prefixed binary
// RIB-client stream. Install is invoked directly from the single-threaded
// OSPF event loop (internal/ospf.Router.runSPF) and
// must never block on I/O; it hands the new route set to a background
// dial/send goroutine over a depth-1 channel, coalescing bursts the same
// way internal/sched.Loop.Post coalesces ready events.
type Client struct {
	network string
	addr    string
	logger  *slog.Logger

	mu       sync.Mutex
	sent     map[netip.Prefix]ospf.Route // last set of routes actually written to the wire
	pending  []ospf.Route                // latest Install() snapshot, awaiting send
	hasWork  chan struct{}
	closed   bool
	closeCh  chan struct{}
	doneCh   chan struct{}
}

// New creates a Client without starting any goroutine. Run must be called
// to begin dialing; New alone only constructs state.
func New(network, addr string, logger *slog.Logger) *Client {
	return &Client{
		network: network,
		addr:    addr,
		sent:    make(map[netip.Prefix]ospf.Route),
		hasWork: make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
		logger:  logger.With(slog.String("component", "ribclient")),
	}
}

// Install implements ospf.RouteInstaller. It replaces the pending route
// snapshot and wakes the sender goroutine; it never blocks.
func (c *Client) Install(routes []ospf.Route) {
	c.mu.Lock()
	c.pending = routes
	c.mu.Unlock()

	select {
	case c.hasWork <- struct{}{}:
	default:
	}
}

// Run dials the RIB client and serves until ctx is cancelled or Close is
// called, reconnecting on any I/O error. Failed dials are retried with
// exponential backoff; after a lost connection the first redial is
// immediate. On
// every successful (re)connect it re-announces the full currently-pending
// route set.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.doneCh)

	backoff := dialBackoffMin
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closeCh:
			return nil
		default:
		}

		conn, err := net.Dial(c.network, c.addr)
		if err != nil {
			c.logger.Warn("dial failed, retrying",
				slog.String("network", c.network),
				slog.String("addr", c.addr),
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)
			if !c.sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, dialBackoffMax)
			continue
		}
		backoff = dialBackoffMin

		c.logger.Info("connected to RIB client",
			slog.String("network", c.network),
			slog.String("addr", c.addr),
		)

		// Force a full re-announcement on every fresh connection.
		c.mu.Lock()
		c.sent = make(map[netip.Prefix]ospf.Route)
		c.mu.Unlock()
		select {
		case c.hasWork <- struct{}{}:
		default:
		}

		if err := c.serve(ctx, conn); err != nil && ctx.Err() == nil {
			c.logger.Warn("connection lost, reconnecting",
				slog.String("error", err.Error()),
			)
		}
		conn.Close()

		select {
		case <-ctx.Done():
			return nil
		case <-c.closeCh:
			return nil
		default:
		}
	}
}

func (c *Client) sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.closeCh:
		return false
	case <-t.C:
		return true
	}
}

// serve writes diffed route-add/route-delete messages to conn until ctx is
// cancelled, Close is called, or a write fails.
func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	w := bufio.NewWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closeCh:
			return nil
		case <-c.hasWork:
		}

		c.mu.Lock()
		pending := c.pending
		c.mu.Unlock()

		if err := c.sync(w, pending); err != nil {
			return err
		}
	}
}

// sync diffs desired against the last-sent set, writing route-delete for
// anything removed and route-add for anything new or changed.
func (c *Client) sync(w *bufio.Writer, desired []ospf.Route) error {
	c.mu.Lock()
	prevSent := c.sent
	c.mu.Unlock()

	want := make(map[netip.Prefix]ospf.Route, len(desired))
	for _, route := range desired {
		want[route.Prefix] = route
	}

	for prefix := range prevSent {
		if _, ok := want[prefix]; ok {
			continue
		}
		payload, err := EncodeRouteDeletePrefix(prefix)
		if err != nil {
			return fmt.Errorf("encode route delete: %w", err)
		}
		if err := WriteMessage(w, Message{Cmd: CmdRouteDelete, Payload: payload}); err != nil {
			return err
		}
	}

	for prefix, route := range want {
		if prev, ok := prevSent[prefix]; ok && routesEqual(prev, route) {
			continue
		}
		payload, err := EncodeRoute(route)
		if err != nil {
			return fmt.Errorf("encode route add: %w", err)
		}
		if err := WriteMessage(w, Message{Cmd: CmdRouteAdd, Payload: payload}); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	c.mu.Lock()
	c.sent = want
	c.mu.Unlock()
	return nil
}

func routesEqual(a, b ospf.Route) bool {
	if a.Type != b.Type || a.Cost != b.Cost || a.Type2Cost != b.Type2Cost || len(a.NextHops) != len(b.NextHops) {
		return false
	}
	for i := range a.NextHops {
		if a.NextHops[i].Addr != b.NextHops[i].Addr {
			return false
		}
	}
	return true
}

// Close stops the background connection goroutine and waits for it to
// return. Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.closeCh)
	<-c.doneCh
	return nil
}
