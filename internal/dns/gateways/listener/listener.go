// Package listener binds the loopback UDP ingress socket and spawns one
// forwarding task per inbound datagram.
package listener

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/quietloop/dnsfwd/internal/dns/common/log"
	"github.com/quietloop/dnsfwd/internal/dns/services/forwarder"
)

// maxDatagramSize bounds a single read off the ingress socket, matching
// the largest DNS message this proxy will ever decode.
const maxDatagramSize = 65535

// DefaultAddr is the loopback bind address used when none is configured.
const DefaultAddr = "127.0.0.1:1053"

// Forwarder turns one inbound datagram into at most one client reply.
type Forwarder interface {
	Forward(ctx context.Context, sender forwarder.ReplySender, queryBytes []byte, clientAddr net.Addr)
}

// Listener binds a single loopback UDP socket, reads inbound datagrams,
// and spawns a forwarding goroutine per datagram. The same socket is used
// to send replies, so the bound address the client sees matches where it
// sent the query.
type Listener struct {
	addr   string
	fwd    Forwarder
	logger log.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
	wg   sync.WaitGroup
}

// Addr returns the bound local address, or nil if ListenAndServe has not
// yet completed binding.
func (l *Listener) Addr() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// New returns a Listener bound to addr once ListenAndServe is called.
func New(addr string, fwd Forwarder, logger log.Logger) *Listener {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Listener{addr: addr, fwd: fwd, logger: logger}
}

// ListenAndServe binds the configured address, rejecting anything that is
// not loopback, then reads datagrams until ctx is cancelled. It blocks
// until every in-flight forwarding task has returned.
func (l *Listener) ListenAndServe(ctx context.Context) error {
	if err := requireLoopback(l.addr); err != nil {
		return err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("resolve listen address %s: %w", l.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind udp socket %s: %w", l.addr, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	l.logger.Info(map[string]any{"address": conn.LocalAddr().String()}, "listener: bound")

	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	l.readLoop(ctx)

	l.wg.Wait()
	l.logger.Info(nil, "listener: all forwarding tasks drained, shut down")
	return nil
}

func (l *Listener) readLoop(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, clientAddr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn(map[string]any{"error": err.Error()}, "listener: read failed")
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		l.wg.Add(1)
		go func(addr *net.UDPAddr) {
			defer l.wg.Done()
			l.fwd.Forward(ctx, l.conn, datagram, addr)
		}(clientAddr)
	}
}

// requireLoopback rejects any bind address whose host is not a literal
// loopback IP, per sec. 6. Host names such as "localhost" are not resolved
// and are rejected.
func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not loopback", addr)
	}
	return nil
}
