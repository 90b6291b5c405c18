package upstream

import (
	"context"
	"errors"
	"net"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// maxUDPMessageSize bounds a single read off the ephemeral upstream socket.
const maxUDPMessageSize = 65535

// DialFunc establishes the network connection a transport uses to reach
// its upstream. Swappable in tests.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// UDPTransport relays a query to a fixed upstream address (port 53 unless
// another port is given) using a fresh ephemeral socket per transaction,
// per sec. 4.2.
type UDPTransport struct {
	addr string
	dial DialFunc
}

// NewUDPTransport returns a transport that resolves queries against host.
// host may be a bare address, defaulted to port 53, or a host:port pair
// for upstreams listening elsewhere.
func NewUDPTransport(host string) *UDPTransport {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "53")
	}
	return &UDPTransport{
		addr: addr,
		dial: (&net.Dialer{}).DialContext,
	}
}

var _ Transport = (*UDPTransport)(nil)

// Resolve opens an ephemeral UDP endpoint bound to t.addr, sends queryBytes
// once, and returns the first datagram received before ctx's deadline. The
// endpoint is exclusive to this call, so no transaction-ID correlation is
// needed: the first datagram in is the answer.
func (t *UDPTransport) Resolve(ctx context.Context, queryBytes []byte) ([]byte, error) {
	conn, err := t.dial(ctx, "udp", t.addr)
	if err != nil {
		return nil, domain.NewNetworkError("dial upstream: " + err.Error())
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, domain.NewNetworkError("set deadline: " + err.Error())
		}
	}

	if _, err := conn.Write(queryBytes); err != nil {
		return nil, classifyUDPError(err)
	}

	buf := make([]byte, maxUDPMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, classifyUDPError(err)
	}
	resp := make([]byte, n)
	copy(resp, buf[:n])
	return resp, nil
}

func classifyUDPError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTimeoutError(err.Error())
	}
	return domain.NewNetworkError(err.Error())
}
