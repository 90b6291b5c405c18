package forwarder

import (
	"context"
	"net"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// Codec converts between DNS wire bytes and domain.Message, and builds a
// reply that preserves a client query's header/question while carrying an
// upstream's answer sections.
type Codec interface {
	Decode(data []byte) (domain.Message, error)
	EncodeReply(clientQuery []byte, upstream domain.Message) ([]byte, error)
}

// Transport sends one encoded query to an upstream resolver and returns
// its raw response bytes.
type Transport interface {
	Resolve(ctx context.Context, queryBytes []byte) ([]byte, error)
}

// Sink records a decoded upstream response for operator visibility.
// Implementations must be safe to call from many goroutines at once.
type Sink interface {
	Record(msg domain.Message)
}

// ReplySender writes a reply datagram back to a client address. A
// *net.UDPConn satisfies this via its WriteTo method, which is safe for
// concurrent use by the listener's many forwarding goroutines.
type ReplySender interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}
