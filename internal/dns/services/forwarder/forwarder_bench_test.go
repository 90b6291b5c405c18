package forwarder

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/quietloop/dnsfwd/internal/dns/common/clock"
	"github.com/quietloop/dnsfwd/internal/dns/common/log"
	"github.com/quietloop/dnsfwd/internal/dns/domain"
	"github.com/quietloop/dnsfwd/internal/dns/gateways/wire"
)

type benchTransport struct {
	resp []byte
}

func (t *benchTransport) Resolve(ctx context.Context, queryBytes []byte) ([]byte, error) {
	return t.resp, nil
}

type benchSender struct{}

func (benchSender) WriteTo(b []byte, addr net.Addr) (int, error) { return len(b), nil }

type benchSink struct{}

func (benchSink) Record(domain.Message) {}

func BenchmarkForward_UDP(b *testing.B) {
	codec := wire.NewCodec()
	query := buildTestQuery(1, "bench.example")
	resp, err := codec.EncodeReply(query, domain.Message{
		Answers: []domain.Record{
			{Name: domain.ParseName("bench.example"), Type: domain.RRTypeA, Class: domain.ClassIN, TTL: 30, RData: []byte{1, 2, 3, 4}},
		},
	})
	if err != nil {
		b.Fatalf("encode failed: %v", err)
	}

	f := New(Options{
		Codec:     codec,
		Transport: &benchTransport{resp: resp},
		Sink:      benchSink{},
		Logger:    log.NewNoopLogger(),
		Clock:     &clock.MockClock{CurrentTime: time.Now()},
	})
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}
	sender := benchSender{}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		f.Forward(context.Background(), sender, query, addr)
	}
}
