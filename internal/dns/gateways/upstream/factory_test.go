package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_UDP(t *testing.T) {
	tr, err := NewTransport(TransportUDP, "9.9.9.9")
	require.NoError(t, err)
	udpTr, ok := tr.(*UDPTransport)
	require.True(t, ok)
	assert.Equal(t, "9.9.9.9:53", udpTr.addr)
}

func TestNewTransport_DoH_RewritesDefaultUpstream(t *testing.T) {
	tr, err := NewTransport(TransportDoH, DefaultUpstreamHost)
	require.NoError(t, err)
	dohTr, ok := tr.(*DoHTransport)
	require.True(t, ok)
	assert.Equal(t, DefaultDoHURL, dohTr.url)
}

func TestNewTransport_DoH_KeepsCustomUpstream(t *testing.T) {
	tr, err := NewTransport(TransportDoH, "https://dns.example/dns-query")
	require.NoError(t, err)
	dohTr := tr.(*DoHTransport)
	assert.Equal(t, "https://dns.example/dns-query", dohTr.url)
}

func TestNewTransport_UnsupportedType(t *testing.T) {
	_, err := NewTransport(TransportType("dot"), "9.9.9.9")
	require.Error(t, err)
}
