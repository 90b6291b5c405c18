package upstream

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

func TestDoHTransport_Resolve_Success(t *testing.T) {
	wantBody := []byte{0, 0, 1, 2, 3, 4}
	var gotAccept, gotDNSParam string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("accept")
		gotDNSParam = r.URL.Query().Get("dns")
		w.Header().Set("Content-Type", dohMediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(wantBody)
	}))
	defer srv.Close()

	tr := NewDoHTransport(srv.URL)

	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0xDEAD)

	got, err := tr.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, wantBody, got)
	assert.Equal(t, dohMediaType, gotAccept)

	decoded, err := base64.RawURLEncoding.DecodeString(gotDNSParam)
	require.NoError(t, err)
	// The ID sent upstream is zeroed regardless of the client's ID.
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(decoded[0:2]))
}

func TestDoHTransport_Resolve_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewDoHTransport(srv.URL)
	_, err := tr.Resolve(context.Background(), make([]byte, 12))
	require.Error(t, err)

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	assert.True(t, domain.IsRetryableHTTPStatus(te.StatusCode))
}

func TestDoHTransport_Resolve_ContextDeadlineExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	tr := NewDoHTransport(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tr.Resolve(ctx, make([]byte, 12))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
}

func TestDoHTransport_Resolve_RejectsShortQuery(t *testing.T) {
	tr := NewDoHTransport("https://example.invalid/dns-query")
	_, err := tr.Resolve(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTruncated))
}

func TestDoHTransport_Resolve_SharesClientAcrossCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte{0, 0})
	}))
	defer srv.Close()

	tr := NewDoHTransport(srv.URL)
	_, err := tr.Resolve(context.Background(), make([]byte, 12))
	require.NoError(t, err)
	first := tr.httpClient()

	_, err = tr.Resolve(context.Background(), make([]byte, 12))
	require.NoError(t, err)
	second := tr.httpClient()

	assert.Same(t, first, second)
}
