package upstream

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"net/http"
	"sync"

	"golang.org/x/net/http2"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// dohMediaType is the RFC 8484 wire-format media type, both requested via
// Accept and expected on the response.
const dohMediaType = "application/dns-message"

// DoHTransport relays a query to an upstream resolver over DNS-over-HTTPS
// using the RFC 8484 GET form, per sec. 4.3.
//
// All transactions issued by one DoHTransport share a single *http.Client,
// so TCP, TLS, and (where the upstream advertises it) HTTP/2 connection
// state is pooled across queries rather than re-established per request.
type DoHTransport struct {
	url string

	once   sync.Once
	client *http.Client
}

// NewDoHTransport returns a transport that issues GET requests against
// upstreamURL. The shared HTTPS client is built lazily on first use.
func NewDoHTransport(upstreamURL string) *DoHTransport {
	return &DoHTransport{url: upstreamURL}
}

var _ Transport = (*DoHTransport)(nil)

func (t *DoHTransport) httpClient() *http.Client {
	t.once.Do(func() {
		transport := &http.Transport{}
		// Best-effort: if HTTP/2 can't be configured the client still
		// works over HTTP/1.1.
		_ = http2.ConfigureTransport(transport)
		t.client = &http.Client{Transport: transport}
	})
	return t.client
}

// Resolve issues a single RFC 8484 GET-form request carrying queryBytes
// and returns the response body on HTTP 200.
func (t *DoHTransport) Resolve(ctx context.Context, queryBytes []byte) ([]byte, error) {
	wireQuery, err := zeroedID(queryBytes)
	if err != nil {
		return nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(wireQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, domain.NewNetworkError("build request: " + err.Error())
	}
	q := req.URL.Query()
	q.Set("dns", encoded)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("accept", dohMediaType)

	resp, err := t.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewTimeoutError(err.Error())
		}
		return nil, domain.NewNetworkError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("read response body: " + err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewHTTPStatusError(resp.StatusCode, "unexpected upstream status")
	}
	return body, nil
}

// zeroedID returns a copy of queryBytes with its transaction ID field set
// to zero, since DoH caches correlate requests by content rather than ID.
func zeroedID(queryBytes []byte) ([]byte, error) {
	if len(queryBytes) < 2 {
		return nil, domain.NewTruncatedError(0, "query shorter than a DNS header")
	}
	out := make([]byte, len(queryBytes))
	copy(out, queryBytes)
	binary.BigEndian.PutUint16(out[0:2], 0)
	return out, nil
}
