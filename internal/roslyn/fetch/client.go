package fetch

import (
	"net"
	"net/http"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

const userAgent = "go-roslyn"

// uaTransport stamps a User-Agent on every outbound request that lacks one.
// The release index throttles anonymous clients aggressively and a stable
// agent keeps us identifiable there.
type uaTransport struct {
	next http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.next.RoundTrip(req)
}

// New creates the HTTP client shared by the release index, the package feed
// and archive downloads. Timeout bounds the whole exchange; an archive pull
// that exceeds it fails rather than hanging an editor startup.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   helpers.FetchDialContextTimeout,
			KeepAlive: helpers.FetchDialContextKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     helpers.FetchForceAttemptHTTP2,
		MaxIdleConns:          helpers.FetchMaxIdleConns,
		MaxIdleConnsPerHost:   helpers.FetchMaxIdleConnsPerHost,
		IdleConnTimeout:       helpers.FetchIdleConnTimeout,
		TLSHandshakeTimeout:   helpers.FetchTLSHandshakeTimeout,
		ExpectContinueTimeout: helpers.FetchExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &uaTransport{next: transport},
	}
}
