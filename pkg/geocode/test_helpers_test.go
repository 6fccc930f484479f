package geocode

import (
	"net/http"
	"net/url"
	"strings"
)

// redirectTransport sends requests for a fixed upstream endpoint to a test
// server, keeping the query string.
type redirectTransport struct {
	upstream string
	target   *url.URL
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !strings.HasPrefix(req.URL.String(), t.upstream) {
		return http.DefaultTransport.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	u := *t.target
	u.RawQuery = req.URL.RawQuery
	out.URL = &u
	out.Host = u.Host
	return http.DefaultTransport.RoundTrip(out)
}

// newRewriteClient returns a client whose requests to upstream land on srvURL.
func newRewriteClient(srvURL, upstream string) *http.Client {
	target, err := url.Parse(srvURL)
	if err != nil {
		panic(err)
	}
	return &http.Client{Transport: &redirectTransport{upstream: upstream, target: target}}
}
