package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPClient is the part of *http.Client the REST gateways use.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewDefaultHTTPClient returns an *http.Client with a request timeout.
// One client is shared by every call of a command and is safe for concurrent use.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
