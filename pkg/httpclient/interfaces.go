package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// url may be relative to the client's base URL; params are appended url-encoded.
type Client interface {
	Get(ctx context.Context, url string, params map[string]string, headers map[string]string) (Response, error)
}
