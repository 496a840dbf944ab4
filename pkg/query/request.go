package query

import (
	"maps"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Request is an endpoint path plus its query parameters. It is immutable once
// built; accessors hand out copies.
type Request struct {
	path   string
	params map[string]string
}

// New validates path and copies params into a Request. path must be relative
// to the service base URL; a leading slash is added when missing.
func New(path string, params map[string]string) (Request, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Request{}, errors.Mark(errors.New("endpoint path is empty"), ErrInvalidRequest)
	}
	u, err := url.Parse(path)
	if err != nil {
		return Request{}, errors.Mark(errors.Wrapf(err, "endpoint path %q", path), ErrInvalidRequest)
	}
	if u.Scheme != "" || u.Host != "" || strings.HasPrefix(path, "//") {
		return Request{}, errors.Mark(errors.Newf("endpoint path %q must be relative", path), ErrInvalidRequest)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Request{}, errors.Mark(errors.Newf("endpoint path %q must not carry a query or fragment", path), ErrInvalidRequest)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	cp := make(map[string]string, len(params))
	for k, v := range params {
		if k == "" {
			return Request{}, errors.Mark(errors.New("empty parameter key"), ErrInvalidRequest)
		}
		cp[k] = v
	}
	return Request{path: path, params: cp}, nil
}

// Path returns the endpoint path, always starting with '/'.
func (r Request) Path() string { return r.path }

// Params returns a copy of the query parameters.
func (r Request) Params() map[string]string { return maps.Clone(r.params) }

// Encode returns the url-encoded query string, keys sorted.
func (r Request) Encode() string {
	vals := make(url.Values, len(r.params))
	for k, v := range r.params {
		vals.Set(k, v)
	}
	return vals.Encode()
}

// URL joins base, the path and the encoded parameters.
func (r Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + r.path
	if q := r.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// String implements fmt.Stringer.
func (r Request) String() string { return r.URL("") }
