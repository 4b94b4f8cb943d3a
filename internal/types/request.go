package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request tags. The tag selects timeouts and metrics, and lets a browser
// session hand binary downloads to plain HTTP.
const (
	TagListing = "listing"
	TagDetail  = "detail"
	TagSearch  = "catalog_search"
	TagProduct = "catalog_product"
	TagImage   = "image"
)

// Request is one GET issued by the fetch layer.
type Request struct {
	URL *url.URL

	// Headers are sent on top of the session's rotating defaults.
	Headers http.Header

	// Timeout overrides the session timeout when > 0.
	Timeout time.Duration

	Tag string

	// Attempt is 1-based under a retry policy.
	Attempt int
}

// NewRequest parses rawURL and rejects anything that is not http(s).
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return &Request{URL: u, Headers: make(http.Header), Attempt: 1}, nil
}

// NewTaggedRequest creates a request with a tag and a timeout.
func NewTaggedRequest(rawURL, tag string, timeout time.Duration) (*Request, error) {
	req, err := NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Tag = tag
	req.Timeout = timeout
	return req, nil
}

// URLString returns the request URL as a string.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname the request is throttled under.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}

// Clone returns a copy safe to mutate for another attempt.
func (r *Request) Clone() *Request {
	c := *r
	if r.URL != nil {
		u := *r.URL
		c.URL = &u
	}
	c.Headers = r.Headers.Clone()
	return &c
}
