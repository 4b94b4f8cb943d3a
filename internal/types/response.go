package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched page. Only 2xx results become a Response; every
// other outcome is a FetchError.
type Response struct {
	StatusCode int
	Headers    http.Header

	// Body is already decompressed.
	Body []byte

	Request *Request

	// FinalURL is where redirects ended. Relative links resolve against it.
	FinalURL string

	Elapsed time.Duration

	doc *goquery.Document
}

// NewResponse wraps a completed net/http exchange.
func NewResponse(req *Request, httpResp *http.Response, body []byte, elapsed time.Duration) *Response {
	finalURL := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Request:    req,
		FinalURL:   finalURL,
		Elapsed:    elapsed,
	}
}

// NewBrowserResponse wraps rendered markup from a headless browser.
func NewBrowserResponse(req *Request, statusCode int, html []byte, finalURL string, elapsed time.Duration) *Response {
	return &Response{
		StatusCode: statusCode,
		Headers:    http.Header{"Content-Type": {"text/html"}},
		Body:       html,
		Request:    req,
		FinalURL:   finalURL,
		Elapsed:    elapsed,
	}
}

// Document parses the body once and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	if len(r.Body) == 0 {
		return nil, &ParseError{URL: r.FinalURL, Err: ErrEmptyResponse}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.FinalURL, Err: err}
	}
	r.doc = doc
	return doc, nil
}
