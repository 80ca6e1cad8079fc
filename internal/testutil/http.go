// internal/testutil/http.go
package testutil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrUnreachable es lo que StaticTransport devuelve para hosts desconocidos.
var ErrUnreachable = errors.New("testutil: host unreachable")

// RoundTripFunc adapta una función a http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Route describe la respuesta fija para un scheme://host.
type Route struct {
	Status int
	Body   string
	Header http.Header
	Err    error
	Panic  bool
}

// StaticTransport responde desde una tabla indexada por "scheme://host".
// Los hosts ausentes fallan con ErrUnreachable. Registra cada URL pedida.
type StaticTransport struct {
	Routes map[string]Route

	mu   sync.Mutex
	hits []string
}

func (s *StaticTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.hits = append(s.hits, r.URL.String())
	s.mu.Unlock()

	rt, ok := s.Routes[r.URL.Scheme+"://"+r.URL.Host]
	if !ok {
		return nil, ErrUnreachable
	}
	if rt.Panic {
		panic("testutil: route panic for " + r.URL.Host)
	}
	if rt.Err != nil {
		return nil, rt.Err
	}
	return NewResponse(r, rt.Status, rt.Body, rt.Header), nil
}

// Hits devuelve una copia de las URLs pedidas, en orden.
func (s *StaticTransport) Hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

// NewResponse construye un *http.Response mínimo para r.
func NewResponse(r *http.Request, status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/html; charset=utf-8")
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
		ProtoMajor: 1,
		ProtoMinor: 1,
	}
}
