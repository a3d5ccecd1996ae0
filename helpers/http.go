package helpers

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"
)

// MockHTTP is http.RoundTripper replaying raw HTTP/1.x response.
type MockHTTP struct {
	Fun      func(*http.Request) (*http.Response, error)
	Response []byte
	Err      error

	calls uint32
}

func (m *MockHTTP) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddUint32(&m.calls, 1)
	if m.Fun != nil {
		return m.Fun(req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	raw := m.Response
	if raw == nil {
		raw = []byte("HTTP/1.0 200 OK\r\n\r\n")
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), req)
}

func (m *MockHTTP) Calls() int { return int(atomic.LoadUint32(&m.calls)) }

// RawResponse formats status line, optional Content-Type and body.
func RawResponse(code int, contentType string, body string) []byte {
	b := bytes.Buffer{}
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", code, http.StatusText(code))
	if contentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.WriteString(body)
	return b.Bytes()
}
