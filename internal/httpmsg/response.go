package httpmsg

import (
	"bytes"
	"fmt"
	"strconv"
)

// Response is an outbound HTTP/1.1 response (spec §3.3). It is serialized
// once, at the moment the owning connection is armed for writing.
type Response struct {
	Status  int
	Reason  string
	Headers *Header
	Body    []byte
}

// NewResponse returns a Response with a header store ready to populate.
// The reason phrase is looked up from StatusText.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status:  status,
		Reason:  StatusText(status),
		Headers: NewHeader(),
		Body:    body,
	}
}

// Bytes serializes the response to the wire format: status line, headers,
// blank line, body. Content-Length is always written, overwriting any
// value the caller may have set (spec §6: "Content-Length is always
// present on responses").
func (r *Response) Bytes() []byte {
	r.Headers.Set("Content-Length", strconv.Itoa(len(r.Body)))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, r.Reason)
	for _, kv := range r.Headers.Entries() {
		fmt.Fprintf(&buf, "%s: %s\r\n", kv.Name, kv.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}

// StatusText returns the reason phrase for the status codes this server
// emits. Unlike net/http.StatusText this is a small, closed set scoped to
// spec §7's error taxonomy plus the success codes §4.6 produces.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 500:
		return "Internal Server Error"
	case 504:
		return "Gateway Timeout"
	default:
		return "Unknown"
	}
}

// SimpleErrorBody synthesizes the default HTML error body of spec §4.7
// when no configured error page is available.
func SimpleErrorBody(code int) []byte {
	msg := StatusText(code)
	return []byte(fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", code, msg))
}
