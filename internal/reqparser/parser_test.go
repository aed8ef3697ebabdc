package reqparser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, pieces [][]byte) *Parser {
	t.Helper()
	p := New()
	for _, piece := range pieces {
		phase := p.Feed(piece)
		if phase == PhaseError {
			require.NoError(t, p.Err())
		}
	}
	return p
}

func TestSimpleGetRequest(t *testing.T) {
	raw := []byte("GET /index.html HTTP/1.1\r\nHost: localhost\r\n\r\n")
	p := feedAll(t, [][]byte{raw})
	require.Equal(t, PhaseComplete, p.Phase())
	req := p.Request()
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/index.html", req.URI)
	assert.Equal(t, "HTTP/1.1", req.Version)
	host, _ := req.Headers.Get("Host")
	assert.Equal(t, "localhost", host)
}

func TestFragmentationInsensitivity(t *testing.T) {
	raw := []byte("POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 11\r\n\r\nhello world")
	whole := feedAll(t, [][]byte{raw})
	require.Equal(t, PhaseComplete, whole.Phase())

	for split := 1; split < len(raw); split++ {
		pieces := [][]byte{raw[:split], raw[split:]}
		p := feedAll(t, pieces)
		require.Equal(t, PhaseComplete, p.Phase(), "split at %d", split)
		assert.Equal(t, whole.Request().Method, p.Request().Method)
		assert.Equal(t, whole.Request().URI, p.Request().URI)
		assert.Equal(t, whole.Request().Body, p.Request().Body)
	}

	// byte-at-a-time
	var pieces [][]byte
	for _, b := range raw {
		pieces = append(pieces, []byte{b})
	}
	p := feedAll(t, pieces)
	require.Equal(t, PhaseComplete, p.Phase())
	assert.Equal(t, whole.Request().Body, p.Request().Body)
}

func TestLineEndingInvariance(t *testing.T) {
	crlf := []byte("GET /a HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\n\r\nabc")
	lf := []byte(strings.ReplaceAll(string(crlf), "\r\n", "\n"))

	pCRLF := feedAll(t, [][]byte{crlf})
	pLF := feedAll(t, [][]byte{lf})

	require.Equal(t, PhaseComplete, pCRLF.Phase())
	require.Equal(t, PhaseComplete, pLF.Phase())
	assert.Equal(t, pCRLF.Request().Method, pLF.Request().Method)
	assert.Equal(t, pCRLF.Request().URI, pLF.Request().URI)
	assert.Equal(t, pCRLF.Request().Body, pLF.Request().Body)
}

func TestChunkedRoundTrip(t *testing.T) {
	body := "The quick brown fox jumps over the lazy dog"
	chunks := []string{body[:10], body[10:20], body[20:]}

	var sb strings.Builder
	sb.WriteString("POST /c HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n")
	for _, c := range chunks {
		fmt.Fprintf(&sb, "%x\r\n%s\r\n", len(c), c)
	}
	sb.WriteString("0\r\n\r\n")

	p := feedAll(t, [][]byte{[]byte(sb.String())})
	require.Equal(t, PhaseComplete, p.Phase())
	assert.Equal(t, body, string(p.Request().Body))
}

func TestChunkedRoundTripFragmented(t *testing.T) {
	body := "0123456789abcdef"
	var sb strings.Builder
	sb.WriteString("POST /c HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n")
	fmt.Fprintf(&sb, "%x\r\n%s\r\n0\r\n\r\n", len(body), body)
	raw := []byte(sb.String())

	for split := 1; split < len(raw); split++ {
		p := feedAll(t, [][]byte{raw[:split], raw[split:]})
		require.Equal(t, PhaseComplete, p.Phase(), "split at %d", split)
		assert.Equal(t, body, string(p.Request().Body))
	}
}

func TestBadChunkSize(t *testing.T) {
	raw := []byte("POST /c HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\nZZZ\r\n")
	p := New()
	phase := p.Feed(raw)
	assert.Equal(t, PhaseError, phase)
	assert.ErrorIs(t, p.Err(), ErrBadChunkSize)
}

func buildMultipart(boundary string, fileBytes []byte) []byte {
	var sb strings.Builder
	sb.WriteString("--" + boundary + "\r\n")
	sb.WriteString("Content-Disposition: form-data; name=\"f\"; filename=\"a.bin\"\r\n")
	sb.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	sb.Write(fileBytes)
	sb.WriteString("\r\n--" + boundary + "\r\n")
	sb.WriteString("Content-Disposition: form-data; name=\"note\"\r\n\r\n")
	sb.WriteString("hello\r\n")
	sb.WriteString("--" + boundary + "--\r\n")
	return []byte(sb.String())
}

func multipartRequest(boundary string, body []byte) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "POST /upload HTTP/1.1\r\nHost: x\r\nContent-Type: multipart/form-data; boundary=%s\r\nContent-Length: %d\r\n\r\n", boundary, len(body))
	sb.Write(body)
	return []byte(sb.String())
}

func TestMultipartExactness(t *testing.T) {
	boundary := "XY"
	fileBytes := []byte("ABC\r\n--XY\r\nmore--bytes")
	body := buildMultipart(boundary, fileBytes)
	raw := multipartRequest(boundary, body)

	p := feedAll(t, [][]byte{raw})
	require.Equal(t, PhaseComplete, p.Phase())
	req := p.Request()
	require.Len(t, req.Files, 1)
	assert.Equal(t, "f", req.Files[0].FieldName)
	assert.Equal(t, "a.bin", req.Files[0].Filename)
	assert.Equal(t, "application/octet-stream", req.Files[0].ContentType)
	assert.Equal(t, fileBytes, req.Files[0].Bytes)
	assert.Equal(t, "hello", req.FormFields["note"])
}

func TestMultipartFragmentedByByte(t *testing.T) {
	boundary := "BNDY"
	fileBytes := []byte("payload with \r\n embedded CRLF and --BNDY-looking text")
	body := buildMultipart(boundary, fileBytes)
	raw := multipartRequest(boundary, body)

	var pieces [][]byte
	for _, b := range raw {
		pieces = append(pieces, []byte{b})
	}
	p := feedAll(t, pieces)
	require.Equal(t, PhaseComplete, p.Phase())
	require.Len(t, p.Request().Files, 1)
	assert.Equal(t, fileBytes, p.Request().Files[0].Bytes)
}

func TestMissingBoundaryIsError(t *testing.T) {
	raw := []byte("POST /u HTTP/1.1\r\nHost: x\r\nContent-Type: multipart/form-data\r\nContent-Length: 0\r\n\r\n")
	p := New()
	phase := p.Feed(raw)
	assert.Equal(t, PhaseError, phase)
}

func TestEmptyFeedIsIdempotent(t *testing.T) {
	p := New()
	assert.Equal(t, PhaseRequestLine, p.Feed(nil))
	assert.Equal(t, PhaseRequestLine, p.Feed([]byte{}))
	p.Feed([]byte("GET / HTTP/1.1\r\n"))
	assert.Equal(t, PhaseHeaders, p.Feed(nil))
}
