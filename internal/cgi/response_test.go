package cgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputDefaultStatus(t *testing.T) {
	raw := []byte("Content-Type: text/plain\r\n\r\nhello")
	resp, err := ParseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	ct, _ := resp.Headers.Get("Content-Type")
	assert.Equal(t, "text/plain", ct)
	assert.Equal(t, "hello", string(resp.Body))
}

func TestParseOutputStatusHeader(t *testing.T) {
	raw := []byte("Status: 404 Not Found\r\nContent-Type: text/html\r\n\r\n<h1>gone</h1>")
	resp, err := ParseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "<h1>gone</h1>", string(resp.Body))
}

func TestParseOutputStatusWithoutReason(t *testing.T) {
	raw := []byte("Status: 500\r\n\r\n")
	resp, err := ParseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.Status)
}

func TestParseOutputRecomputesContentLength(t *testing.T) {
	raw := []byte("Content-Type: text/plain\r\nContent-Length: 999\r\n\r\nreal")
	resp, err := ParseOutput(raw)
	require.NoError(t, err)
	b := resp.Bytes()
	assert.Contains(t, string(b), "Content-Length: 4")
	assert.NotContains(t, string(b), "Content-Length: 999")
}

func TestParseOutputEmptyIsError(t *testing.T) {
	_, err := ParseOutput(nil)
	assert.Error(t, err)
}

func TestParseOutputLFOnly(t *testing.T) {
	raw := []byte("Content-Type: text/plain\n\nbody-only")
	resp, err := ParseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "body-only", string(resp.Body))
}
