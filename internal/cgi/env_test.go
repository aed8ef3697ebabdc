package cgi

import (
	"testing"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
	"github.com/stretchr/testify/assert"
)

func TestBuildEnvBasics(t *testing.T) {
	req := httpmsg.NewRequest()
	req.Method = "GET"
	req.URI = "/cgi-bin/hello.py?x=1"
	req.Version = "HTTP/1.1"
	req.Headers.Set("Host", "example.com")
	req.Headers.Set("X-Custom-Thing", "abc")

	loc := &webconfig.LocationConfig{}
	env := BuildEnv(req, loc, "/var/www", "/var/www/cgi-bin/hello.py", "", "127.0.0.1", "54321", "example.com", 8080)

	m := map[string]string{}
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	assert.Equal(t, "GET", m["REQUEST_METHOD"])
	assert.Equal(t, "CGI/1.1", m["GATEWAY_INTERFACE"])
	assert.Equal(t, "x=1", m["QUERY_STRING"])
	assert.Equal(t, "/var/www", m["DOCUMENT_ROOT"])
	assert.Equal(t, "/var/www/cgi-bin/hello.py", m["SCRIPT_FILENAME"])
	assert.Equal(t, "127.0.0.1", m["REMOTE_ADDR"])
	assert.Equal(t, "54321", m["REMOTE_PORT"])
	assert.Equal(t, "8080", m["SERVER_PORT"])
	assert.Equal(t, "abc", m["HTTP_X_CUSTOM_THING"])
	_, hasPathTranslated := m["PATH_TRANSLATED"]
	assert.False(t, hasPathTranslated)
}

func TestBuildEnvPathInfo(t *testing.T) {
	req := httpmsg.NewRequest()
	req.Method = "GET"
	req.URI = "/cgi-bin/hello.py/extra/path"
	req.Version = "HTTP/1.1"
	req.Headers.Set("Host", "example.com")

	loc := &webconfig.LocationConfig{}
	env := BuildEnv(req, loc, "/var/www", "/var/www/cgi-bin/hello.py", "/extra/path", "127.0.0.1", "1", "example.com", 80)

	found := false
	for _, kv := range env {
		if kv == "PATH_INFO=/extra/path" {
			found = true
		}
	}
	assert.True(t, found)
}
