package router

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReq(method, uri, host string) *httpmsg.Request {
	r := httpmsg.NewRequest()
	r.Method = method
	r.URI = uri
	r.Version = "HTTP/1.1"
	r.Headers.Set("Host", host)
	return r
}

func testTree(t *testing.T, root string) *webconfig.Tree {
	t.Helper()
	cfg := `
server {
	listen 8080;
	server_name x;
	root ` + root + `;
	error_page 404 /errors/404.html;

	location / {
		index index.html;
		allow_methods GET DELETE;
		autoindex off;
	}

	location /browse {
		autoindex on;
	}

	location /cgi-bin {
		cgi_path /usr/bin/python3;
		cgi_ext .py;
	}

	location /upload {
		upload_path ` + root + `/uploads;
		allow_methods POST;
	}

	location /old {
		redirect /new;
	}
}
`
	tree, err := webconfig.Parse(strings.NewReader(cfg))
	require.NoError(t, err)
	return tree
}

func TestRouteStaticFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("Hello World\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "errors"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "errors", "404.html"), []byte("NOPE"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))

	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("GET", "/index.html", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 200, res.Response.Status)
	ct, _ := res.Response.Headers.Get("Content-Type")
	assert.Equal(t, "text/html", ct)
	assert.Equal(t, "Hello World\n", string(res.Response.Body))
}

func TestRouteMissingUsesCustomErrorPage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "errors"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "errors", "404.html"), []byte("NOPE"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))

	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("GET", "/missing", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 404, res.Response.Status)
	assert.Equal(t, "NOPE", string(res.Response.Body))
}

func TestRouteMethodNotAllowed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("POST", "/index.html", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 405, res.Response.Status)
}

func TestRouteBodyTooLarge(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("GET", "/index.html", "x"), 1<<30)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 413, res.Response.Status)
}

func TestRouteRedirect(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("GET", "/old", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 301, res.Response.Status)
	loc, _ := res.Response.Headers.Get("Location")
	assert.Equal(t, "/new", loc)
}

func TestRouteCGIHandoff(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	tree := testTree(t, root)
	res := Route(tree, 8080, newReq("GET", "/cgi-bin/hello.py", "x"), 0)
	require.Equal(t, ActionCGI, res.Action)
	assert.Equal(t, filepath.Join(root, "hello.py"), res.CGI.ScriptPath)
	assert.Equal(t, 10, res.CGI.Timeout)
}

func TestRouteDeleteThenNotFound(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), []byte("ABC"), 0o644))
	tree := testTree(t, root)

	res := Route(tree, 8080, newReq("DELETE", "/a.bin", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 204, res.Response.Status)

	res2 := Route(tree, 8080, newReq("DELETE", "/a.bin", "x"), 0)
	require.Equal(t, ActionRespond, res2.Action)
	assert.Equal(t, 404, res2.Response.Status)
}

func TestRouteUpload(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	tree := testTree(t, root)

	req := newReq("POST", "/upload", "x")
	req.Headers.Set("Content-Type", "multipart/form-data; boundary=XY")
	req.AddUploadedFile("f", "a.bin", "application/octet-stream", []byte("ABC"))

	res := Route(tree, 8080, req, 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 200, res.Response.Status)

	got, err := os.ReadFile(filepath.Join(root, "uploads", "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(got))
}

func TestRouteAutoindex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "browse"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "browse", "f.txt"), []byte("x"), 0o644))
	tree := testTree(t, root)

	res := Route(tree, 8080, newReq("GET", "/browse/", "x"), 0)
	require.Equal(t, ActionRespond, res.Action)
	assert.Equal(t, 200, res.Response.Status)
	assert.Contains(t, string(res.Response.Body), "f.txt")
}
