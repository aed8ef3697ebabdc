package router

import (
	"os"
	"path/filepath"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// routeUpload implements spec §4.6 step 8: POST to a location with an
// upload_path writes every multipart file part to disk.
func routeUpload(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, req *httpmsg.Request) *Result {
	if !req.Headers.HasPrefix("Content-Type", "multipart/form-data") {
		return respond(server, loc, 400)
	}

	info, err := os.Stat(loc.UploadPath)
	if err != nil || !info.IsDir() {
		return respond(server, loc, 500)
	}
	if err := checkWritableDir(loc.UploadPath); err != nil {
		return respond(server, loc, 500)
	}

	for _, f := range req.Files {
		name := sanitizeFilename(f.Filename)
		dest := filepath.Join(loc.UploadPath, name)
		if err := os.WriteFile(dest, f.Bytes, 0o644); err != nil {
			return respond(server, loc, 500)
		}
	}

	resp := httpmsg.NewResponse(200, []byte("upload complete\n"))
	resp.Headers.Set("Content-Type", "text/plain")
	return &Result{Action: ActionRespond, Response: resp, Server: server, Location: loc}
}

// checkWritableDir checks that dir is writable by inspecting its
// permission bits; a coarse but portable stand-in for access(2) W_OK
// that keeps this package free of a direct syscall dependency.
func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o222 == 0 {
		return os.ErrPermission
	}
	return nil
}
