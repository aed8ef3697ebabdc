package router

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/mime"
	"github.com/danisayumin/webserv/internal/webconfig"
	"github.com/dustin/go-humanize"
)

// routeGet implements spec §4.6 step 10: static file serving, index-file
// fallback, ".html" retry, and directory listing.
func routeGet(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, req *httpmsg.Request) *Result {
	if containsDotDot(req.Path()) {
		return respond(server, loc, 404)
	}

	root := loc.EffectiveRoot(server)
	full := joinRoot(root, req.Path())

	info, err := os.Stat(full)
	switch {
	case err == nil && info.Mode().IsRegular():
		return serveFile(server, loc, full)

	case err != nil && !strings.HasSuffix(req.Path(), "/") && filepath.Ext(req.Path()) == "":
		// No extension in the URI: retry with ".html" appended (spec
		// §4.6 step 10).
		htmlPath := full + ".html"
		if info2, err2 := os.Stat(htmlPath); err2 == nil && info2.Mode().IsRegular() {
			return serveFile(server, loc, htmlPath)
		}
		return respond(server, loc, 404)

	case err == nil && info.IsDir():
		indexPath := filepath.Join(full, loc.EffectiveIndex())
		if idxInfo, idxErr := os.Stat(indexPath); idxErr == nil && idxInfo.Mode().IsRegular() {
			return serveFile(server, loc, indexPath)
		}
		if loc.Autoindex {
			return serveAutoindex(server, loc, full, req.Path())
		}
		return respond(server, loc, 403)

	default:
		return respond(server, loc, 404)
	}
}

func serveFile(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, full string) *Result {
	body, err := os.ReadFile(full)
	if err != nil {
		if os.IsPermission(err) {
			return respond(server, loc, 403)
		}
		return respond(server, loc, 500)
	}
	resp := httpmsg.NewResponse(200, body)
	resp.Headers.Set("Content-Type", mime.TypeForPath(full))
	return &Result{Action: ActionRespond, Response: resp, Server: server, Location: loc}
}

// listingEntry mirrors the fields a browse-style directory listing needs
// (name, human size, modification time, whether it is itself a
// directory), grounded on caddy's fileserver browselisting.go fileInfo.
type listingEntry struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

func (e listingEntry) HumanSize() string {
	if e.IsDir {
		return "-"
	}
	return humanize.IBytes(uint64(e.Size))
}

func serveAutoindex(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, dir, uriPath string) *Result {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return respond(server, loc, 403)
	}

	listing := make([]listingEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		listing = append(listing, listingEntry{
			Name:    e.Name(),
			Size:    info.Size(),
			IsDir:   e.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(listing, func(i, j int) bool {
		if listing[i].IsDir != listing[j].IsDir {
			return listing[i].IsDir
		}
		return listing[i].Name < listing[j].Name
	})

	var sb strings.Builder
	sb.WriteString("<html><head><title>Index of " + uriPath + "</title></head><body>\n")
	sb.WriteString("<h1>Index of " + uriPath + "</h1>\n<ul>\n")
	if uriPath != "/" {
		sb.WriteString(`<li><a href="../">../</a></li>` + "\n")
	}
	for _, item := range listing {
		href := item.Name
		label := item.Name
		if item.IsDir {
			href += "/"
			label += "/"
		}
		sb.WriteString(`<li><a href="` + href + `">` + label + `</a> (` + item.HumanSize() + `, ` +
			item.ModTime.Format("2006-01-02 15:04:05") + `)</li>` + "\n")
	}
	sb.WriteString("</ul></body></html>")

	resp := httpmsg.NewResponse(200, []byte(sb.String()))
	resp.Headers.Set("Content-Type", "text/html")
	return &Result{Action: ActionRespond, Response: resp, Server: server, Location: loc}
}
