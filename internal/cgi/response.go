package cgi

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/danisayumin/webserv/internal/httpmsg"
)

// ParseOutput turns raw CGI output (headers, blank line, body) into a
// Response per spec §4.5: a leading "Status:" header sets the status
// line (default 200 if absent), every other header is forwarded
// verbatim, and Content-Length is always recomputed from the actual
// body rather than trusted from the script.
func ParseOutput(raw []byte) (*httpmsg.Response, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("cgi: empty output from script")
	}

	headerEnd, sepLen := findHeaderEnd(raw)
	if headerEnd < 0 {
		// No blank-line separator found; treat the whole thing as body
		// with default headers, matching permissive CGI gateways.
		resp := httpmsg.NewResponse(200, raw)
		return resp, nil
	}

	headerBlock := raw[:headerEnd]
	body := raw[headerEnd+sepLen:]

	status := 200
	reason := ""
	resp := httpmsg.NewResponse(status, body)

	scanner := bufio.NewScanner(bytes.NewReader(headerBlock))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		if strings.EqualFold(name, "Status") {
			code, r, err := parseStatusHeader(value)
			if err == nil {
				status = code
				reason = r
			}
			continue
		}
		resp.Headers.Set(name, value)
	}

	if reason == "" {
		reason = httpmsg.StatusText(status)
	}
	resp.Status = status
	resp.Reason = reason
	resp.Body = body
	return resp, nil
}

// execFailureMarkers are substrings a failed execve's diagnostic message
// is expected to carry (spec §4.5 error policy).
var execFailureMarkers = []string{"execve failed", "No such file or directory", "Permission denied"}

// LooksLikeExecFailure reports whether the first line of raw matches one
// of the known post-execve-failure diagnostics.
func LooksLikeExecFailure(raw []byte) bool {
	firstLine := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}
	for _, m := range execFailureMarkers {
		if bytes.Contains(firstLine, []byte(m)) {
			return true
		}
	}
	return false
}

// Interpret applies spec §4.5's error policy before delegating to
// ParseOutput: empty output or an execve-failure diagnostic both become
// an error, which the caller turns into a 500 via its own error-page
// resolver (this package has no server/location context to do so itself).
func Interpret(raw []byte) (*httpmsg.Response, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("cgi: empty output from script")
	}
	if LooksLikeExecFailure(raw) {
		return nil, fmt.Errorf("cgi: script failed to execute")
	}
	return ParseOutput(raw)
}

func parseStatusHeader(value string) (int, string, error) {
	fields := strings.SplitN(value, " ", 2)
	code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, "", err
	}
	reason := ""
	if len(fields) == 2 {
		reason = strings.TrimSpace(fields[1])
	}
	return code, reason, nil
}

// findHeaderEnd returns the offset of the earliest blank-line separator
// ("\r\n\r\n" or "\n\n") and its length, or (-1, 0) if none is present.
func findHeaderEnd(data []byte) (int, int) {
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	lf := bytes.Index(data, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return crlf, 4
	case lf >= 0:
		return lf, 2
	default:
		return -1, 0
	}
}
