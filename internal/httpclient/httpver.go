package httpclient

import (
	"net/http"
	"strings"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
)

type Version int

const (
	VersionAuto Version = iota
	V10
	V11
	V2
)

// ParseVersion accepts "1.0", "1.1", "2", "2.0", optionally prefixed with
// "HTTP/". "auto" and "" select VersionAuto.
func ParseVersion(raw string) (Version, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http/")
	switch s {
	case "", "auto":
		return VersionAuto, true
	case "1.0":
		return V10, true
	case "1.1":
		return V11, true
	case "2", "2.0":
		return V2, true
	default:
		return VersionAuto, false
	}
}

func (v Version) String() string {
	switch v {
	case V10:
		return "1.0"
	case V11:
		return "1.1"
	case V2:
		return "2"
	default:
		return "auto"
	}
}

func applyHTTPVersion(req *http.Request, v Version) {
	switch v {
	case V10:
		req.Proto = "HTTP/1.0"
		req.ProtoMajor = 1
		req.ProtoMinor = 0
	case V11:
		req.Proto = "HTTP/1.1"
		req.ProtoMajor = 1
		req.ProtoMinor = 1
	case V2:
		// negotiated by the transport via ALPN
	}
}

func checkHTTPVersionRequest(req *http.Request, v Version) error {
	if v != V2 || req.URL == nil {
		return nil
	}
	if !strings.EqualFold(req.URL.Scheme, "https") {
		return errdef.New(errdef.CodeTransport, "http version 2 requires https, got %s", req.URL.Scheme)
	}
	return nil
}

func checkHTTPVersion(resp *http.Response, v Version) error {
	if v != V2 {
		return nil
	}
	if resp == nil || resp.ProtoMajor != 2 {
		proto := ""
		if resp != nil {
			proto = resp.Proto
		}
		if strings.TrimSpace(proto) == "" {
			proto = "unknown"
		}
		return errdef.New(errdef.CodeTransport, "expected HTTP/2 response, got %s", proto)
	}
	return nil
}
