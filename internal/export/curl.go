package export

import (
	"net/url"
	"strings"

	"github.com/sadopc/hookscope/internal/capture"
)

// skipHeaders are set by curl itself or describe the original hop.
var skipHeaders = map[string]bool{
	"host":              true,
	"content-length":    true,
	"connection":        true,
	"accept-encoding":   true,
	"transfer-encoding": true,
	"x-forwarded-for":   true,
	"x-forwarded-proto": true,
	"x-real-ip":         true,
}

// AsCurl renders a captured request as a curl command that replays it
// against target, normally the account's webhook URL.
func AsCurl(rec capture.Record, target string) string {
	parts := []string{"curl"}

	method := string(rec.Method)
	if rec.Method == capture.MethodUnknown || method == "" {
		method = string(capture.MethodGET)
	}
	if method != string(capture.MethodGET) {
		parts = append(parts, "-X", method)
	}

	for _, h := range rec.Headers {
		if skipHeaders[strings.ToLower(h.Name)] {
			continue
		}
		parts = append(parts, "-H", quote(h.Name+": "+h.Value))
	}

	if body := rec.Body.Text(); body != "" {
		parts = append(parts, "--data-raw", quote(body))
	}

	parts = append(parts, quote(withQuery(target, rec.QueryParams)))
	return strings.Join(parts, " ")
}

// withQuery appends params to target in capture order.
func withQuery(target string, params capture.Pairs) string {
	if len(params) == 0 {
		return target
	}
	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = url.QueryEscape(p.Name) + "=" + url.QueryEscape(p.Value)
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + strings.Join(pairs, "&")
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
