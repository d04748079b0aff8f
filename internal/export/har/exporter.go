package har

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/pkg/version"
)

// HAR represents the HAR 1.2 format for export.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog is the top-level log object.
type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

// HARCreator identifies the tool that created the HAR.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry represents a single captured request and the response the
// capture service answered with.
type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Timings         HARTimings  `json:"timings"`
}

// HARRequest is the request portion of an entry.
type HARRequest struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Headers     []HARHeader  `json:"headers"`
	QueryString []HARQuery   `json:"queryString"`
	PostData    *HARPostData `json:"postData,omitempty"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
}

// HARResponse is the response portion of an entry.
type HARResponse struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []HARHeader `json:"headers"`
	Content     HARContent  `json:"content"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// HARHeader is a name/value pair for headers.
type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARQuery is a name/value pair for query string parameters.
type HARQuery struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARPostData is the body of a request.
type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARContent is the body of a response.
type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARTimings holds timing info for an entry.
type HARTimings struct {
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	SSL     float64 `json:"ssl"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// Export creates a HAR 1.2 JSON document from captured records. URLs are
// rebuilt against baseURL, the scheme and host the captures were sent to.
func Export(records []capture.Record, baseURL string) ([]byte, error) {
	entries := make([]HAREntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, buildHAREntry(rec, baseURL))
	}

	har := HAR{
		Log: HARLog{
			Version: "1.2",
			Creator: HARCreator{Name: "hookscope", Version: version.Version},
			Entries: entries,
		},
	}

	return json.MarshalIndent(har, "", "  ")
}

func buildHAREntry(rec capture.Record, baseURL string) HAREntry {
	started := rec.RequestTime
	if started.IsZero() {
		started = time.Unix(0, 0)
	}
	wait := float64(rec.ResponseTimeMs)
	return HAREntry{
		StartedDateTime: started.UTC().Format(time.RFC3339Nano),
		Time:            wait,
		Request:         buildHARRequest(rec, baseURL),
		Response:        buildHARResponse(rec),
		Timings: HARTimings{
			DNS:     -1,
			Connect: -1,
			SSL:     -1,
			Send:    0,
			Wait:    wait,
			Receive: 0,
		},
	}
}

func buildHARRequest(rec capture.Record, baseURL string) HARRequest {
	body := rec.Body.Text()
	harReq := HARRequest{
		Method:      string(rec.Method),
		URL:         requestURL(rec, baseURL),
		HTTPVersion: "HTTP/1.1",
		Headers:     []HARHeader{},
		QueryString: []HARQuery{},
		HeadersSize: -1,
		BodySize:    len(body),
	}

	for _, h := range rec.Headers {
		harReq.Headers = append(harReq.Headers, HARHeader{Name: h.Name, Value: h.Value})
	}
	for _, q := range rec.QueryParams {
		harReq.QueryString = append(harReq.QueryString, HARQuery{Name: q.Name, Value: q.Value})
	}

	if body != "" {
		mimeType := "text/plain"
		if ct, ok := rec.Headers.Get("Content-Type"); ok {
			mimeType = ct
		}
		harReq.PostData = &HARPostData{MimeType: mimeType, Text: body}
	}

	return harReq
}

// buildHARResponse describes the configured default response. The capture
// service does not record a status, so every entry reports 200.
func buildHARResponse(rec capture.Record) HARResponse {
	text := rec.Response.Text()
	mimeType := "text/plain"
	if !rec.Response.IsEmpty() && json.Valid([]byte(text)) {
		mimeType = "application/json"
	}
	return HARResponse{
		Status:      200,
		StatusText:  "OK",
		HTTPVersion: "HTTP/1.1",
		Headers:     []HARHeader{},
		HeadersSize: -1,
		BodySize:    len(text),
		Content: HARContent{
			Size:     len(text),
			MimeType: mimeType,
			Text:     text,
		},
	}
}

// requestURL joins the capture path onto baseURL's scheme and host.
func requestURL(rec capture.Record, baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: "localhost"}
	}
	path := rec.DisplayPath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	out := url.URL{Scheme: u.Scheme, Host: u.Host, Path: path}
	if len(rec.QueryParams) > 0 {
		q := make([]string, len(rec.QueryParams))
		for i, p := range rec.QueryParams {
			q[i] = url.QueryEscape(p.Name) + "=" + url.QueryEscape(p.Value)
		}
		out.RawQuery = strings.Join(q, "&")
	}
	return out.String()
}
